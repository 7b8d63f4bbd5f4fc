package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		Name:             fmt.Sprintf("Test User %d", time.Now().UnixNano()%10000),
		Email:            fmt.Sprintf("test_%d@example.com", time.Now().UnixNano()),
		PasswordHash:     "$2a$12$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Language:         model.LanguageEN,
		Role:             model.RoleUser,
		SubscriptionPlan: model.PlanFree,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithName 设置用户名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// WithPlan 设置订阅套餐
func WithPlan(plan string) func(*model.User) {
	return func(u *model.User) {
		u.SubscriptionPlan = plan
	}
}

// WithLanguage 设置语言
func WithLanguage(lang string) func(*model.User) {
	return func(u *model.User) {
		u.Language = lang
	}
}

// WithGoogleID 设置 Google 账号绑定
func WithGoogleID(googleID string) func(*model.User) {
	return func(u *model.User) {
		u.GoogleID = &googleID
	}
}

// TestInvoice 创建测试发票
func TestInvoice(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Invoice)) *model.Invoice {
	t.Helper()

	invoice := &model.Invoice{
		UserID: userID,
		Vendor: fmt.Sprintf("Test Vendor %d", time.Now().UnixNano()%10000),
		Date:   "2026-01-15",
		Amount: "100.50",
		TaxID:  "ET-123456",
	}

	for _, opt := range opts {
		opt(invoice)
	}

	if err := db.Create(invoice).Error; err != nil {
		t.Fatalf("Failed to create test invoice: %v", err)
	}

	return invoice
}

// WithVendor 设置供应商
func WithVendor(vendor string) func(*model.Invoice) {
	return func(i *model.Invoice) {
		i.Vendor = vendor
	}
}

// WithAmount 设置金额
func WithAmount(amount string) func(*model.Invoice) {
	return func(i *model.Invoice) {
		i.Amount = amount
	}
}

// WithDate 设置日期
func WithDate(date string) func(*model.Invoice) {
	return func(i *model.Invoice) {
		i.Date = date
	}
}

// WithCreatedAt 设置创建时间（测试月度窗口用）
func WithCreatedAt(ts time.Time) func(*model.Invoice) {
	return func(i *model.Invoice) {
		i.CreatedAt = ts
	}
}

// TestSubscription 创建测试订阅
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UserID:    userID,
		Plan:      model.PlanFree,
		Status:    model.SubscriptionStatusActive,
		RenewDate: time.Now().UTC().Add(30 * 24 * time.Hour),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithSubPlan 设置订阅套餐
func WithSubPlan(plan string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Plan = plan
	}
}

// WithSubStatus 设置订阅状态
func WithSubStatus(status string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithTxRef 设置支付流水号
func WithTxRef(txRef string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ChapaTxRef = &txRef
	}
}
