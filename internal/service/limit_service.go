package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/repository"
)

// LimitService 月度上传上限的查询口径，供中间件和订阅接口复用
type LimitService struct {
	userRepo    *repository.UserRepository
	invoiceRepo *repository.InvoiceRepository
}

func NewLimitService(userRepo *repository.UserRepository, invoiceRepo *repository.InvoiceRepository) *LimitService {
	return &LimitService{
		userRepo:    userRepo,
		invoiceRepo: invoiceRepo,
	}
}

// UploadUsage 当前计费月的用量
type UploadUsage struct {
	Plan  string
	Used  int64
	Limit int // -1 表示不限
}

// Remaining 剩余额度，不限时返回 true
func (u *UploadUsage) Remaining() (int64, bool) {
	if u.Limit == model.UnlimitedUploads {
		return 0, true
	}
	left := int64(u.Limit) - u.Used
	if left < 0 {
		left = 0
	}
	return left, false
}

// Exceeded 是否已达上限
func (u *UploadUsage) Exceeded() bool {
	if u.Limit == model.UnlimitedUploads {
		return false
	}
	return u.Used >= int64(u.Limit)
}

// CheckUploadLimit 查询用户当月用量。这里只做预检提示，
// 真正的闸门在入库事务里。
func (s *LimitService) CheckUploadLimit(userID int64) (*UploadUsage, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	used, err := s.invoiceRepo.CountSince(userID, MonthStartUTC(time.Now()))
	if err != nil {
		return nil, err
	}

	return &UploadUsage{
		Plan:  user.SubscriptionPlan,
		Used:  used,
		Limit: model.UploadLimitForPlan(user.SubscriptionPlan),
	}, nil
}
