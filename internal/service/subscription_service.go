package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/pkg/chapa"
	"github.com/ehopn/invoice_go_server/internal/pkg/email"
	"github.com/ehopn/invoice_go_server/internal/repository"
)

// 待支付订阅超过这个时长未完成就退回免费套餐
const pendingPaymentTTL = 24 * time.Hour

var (
	ErrPlanNotFound       = errors.New("unknown plan")
	ErrPaymentNotComplete = errors.New("payment has not completed")
	ErrPaymentNotFound    = errors.New("payment reference not found")
)

type SubscriptionService struct {
	subRepo      *repository.SubscriptionRepository
	userRepo     *repository.UserRepository
	invoiceRepo  *repository.InvoiceRepository
	chapaClient  *chapa.Client
	emailService *email.Service
	cfg          *config.Config
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	invoiceRepo *repository.InvoiceRepository,
	chapaClient *chapa.Client,
	emailService *email.Service,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:      subRepo,
		userRepo:     userRepo,
		invoiceRepo:  invoiceRepo,
		chapaClient:  chapaClient,
		emailService: emailService,
		cfg:          cfg,
	}
}

// Plans 套餐目录
func (s *SubscriptionService) Plans() []model.Plan {
	return model.Plans
}

// Checkout 发起付费套餐支付，订阅先置为 pending，
// 支付核验通过后才生效
func (s *SubscriptionService) Checkout(ctx context.Context, userID int64, planID string) (*dto.CheckoutResponse, error) {
	plan, ok := model.PlanByName(planID)
	if !ok {
		return nil, ErrPlanNotFound
	}
	if plan.Price == 0 {
		// 免费套餐不走支付
		if err := s.activate(userID, plan.Name, nil); err != nil {
			return nil, err
		}
		return &dto.CheckoutResponse{}, nil
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	txRef := fmt.Sprintf("chapa-%d-%d", userID, time.Now().UnixMilli())

	firstName, lastName := splitName(user.Name)
	checkoutURL, err := s.chapaClient.Initialize(ctx, &chapa.InitializeRequest{
		Amount:      strconv.Itoa(plan.Price),
		Currency:    plan.Currency,
		Email:       user.Email,
		FirstName:   firstName,
		LastName:    lastName,
		TxRef:       txRef,
		CallbackURL: fmt.Sprintf("%s/api/v1/subscription/webhook", s.cfg.Server.BackendURL),
		ReturnURL:   fmt.Sprintf("%s/subscription/success?tx_ref=%s", s.cfg.Server.FrontendURL, txRef),
		Customization: map[string]string{
			"title":       "EHopN Invoice",
			"description": fmt.Sprintf("%s plan subscription", plan.Name),
		},
		Meta: map[string]string{
			"user_id": strconv.FormatInt(userID, 10),
			"plan_id": plan.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment: %w", err)
	}

	sub := &model.Subscription{
		UserID:     userID,
		Plan:       plan.Name,
		Status:     model.SubscriptionStatusPending,
		RenewDate:  time.Now().UTC().Add(30 * 24 * time.Hour),
		ChapaTxRef: &txRef,
	}
	if err := s.subRepo.Upsert(sub); err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		CheckoutURL: checkoutURL,
		TxRef:       txRef,
	}, nil
}

// VerifyPayment 前端回跳后核验支付结果，成功则激活订阅
func (s *SubscriptionService) VerifyPayment(ctx context.Context, userID int64, txRef string) (*dto.SubscriptionInfo, error) {
	sub, err := s.subRepo.GetByTxRef(txRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrPaymentNotFound
	}

	// 已经激活过了（webhook 先到），幂等返回
	if sub.Status == model.SubscriptionStatusActive {
		return s.Current(sub.UserID)
	}

	result, err := s.chapaClient.Verify(ctx, txRef)
	if err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}
	if result.Status != "success" {
		return nil, ErrPaymentNotComplete
	}

	if err := s.activate(sub.UserID, sub.Plan, &txRef); err != nil {
		return nil, err
	}

	return s.Current(sub.UserID)
}

// HandleWebhook 支付网关回调，和 VerifyPayment 互为冗余，先到先激活
func (s *SubscriptionService) HandleWebhook(ctx context.Context, txRef string) error {
	sub, err := s.subRepo.GetByTxRef(txRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}
	if sub.Status == model.SubscriptionStatusActive {
		return nil
	}

	// 回调来源不可信，必须反查网关确认
	result, err := s.chapaClient.Verify(ctx, txRef)
	if err != nil {
		return fmt.Errorf("failed to verify payment: %w", err)
	}
	if result.Status != "success" {
		return ErrPaymentNotComplete
	}

	return s.activate(sub.UserID, sub.Plan, &txRef)
}

// CreateFree 直接开通免费套餐（前端的降级入口）
func (s *SubscriptionService) CreateFree(userID int64, planID string) (*dto.SubscriptionInfo, error) {
	plan, ok := model.PlanByName(planID)
	if !ok {
		return nil, ErrPlanNotFound
	}
	if plan.Price != 0 {
		return nil, ErrPaymentNotComplete
	}

	if err := s.activate(userID, plan.Name, nil); err != nil {
		return nil, err
	}
	return s.Current(userID)
}

// Current 当前订阅及本月用量
func (s *SubscriptionService) Current(userID int64) (*dto.SubscriptionInfo, error) {
	sub, err := s.subRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 老账号可能没有订阅记录，视为免费套餐
			sub = &model.Subscription{
				UserID:    userID,
				Plan:      model.PlanFree,
				Status:    model.SubscriptionStatusActive,
				RenewDate: time.Now().UTC().Add(30 * 24 * time.Hour),
			}
		} else {
			return nil, err
		}
	}

	used, err := s.invoiceRepo.CountSince(userID, MonthStartUTC(time.Now()))
	if err != nil {
		return nil, err
	}

	return &dto.SubscriptionInfo{
		Plan:        sub.Plan,
		Status:      sub.Status,
		RenewDate:   sub.RenewDate.UTC().Format("2006-01-02"),
		UploadLimit: model.UploadLimitForPlan(sub.Plan),
		UploadsUsed: used,
	}, nil
}

// Cancel 取消付费订阅，立即退回免费套餐
func (s *SubscriptionService) Cancel(userID int64) (*dto.SubscriptionInfo, error) {
	if err := s.activate(userID, model.PlanFree, nil); err != nil {
		return nil, err
	}
	return s.Current(userID)
}

// ReleaseStalePending 把超时未支付的订阅退回免费套餐，后台任务调用
func (s *SubscriptionService) ReleaseStalePending() (int, error) {
	stale, err := s.subRepo.ListStalePending(time.Now().UTC().Add(-pendingPaymentTTL))
	if err != nil {
		return 0, err
	}

	released := 0
	for _, sub := range stale {
		if err := s.activate(sub.UserID, model.PlanFree, nil); err != nil {
			log.Printf("Failed to release stale subscription for user %d: %v", sub.UserID, err)
			continue
		}
		released++
	}
	return released, nil
}

// activate 激活套餐：更新订阅记录并同步用户上的套餐字段
func (s *SubscriptionService) activate(userID int64, plan string, txRef *string) error {
	sub := &model.Subscription{
		UserID:     userID,
		Plan:       plan,
		Status:     model.SubscriptionStatusActive,
		RenewDate:  time.Now().UTC().Add(30 * 24 * time.Hour),
		ChapaTxRef: txRef,
	}
	if err := s.subRepo.Upsert(sub); err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(userID, map[string]interface{}{
		"subscription_plan": plan,
	}); err != nil {
		return err
	}

	// 付费激活时补一封确认邮件
	if txRef != nil && s.emailService != nil {
		if user, err := s.userRepo.GetByID(userID); err == nil {
			go func(to, planName string) {
				if err := s.emailService.SendPaymentConfirmation(to, planName); err != nil {
					log.Printf("Failed to send payment confirmation to %s: %v", to, err)
				}
			}(user.Email, plan)
		}
	}

	return nil
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "Customer", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
