package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/repository"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidAmount   = errors.New("amount must be a decimal with up to two digits")
	// ErrTextExtraction 上传文件读不出文本，上传中止
	ErrTextExtraction = errors.New("Failed to extract text from file")
)

// ErrLimitReached 提示语里带上套餐名，由上层格式化
type ErrLimitReached struct {
	Plan string
}

func (e *ErrLimitReached) Error() string {
	return fmt.Sprintf("Upload limit reached for %s plan", e.Plan)
}

type InvoiceService struct {
	invoiceRepo    *repository.InvoiceRepository
	userRepo       *repository.UserRepository
	extractService *ExtractService
}

func NewInvoiceService(
	invoiceRepo *repository.InvoiceRepository,
	userRepo *repository.UserRepository,
	extractService *ExtractService,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		userRepo:       userRepo,
		extractService: extractService,
	}
}

// List 当前用户的发票列表
func (s *InvoiceService) List(userID int64) ([]*model.Invoice, error) {
	return s.invoiceRepo.ListByUser(userID)
}

// Get 单张发票，只能拿自己的
func (s *InvoiceService) Get(id, userID int64) (*model.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByIDForUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return invoice, nil
}

// Create 手工录入一张发票，计入月度上限
func (s *InvoiceService) Create(userID int64, req *dto.CreateInvoiceRequest) (*model.Invoice, error) {
	if !model.IsValidInvoiceDate(req.Date) {
		return nil, ErrInvalidDate
	}
	if !model.IsValidInvoiceAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}

	invoice := &model.Invoice{
		UserID:  userID,
		Vendor:  req.Vendor,
		Date:    req.Date,
		Amount:  req.Amount,
		TaxID:   req.TaxID,
		FileURL: req.FileURL,
	}

	if err := s.createWithinLimit(invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// Upload 上传发票文件：只跑字段抽取并把结果交给客户端核对，
// 不落库。客户端确认后再调 Create 才真正入库。
// 文本抽取失败时中止上传，兜底字段随错误一并带回。
func (s *InvoiceService) Upload(ctx context.Context, filePath, mime, fileURL string) (*dto.UploadInvoiceResponse, error) {
	fields, aiUsed, err := s.extractService.ExtractFields(ctx, filePath, mime)

	resp := &dto.UploadInvoiceResponse{
		Vendor:    fields.Vendor,
		Date:      fields.Date,
		Amount:    fields.Amount,
		TaxID:     fields.TaxID,
		FileURL:   fileURL,
		Extracted: aiUsed,
	}
	if err != nil {
		// 上传中止后文件会被清理，不再指向它
		resp.FileURL = ""
		return resp, ErrTextExtraction
	}
	return resp, nil
}

// Update 更新发票字段
func (s *InvoiceService) Update(id, userID int64, req *dto.UpdateInvoiceRequest) (*model.Invoice, error) {
	invoice, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		if !model.IsValidInvoiceDate(*req.Date) {
			return nil, ErrInvalidDate
		}
		invoice.Date = *req.Date
	}
	if req.Amount != nil {
		if !model.IsValidInvoiceAmount(*req.Amount) {
			return nil, ErrInvalidAmount
		}
		invoice.Amount = *req.Amount
	}
	if req.Vendor != nil {
		invoice.Vendor = *req.Vendor
	}
	if req.TaxID != nil {
		invoice.TaxID = *req.TaxID
	}

	if err := s.invoiceRepo.Update(invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// Delete 删除发票
func (s *InvoiceService) Delete(id, userID int64) error {
	err := s.invoiceRepo.DeleteForUser(id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvoiceNotFound
	}
	return err
}

// createWithinLimit 按用户套餐的月度上限落库，计数和插入同一事务
func (s *InvoiceService) createWithinLimit(invoice *model.Invoice) error {
	user, err := s.userRepo.GetByID(invoice.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	limit := model.UploadLimitForPlan(user.SubscriptionPlan)
	err = s.invoiceRepo.CreateWithinMonthlyLimit(invoice, limit, MonthStartUTC(time.Now()))
	if errors.Is(err, repository.ErrUploadLimitReached) {
		return &ErrLimitReached{Plan: user.SubscriptionPlan}
	}
	return err
}

// MonthStartUTC 当月第一天零点，月度窗口统一用 UTC 计算
func MonthStartUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
