package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/internal/model"
)

// ErrUploadLimitReached 当月上传数已达套餐上限
var ErrUploadLimitReached = errors.New("upload limit reached")

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(invoice *model.Invoice) error {
	return r.db.Create(invoice).Error
}

// CreateWithinMonthlyLimit 计数和插入放在同一事务里，
// 防止并发上传越过月度上限。limit 为负表示不限。
func (r *InvoiceRepository) CreateWithinMonthlyLimit(invoice *model.Invoice, limit int, monthStart time.Time) error {
	if limit < 0 {
		return r.db.Create(invoice).Error
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.Invoice{}).
			Where("user_id = ? AND created_at >= ?", invoice.UserID, monthStart).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count >= int64(limit) {
			return ErrUploadLimitReached
		}
		return tx.Create(invoice).Error
	})
}

// GetByIDForUser 只返回属于该用户的发票
func (r *InvoiceRepository) GetByIDForUser(id, userID int64) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListByUser 用户的发票列表，新的在前
func (r *InvoiceRepository) ListByUser(userID int64) ([]*model.Invoice, error) {
	var invoices []*model.Invoice
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// CountSince 用户从 since 起创建的发票数
func (r *InvoiceRepository) CountSince(userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Invoice{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// ListFileURLs 所有发票引用的文件地址，孤儿文件清理用
func (r *InvoiceRepository) ListFileURLs() ([]string, error) {
	var urls []string
	err := r.db.Model(&model.Invoice{}).
		Where("file_url <> ''").
		Pluck("file_url", &urls).Error
	if err != nil {
		return nil, err
	}
	return urls, nil
}

func (r *InvoiceRepository) Update(invoice *model.Invoice) error {
	return r.db.Save(invoice).Error
}

// DeleteForUser 删除属于该用户的发票，不存在时返回 gorm.ErrRecordNotFound
func (r *InvoiceRepository) DeleteForUser(id, userID int64) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Invoice{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
