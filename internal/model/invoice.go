package model

import (
	"regexp"
	"time"
)

var (
	// 日期固定为 YYYY-MM-DD
	invoiceDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	// 金额为十进制字符串，最多两位小数，避免浮点漂移
	invoiceAmountPattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// IsValidInvoiceDate 校验日期格式
func IsValidInvoiceDate(date string) bool {
	return invoiceDatePattern.MatchString(date)
}

// IsValidInvoiceAmount 校验金额格式
func IsValidInvoiceAmount(amount string) bool {
	return invoiceAmountPattern.MatchString(amount)
}

type Invoice struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index:idx_invoices_user_created" json:"user_id"`
	Vendor    string    `gorm:"size:200;not null" json:"vendor"`
	Date      string    `gorm:"size:10;not null;index" json:"date"`
	Amount    string    `gorm:"size:20;not null" json:"amount"`
	TaxID     string    `gorm:"column:tax_id;size:50;not null" json:"tax_id"`
	FileURL   string    `gorm:"size:500" json:"file_url,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_invoices_user_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
