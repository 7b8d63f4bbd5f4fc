package model

import (
	"time"
)

const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusPending = "pending"
)

type Subscription struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"not null;uniqueIndex" json:"user_id"` // 每个用户恰好一条
	Plan       string    `gorm:"size:20;not null;default:Free" json:"plan"`
	Status     string    `gorm:"size:20;not null;default:active;index" json:"status"` // active, pending
	RenewDate  time.Time `gorm:"not null;index" json:"renew_date"`
	ChapaTxRef *string   `gorm:"column:chapa_tx_ref;size:100;index" json:"chapa_tx_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
