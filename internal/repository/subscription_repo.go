package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByTxRef(txRef string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("chapa_tx_ref = ?", txRef).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Update(sub *model.Subscription) error {
	return r.db.Save(sub).Error
}

// Upsert 用户订阅记录唯一，有则更新无则创建
func (r *SubscriptionRepository) Upsert(sub *model.Subscription) error {
	var existing model.Subscription
	err := r.db.Where("user_id = ?", sub.UserID).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return r.db.Create(sub).Error
		}
		return err
	}
	sub.ID = existing.ID
	sub.CreatedAt = existing.CreatedAt
	return r.db.Save(sub).Error
}

// ListStalePending 卡在 pending 超过期限的订阅，用于后台回收
func (r *SubscriptionRepository) ListStalePending(before time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("status = ? AND updated_at < ?", model.SubscriptionStatusPending, before).Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
