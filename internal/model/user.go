package model

import (
	"time"
)

// 支持的界面语言
const (
	LanguageEN = "en"
	LanguageDE = "de"
	LanguageAR = "ar"
)

// IsValidLanguage 校验语言代码是否在支持范围内
func IsValidLanguage(lang string) bool {
	switch lang {
	case LanguageEN, LanguageDE, LanguageAR:
		return true
	}
	return false
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	Name              string     `gorm:"size:100;not null" json:"name"`
	Email             string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash      string     `gorm:"size:255;not null" json:"-"`
	Language          string     `gorm:"size:5;default:en" json:"language"`
	Role              string     `gorm:"size:10;default:user" json:"role"`
	SubscriptionPlan  string     `gorm:"size:20;default:Free" json:"subscription_plan"`
	GoogleID          *string    `gorm:"column:google_id;size:100;uniqueIndex" json:"-"`
	ResetToken        *string    `gorm:"size:255" json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
