package service

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/repository"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrWrongPassword       = errors.New("current password is incorrect")
)

type UserService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewUserService(userRepo *repository.UserRepository, cfg *config.Config) *UserService {
	return &UserService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return buildUserInfo(user), nil
}

// UpdateLanguage 切换界面语言
func (s *UserService) UpdateLanguage(userID int64, language string) error {
	if !model.IsValidLanguage(language) {
		return ErrUnsupportedLanguage
	}

	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"language": language,
	})
}

// UpdateProfile 更新用户信息
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 检查新邮箱是否已被占用
	if req.Email != nil && *req.Email != user.Email {
		exists, err := s.userRepo.ExistsByEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrEmailExists
		}
		user.Email = *req.Email
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return buildUserInfo(user), nil
}

// ChangePassword 修改密码，必须先验证当前密码
func (s *UserService) ChangePassword(userID int64, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"password_hash": string(hashedPassword),
	})
}

// DeleteAccount 注销账号，验证密码后连带删除发票和订阅
func (s *UserService) DeleteAccount(userID int64, password string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	// Google 账号没有本地密码，直接放行
	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return ErrWrongPassword
		}
	}

	return s.userRepo.DeleteWithOwnedData(userID)
}

func buildUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Language:         user.Language,
		Role:             user.Role,
		SubscriptionPlan: user.SubscriptionPlan,
		CreatedAt:        user.CreatedAt.UTC().Format(time.RFC3339),
	}
}
