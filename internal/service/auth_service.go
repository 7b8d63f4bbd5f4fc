package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/pkg/email"
	"github.com/ehopn/invoice_go_server/internal/pkg/jwt"
	"github.com/ehopn/invoice_go_server/internal/pkg/oauth"
	"github.com/ehopn/invoice_go_server/internal/repository"
)

const bcryptCost = 12

var (
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("reset token is invalid or has expired")
	ErrUserNotFound       = errors.New("user not found")
)

type AuthService struct {
	userRepo     *repository.UserRepository
	subRepo      *repository.SubscriptionRepository
	emailService *email.Service
	cfg          *config.Config
	googleOAuth  *oauth.GoogleOAuth
}

func NewAuthService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	emailService *email.Service,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		subRepo:      subRepo,
		emailService: emailService,
		cfg:          cfg,
		googleOAuth: oauth.NewGoogleOAuth(
			cfg.OAuth.Google.ClientID,
			cfg.OAuth.Google.ClientSecret,
			cfg.OAuth.Google.RedirectURI,
		),
	}
}

// Register 用户注册，建号同时落一条免费订阅
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	exists, err := s.userRepo.ExistsByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	language := req.Language
	if language == "" {
		language = model.LanguageEN
	}

	user := &model.User{
		Name:             req.Name,
		Email:            req.Email,
		PasswordHash:     string(hashedPassword),
		Language:         language,
		Role:             model.RoleUser,
		SubscriptionPlan: model.PlanFree,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	sub := &model.Subscription{
		UserID:    user.ID,
		Plan:      model.PlanFree,
		Status:    model.SubscriptionStatusActive,
		RenewDate: time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	if err := s.subRepo.Create(sub); err != nil {
		return nil, err
	}

	// 欢迎邮件发不出去不影响注册
	if s.emailService != nil {
		go func(to, name string) {
			if err := s.emailService.SendWelcome(to, name); err != nil {
				log.Printf("Failed to send welcome email to %s: %v", to, err)
			}
		}(user.Email, user.Name)
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token: token,
		User:  buildUserInfo(user),
	}, nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		// Google 注册的账号没有本地密码
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token: token,
		User:  buildUserInfo(user),
	}, nil
}

// ForgotPassword 找回密码。无论邮箱是否存在都静默成功，
// 避免被用来探测注册用户。
func (s *AuthService) ForgotPassword(emailAddr string) error {
	user, err := s.userRepo.GetByEmail(emailAddr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := generateRandomToken(64)
	if err != nil {
		return err
	}

	expires := time.Now().UTC().Add(time.Hour)
	err = s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": expires,
	})
	if err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.Server.FrontendURL, token)
	if s.emailService != nil {
		go func(to, link string) {
			if err := s.emailService.SendPasswordReset(to, link); err != nil {
				log.Printf("Failed to send password reset email to %s: %v", to, err)
			}
		}(user.Email, resetLink)
	}

	return nil
}

// ResetPassword 用邮件里的令牌重置密码，令牌一次性有效
func (s *AuthService) ResetPassword(token, newPassword string) error {
	user, err := s.userRepo.GetByResetToken(token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"password_hash":       string(hashedPassword),
		"reset_token":         nil,
		"reset_token_expires": nil,
	})
}

// GetProfile 当前登录用户信息
func (s *AuthService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return buildUserInfo(user), nil
}

// GetGoogleAuthURL 获取 Google 授权 URL
func (s *AuthService) GetGoogleAuthURL(state string) string {
	return s.googleOAuth.GetAuthURL(state)
}

// GoogleCallback 处理 Google OAuth 回调，首次登录自动建号
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*dto.AuthResponse, error) {
	token, err := s.googleOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	googleUser, err := s.googleOAuth.GetUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get google user: %w", err)
	}

	user, err := s.userRepo.GetByGoogleID(googleUser.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if user == nil {
		// 同邮箱已有本地账号则绑定，否则新建
		user, err = s.userRepo.GetByEmail(googleUser.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if user != nil {
			if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
				"google_id": googleUser.ID,
			}); err != nil {
				return nil, err
			}
			user.GoogleID = &googleUser.ID
		} else {
			user = &model.User{
				Name:             googleUser.Name,
				Email:            googleUser.Email,
				GoogleID:         &googleUser.ID,
				Language:         model.LanguageEN,
				Role:             model.RoleUser,
				SubscriptionPlan: model.PlanFree,
			}
			if user.Name == "" {
				user.Name = googleUser.Email
			}

			if err := s.userRepo.Create(user); err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}

			sub := &model.Subscription{
				UserID:    user.ID,
				Plan:      model.PlanFree,
				Status:    model.SubscriptionStatusActive,
				RenewDate: time.Now().UTC().Add(30 * 24 * time.Hour),
			}
			if err := s.subRepo.Create(sub); err != nil {
				return nil, err
			}

			if s.emailService != nil {
				go func(to, name string) {
					if err := s.emailService.SendWelcome(to, name); err != nil {
						log.Printf("Failed to send welcome email to %s: %v", to, err)
					}
				}(user.Email, user.Name)
			}
		}
	}

	jwtToken, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		Token: jwtToken,
		User:  buildUserInfo(user),
	}, nil
}

func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
