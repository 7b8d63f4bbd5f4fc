package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/api/middleware"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/pkg/oauth"
	"github.com/ehopn/invoice_go_server/internal/pkg/response"
	"github.com/ehopn/invoice_go_server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	stateStore  *oauth.StateStore
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, stateStore *oauth.StateStore, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		stateStore:  stateStore,
		cfg:         cfg,
	}
}

// Register 用户注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailExists):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Created(c, resp)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Logged in successfully", resp)
}

// Logout 退出登录。JWT 无状态，由客户端丢弃令牌
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	response.SuccessWithMessage(c, "Logged out successfully", nil)
}

// Me 当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	profile, err := h.authService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.AuthError(c, "")
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, profile)
}

// ForgotPassword 发送密码重置邮件
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(req.Email); err != nil {
		response.ServerError(c, "")
		return
	}

	// 不泄露邮箱是否注册
	response.SuccessWithMessage(c, "If the email is registered, a reset link has been sent", nil)
}

// ResetPassword 用邮件令牌重置密码
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.authService.ResetPassword(req.Token, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidResetToken) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "Password has been reset", nil)
}

// GoogleLogin 跳转到 Google 授权页
// GET /api/v1/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := h.stateStore.GenerateState(c.Request.Context(), h.cfg.Server.FrontendURL)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	c.Redirect(http.StatusFound, h.authService.GetGoogleAuthURL(state))
}

// GoogleCallback Google 授权回调，换取令牌后带着 JWT 跳回前端
// GET /api/v1/auth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	if _, err := h.stateStore.ValidateState(c.Request.Context(), state); err != nil {
		h.redirectWithError(c, "invalid_state")
		return
	}
	if code == "" {
		h.redirectWithError(c, "missing_code")
		return
	}

	resp, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		h.redirectWithError(c, "oauth_failed")
		return
	}

	c.Redirect(http.StatusFound, oauthSuccessURL(h.cfg.Server.FrontendURL, resp.Token))
}

// oauthSuccessURL 登录成功跳回前端，带上 JWT 和成功标记
func oauthSuccessURL(frontendURL, token string) string {
	return fmt.Sprintf("%s/auth/callback?token=%s&success=true", frontendURL, url.QueryEscape(token))
}

func (h *AuthHandler) redirectWithError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/login?error=%s", h.cfg.Server.FrontendURL, reason))
}
