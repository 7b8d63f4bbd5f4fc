package dto

// RegisterRequest 注册请求，language 不传时默认英文
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Language string `json:"language" binding:"omitempty,oneof=en de ar"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 注册/登录共用的响应
type AuthResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// ForgotPasswordRequest 找回密码请求
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Language         string `json:"language"`
	Role             string `json:"role"`
	SubscriptionPlan string `json:"subscription_plan"`
	CreatedAt        string `json:"created_at,omitempty"`
}
