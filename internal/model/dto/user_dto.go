package dto

// UpdateLanguageRequest 切换界面语言请求
type UpdateLanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,min=2,max=100"`
	Email *string `json:"email,omitempty" binding:"omitempty,email"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
}

// DeleteAccountRequest 注销账号请求
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}
