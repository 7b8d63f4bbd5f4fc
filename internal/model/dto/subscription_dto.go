package dto

// CheckoutRequest 发起支付请求
type CheckoutRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// CheckoutResponse 支付跳转信息
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	TxRef       string `json:"tx_ref"`
}

// VerifyPaymentRequest 支付结果校验请求
type VerifyPaymentRequest struct {
	TxRef string `json:"tx_ref" binding:"required"`
}

// CreateSubscriptionRequest 直接开通免费套餐
type CreateSubscriptionRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// SubscriptionInfo 当前订阅信息
type SubscriptionInfo struct {
	Plan        string `json:"plan"`
	Status      string `json:"status"`
	RenewDate   string `json:"renew_date"`
	UploadLimit int    `json:"upload_limit"` // -1 表示不限
	UploadsUsed int64  `json:"uploads_used"`
}
