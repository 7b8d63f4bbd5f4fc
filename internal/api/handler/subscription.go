package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ehopn/invoice_go_server/internal/api/middleware"
	"github.com/ehopn/invoice_go_server/internal/model/dto"
	"github.com/ehopn/invoice_go_server/internal/pkg/response"
	"github.com/ehopn/invoice_go_server/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
	}
}

// Plans 套餐目录，无需登录
// GET /api/v1/subscription/plans
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	response.Success(c, h.subscriptionService.Plans())
}

// Checkout 发起套餐支付
// POST /api/v1/subscription/checkout
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.subscriptionService.Checkout(c.Request.Context(), userID, req.PlanID)
	if err != nil {
		// 网关拒绝也按参数类错误返回，把原始报错透传给前端
		response.ParamError(c, err.Error())
		return
	}

	response.Success(c, resp)
}

// VerifyPayment 支付回跳后核验
// POST /api/v1/subscription/verify
func (h *SubscriptionHandler) VerifyPayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.subscriptionService.VerifyPayment(c.Request.Context(), userID, req.TxRef)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrPaymentNotComplete):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "Subscription activated", info)
}

// Webhook 支付网关回调，tx_ref 从查询参数取
// GET/POST /api/v1/subscription/webhook
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	txRef := c.Query("trx_ref")
	if txRef == "" {
		txRef = c.Query("tx_ref")
	}
	if txRef == "" {
		response.ParamError(c, "missing transaction reference")
		return
	}

	if err := h.subscriptionService.HandleWebhook(c.Request.Context(), txRef); err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrPaymentNotComplete):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, nil)
}

// Create 直接开通免费套餐
// POST /api/v1/subscription
func (h *SubscriptionHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.subscriptionService.CreateFree(userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrPaymentNotComplete):
			response.ParamError(c, "Paid plans must go through checkout")
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Created(c, info)
}

// Current 当前订阅及本月用量
// GET /api/v1/subscription/current
func (h *SubscriptionHandler) Current(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	info, err := h.subscriptionService.Current(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, info)
}

// Cancel 取消付费订阅，立即退回免费套餐
// POST /api/v1/subscription/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	info, err := h.subscriptionService.Cancel(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "Subscription cancelled", info)
}
