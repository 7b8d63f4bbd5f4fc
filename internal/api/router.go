package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/api/handler"
	"github.com/ehopn/invoice_go_server/internal/api/middleware"
	"github.com/ehopn/invoice_go_server/internal/pkg/response"
	"github.com/ehopn/invoice_go_server/internal/service"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	invoiceHandler      *handler.InvoiceHandler
	subscriptionHandler *handler.SubscriptionHandler
	limitService        *service.LimitService
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	invoiceHandler *handler.InvoiceHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	limitService *service.LimitService,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		userHandler:         userHandler,
		invoiceHandler:      invoiceHandler,
		subscriptionHandler: subscriptionHandler,
		limitService:        limitService,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"mode":      r.cfg.Server.Mode,
		})
	})

	// 本地上传的发票原件
	engine.Static("/uploads", r.cfg.Upload.Dir)

	api := engine.Group("/api/v1")
	{
		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/logout", r.authHandler.Logout)
			auth.POST("/forgot-password", r.authHandler.ForgotPassword)
			auth.POST("/reset-password", r.authHandler.ResetPassword)
			auth.GET("/google", r.authHandler.GoogleLogin)
			auth.GET("/google/callback", r.authHandler.GoogleCallback)
		}
		api.GET("/auth/me", middleware.Auth(r.cfg.JWT.Secret), r.authHandler.Me)

		// 公开接口 - 套餐目录与支付回调
		api.GET("/subscription/plans", r.subscriptionHandler.Plans)
		api.GET("/subscription/webhook", r.subscriptionHandler.Webhook)
		api.POST("/subscription/webhook", r.subscriptionHandler.Webhook)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 账号设置
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.PUT("/language", r.userHandler.UpdateLanguage)
				user.PUT("/password", r.userHandler.ChangePassword)
				user.DELETE("/account", r.userHandler.DeleteAccount)
			}

			// 发票
			invoices := authenticated.Group("/invoices")
			{
				invoices.GET("", r.invoiceHandler.List)
				invoices.POST("", r.invoiceHandler.Create)
				invoices.POST("/upload", middleware.UploadLimit(r.limitService), r.invoiceHandler.Upload)
				invoices.GET("/:id", r.invoiceHandler.Get)
				invoices.PUT("/:id", r.invoiceHandler.Update)
				invoices.DELETE("/:id", r.invoiceHandler.Delete)
			}

			// 订阅
			subscription := authenticated.Group("/subscription")
			{
				subscription.POST("", r.subscriptionHandler.Create)
				subscription.GET("/current", r.subscriptionHandler.Current)
				subscription.POST("/checkout", r.subscriptionHandler.Checkout)
				subscription.POST("/verify", r.subscriptionHandler.VerifyPayment)
				subscription.POST("/cancel", r.subscriptionHandler.Cancel)
			}
		}
	}

	return engine
}
