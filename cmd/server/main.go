package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ehopn/invoice_go_server/config"
	"github.com/ehopn/invoice_go_server/internal/api"
	"github.com/ehopn/invoice_go_server/internal/api/handler"
	"github.com/ehopn/invoice_go_server/internal/database"
	"github.com/ehopn/invoice_go_server/internal/model"
	"github.com/ehopn/invoice_go_server/internal/pkg/chapa"
	"github.com/ehopn/invoice_go_server/internal/pkg/cron"
	"github.com/ehopn/invoice_go_server/internal/pkg/doctext"
	"github.com/ehopn/invoice_go_server/internal/pkg/email"
	"github.com/ehopn/invoice_go_server/internal/pkg/gemini"
	"github.com/ehopn/invoice_go_server/internal/pkg/oauth"
	"github.com/ehopn/invoice_go_server/internal/pkg/oss"
	"github.com/ehopn/invoice_go_server/internal/repository"
	"github.com/ehopn/invoice_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Invoice{}, &model.Subscription{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis（OAuth state 存储）
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 可选的对象存储，没配置就只存本地
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Fatalf("Failed to init OSS client: %v", err)
		}
		log.Println("OSS client initialized")
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	// 初始化外部客户端
	emailService := email.NewService(&cfg.Email)
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Models)
	chapaClient := chapa.NewClient(cfg.Chapa.SecretKey, cfg.Chapa.BaseURL)
	docExtractor := doctext.NewExtractor(doctext.NewOCR(cfg.OCR.TesseractPath, cfg.OCR.Language))
	stateStore := oauth.NewStateStore(rdb)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, subRepo, emailService, cfg)
	userService := service.NewUserService(userRepo, cfg)
	extractService := service.NewExtractService(docExtractor, geminiClient)
	invoiceService := service.NewInvoiceService(invoiceRepo, userRepo, extractService)
	limitService := service.NewLimitService(userRepo, invoiceRepo)
	subscriptionService := service.NewSubscriptionService(subRepo, userRepo, invoiceRepo, chapaClient, emailService, cfg)

	// 后台任务：孤儿上传清理 + 超时订阅回收
	cronService := cron.NewService(subscriptionService, invoiceRepo, cfg.Upload.Dir, cfg.Upload.RetainHours)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService, stateStore, cfg)
	userHandler := handler.NewUserHandler(userService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, ossClient, cfg)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		invoiceHandler,
		subscriptionHandler,
		limitService,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器，收到信号后优雅退出
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
