package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edulink/school-fees-api/api/swagger"
	"github.com/edulink/school-fees-api/internal/handler"
	"github.com/edulink/school-fees-api/internal/middleware"
	"github.com/edulink/school-fees-api/internal/models"
	"github.com/edulink/school-fees-api/internal/repository"
	"github.com/edulink/school-fees-api/internal/service"
	"github.com/edulink/school-fees-api/pkg/cache"
	"github.com/edulink/school-fees-api/pkg/config"
	"github.com/edulink/school-fees-api/pkg/database"
	"github.com/edulink/school-fees-api/pkg/logger"
	corsmiddleware "github.com/edulink/school-fees-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edulink/school-fees-api/pkg/middleware/requestid"
	"github.com/edulink/school-fees-api/pkg/receipt"
	"github.com/edulink/school-fees-api/pkg/storage"
)

// @title School Fees API
// @version 1.0.0
// @description Fee and payment ledger service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Report caching degrades gracefully without redis.
		logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		redisClient = nil
	}

	fileStore, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init receipt storage", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	feeRepo := repository.NewFeeRepository(db, service.DeriveStatus)
	paymentRepo := repository.NewPaymentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	signer := storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL)
	renderer := receipt.NewRenderer(cfg.Receipts.SchoolName, cfg.Receipts.SchoolAddress)

	receiptSvc := service.NewReceiptService(sequenceRepo, paymentRepo, renderer, fileStore, signer, metricsSvc, logr, service.ReceiptServiceConfig{
		Async:      cfg.Receipts.Async,
		Workers:    cfg.Receipts.WorkerConcurrency,
		MaxRetries: cfg.Receipts.WorkerRetries,
	})

	feeSvc := service.NewFeeService(feeRepo, studentRepo, paymentRepo, cacheRepo, cfg.Reports.CacheTTL, metricsSvc, validate, logr)
	paymentSvc := service.NewPaymentService(feeRepo, studentRepo, receiptSvc, cacheRepo, metricsSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "school-fees-api",
	})

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	receiptSvc.Start(rootCtx)
	defer receiptSvc.Stop()

	feeHandler := handler.NewFeeHandler(feeSvc, paymentSvc, receiptSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/fees", feeHandler.List)
		authed.GET("/fees/report", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAccountant), feeHandler.Report)
		authed.GET("/fees/export", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAccountant), feeHandler.Export)
		authed.GET("/fees/:id", feeHandler.Get)
		authed.POST("/fees", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), feeHandler.Create)
		authed.POST("/fees/payment", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAccountant), feeHandler.RecordPayment)
		authed.PUT("/fees/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), feeHandler.Update)
		authed.DELETE("/fees/:id", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), feeHandler.Delete)
		authed.GET("/students/:id/payments", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAccountant), feeHandler.PaymentHistory)
		authed.GET("/payments/:id/receipt", middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleAccountant), feeHandler.ReceiptToken)
		authed.GET("/receipts/:token", feeHandler.DownloadReceipt)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
