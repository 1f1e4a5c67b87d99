package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hqops/stocktrack/internal/config"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/handler"
	"github.com/hqops/stocktrack/internal/middleware"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
	"github.com/hqops/stocktrack/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting stocktrack service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 建表
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Part{},
		&entity.StatusLog{},
		&entity.Warranty{},
		&entity.Ticket{},
		&entity.Comment{},
		&entity.Attachment{},
		&entity.Test{},
		&entity.TestResult{},
		&entity.Notification{},
		&entity.ActivityLog{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	// 兜底管理员，首次部署时创建
	if err := seedAdmin(db); err != nil {
		zapLogger.Warn("Seed admin warning", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, unread counter cache disabled", zap.Error(err))
		rdb = nil
	}

	// 装配
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// seedAdmin 无管理员时创建默认管理员。密码来自ADMIN_PASSWORD，
// 未设置时不创建（不落弱口令）。
func seedAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.User{}).Where("role = ?", string(rbac.RoleAdmin)).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return fmt.Errorf("no admin account exists and ADMIN_PASSWORD is not set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	repos := repository.NewRepositories(db)
	return repos.User.Create(context.Background(), &entity.User{
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		Role:         string(rbac.RoleAdmin),
		IsActive:     true,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api/v1")

	// 认证（无需token）
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	// 以下全部需要认证
	authed := api.Group("")
	authed.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		authed.GET("/auth/me", h.Auth.Me)

		// 库存
		inventory := authed.Group("/inventory")
		{
			inventory.POST("", h.Inventory.Create)
			inventory.GET("", h.Inventory.List)
			inventory.GET("/search", h.Inventory.Search)
			inventory.GET("/:id", h.Inventory.Get)
			inventory.PUT("/:id", h.Inventory.Update)
			inventory.DELETE("/:id", h.Inventory.Delete)
			inventory.POST("/:id/engineer-test", h.Inventory.SendForTest)
			inventory.PUT("/:id/status", h.Inventory.RecordTestResult)
			inventory.GET("/:id/status-logs", h.Inventory.StatusLogs)
			inventory.POST("/:id/warranties", h.Inventory.AddWarranty)
			inventory.GET("/:id/warranties", h.Inventory.ListWarranties)
		}

		// 工单
		tickets := authed.Group("/tickets")
		{
			tickets.POST("", h.Ticket.Create)
			tickets.GET("", h.Ticket.List)
			tickets.GET("/:id", h.Ticket.Get)
			tickets.PUT("/:id", h.Ticket.Update)
			tickets.DELETE("/:id", h.Ticket.Delete)
			tickets.POST("/:id/comments", h.Ticket.AddComment)
			tickets.GET("/:id/comments", h.Ticket.ListComments)
			tickets.POST("/:id/attachments", h.Ticket.AddAttachment)
			tickets.GET("/:id/attachments", h.Ticket.ListAttachments)
		}

		// 测试
		tests := authed.Group("/tests")
		{
			tests.POST("", h.Test.Create)
			tests.GET("", h.Test.List)
			tests.GET("/:id", h.Test.Get)
			tests.PUT("/:id", h.Test.Update)
			tests.DELETE("/:id", h.Test.Delete)
			tests.POST("/:id/results", h.Test.AddResult)
			tests.GET("/:id/results", h.Test.ListResults)
		}

		// 通知
		notifications := authed.Group("/notifications")
		{
			notifications.GET("", h.Notification.List)
			notifications.GET("/unread-count", h.Notification.UnreadCount)
			notifications.PUT("/read-all", h.Notification.MarkAllRead)
			notifications.PUT("/:id/read", h.Notification.MarkRead)
			notifications.DELETE("/:id", h.Notification.Delete)
		}

		// 用户管理
		users := authed.Group("/users")
		{
			users.GET("", h.User.List)
			users.GET("/:id", h.User.Get)
			users.PUT("/:id", h.User.Update)
			users.PUT("/:id/role", h.User.ChangeRole)
			users.DELETE("/:id", h.User.Delete)
		}

		// 审计日志
		authed.GET("/activity-logs", h.User.ActivityLogs)
	}
}
