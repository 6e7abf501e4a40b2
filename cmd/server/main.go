package main

import (
	"log"
	"net/http"

	"taskvault/docs"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"taskvault/internal/auth"
	"taskvault/internal/cache"
	"taskvault/internal/config"
	"taskvault/internal/db"
	"taskvault/internal/handler"
	"taskvault/internal/model"
	"taskvault/internal/ratelimit"
	"taskvault/internal/repository"
	"taskvault/internal/router"
	"taskvault/internal/service"
)

// @title Taskvault API
// @version 1.0
// @description Task management API with JWT authentication, account lockout and audit logging.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Task{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var limiter ratelimit.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = ratelimit.NewRedisLimiter(cacheClient.Redis(), cfg.RateLimitRequests, cfg.RateLimitWindow)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)
	auditRepo := repository.NewAuditRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	// Initialize services
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo, jwtService, hasher, auditService, cfg.MaxLoginAttempts, cfg.LockoutDuration)
	userService := service.NewUserService(userRepo, hasher, auditService)
	taskService := service.NewTaskService(taskRepo, auditService, cacheClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, userService, auditService)
	taskHandler := handler.NewTaskHandler(taskService)

	// Register routes
	router.Register(e, cfg, limiter, authService, authHandler, taskHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
