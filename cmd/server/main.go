package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	_ "luckysix/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"luckysix/internal/audit"
	"luckysix/internal/auth"
	"luckysix/internal/cache"
	"luckysix/internal/config"
	"luckysix/internal/db"
	"luckysix/internal/handler"
	"luckysix/internal/model"
	"luckysix/internal/repository"
	"luckysix/internal/router"
	"luckysix/internal/service"
)

// @title Lucky Six Lottery API
// @version 1.0
// @description Multi-tenant lottery service with two-factor login and encrypted draws.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Draw{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	drawRepo := repository.NewDrawRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	attemptStore := auth.NewAttemptStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Security audit events go to stderr as structured log lines
	sink := audit.NewSlogSink(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, attemptStore, sink, cacheClient, cfg.TOTPIssuer, cfg.LockoutThreshold)
	userService := service.NewUserService(userRepo, cacheClient)
	drawService := service.NewDrawService(drawRepo, userRepo)
	lotteryService := service.NewLotteryService(drawRepo, userRepo, sink)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, userService)
	lotteryHandler := handler.NewLotteryHandler(drawService)
	adminHandler := handler.NewAdminHandler(lotteryService, authService, userService)

	// Register routes
	router.Register(e, jwtService, sink, authHandler, lotteryHandler, adminHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
