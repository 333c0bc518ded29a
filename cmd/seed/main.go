// Seeds the initial administrator account. The admin's second-factor
// enrollment URI is printed once so it can be loaded into an authenticator;
// the secret is not shown again.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"luckysix/internal/audit"
	"luckysix/internal/auth"
	"luckysix/internal/config"
	"luckysix/internal/db"
	"luckysix/internal/model"
	"luckysix/internal/repository"
	"luckysix/internal/service"
)

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Draw{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	userRepo := repository.NewUserRepository(gormDB)
	sink := audit.NewSlogSink(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Token and attempt stores are not needed to create a user; the auth
	// service only touches them during login.
	authService := service.NewAuthService(userRepo, auth.NewJWTService(cfg.JWTSecret), nil, nil, sink, nil, cfg.TOTPIssuer, cfg.LockoutThreshold)

	email := getEnv("ADMIN_EMAIL", "admin@email.com")
	password := getEnv("ADMIN_PASSWORD", "Admin1!")

	ctx := context.Background()
	admin, err := authService.Register(ctx, service.RegisterInput{
		Email:       email,
		Firstname:   "Alice",
		Lastname:    "Jones",
		Phone:       "0191-123-4567",
		DateOfBirth: "09/07/2000",
		Postcode:    "NE1 7RU",
		Password:    password,
		Role:        model.RoleAdmin,
	})
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	uri, err := authService.ProvisioningURI(ctx, admin.Email)
	if err != nil {
		log.Fatalf("Failed to build enrollment URI: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Admin account: %s (id %d)", admin.Email, admin.ID)
	log.Printf("  - 2FA enrollment URI: %s", uri)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
