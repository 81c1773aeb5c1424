package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"photoshare/internal/config"
	"photoshare/internal/database"
	"photoshare/internal/domain/auth"
	"photoshare/internal/logging"
	"photoshare/internal/repository"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger := logging.New(cfg.LogLevel, cfg.AppEnv)
	cleanup := auth.NewCleanupService(repository.NewRefreshTokenRepository(db), logger)

	deleted, err := cleanup.CleanupStaleSessions(ctx, cfg.CleanupRetention)
	if err != nil {
		log.Fatalf("cleanup refresh_tokens failed: %v", err)
	}

	log.Printf("auth cleanup completed: refresh_tokens=%d retention=%s", deleted, cfg.CleanupRetention)
}
