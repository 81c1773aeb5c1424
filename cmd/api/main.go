package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"photoshare/internal/config"
	"photoshare/internal/database"
	"photoshare/internal/domain/auth"
	"photoshare/internal/logging"
	"photoshare/internal/metrics"
	"photoshare/internal/middleware"
	"photoshare/internal/pkg/hasher"
	jwtsvc "photoshare/internal/pkg/jwt"
	"photoshare/internal/pkg/ratelimit"
	"photoshare/internal/pkg/workerpool"
	"photoshare/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.AppEnv)
	slog.SetDefault(logger)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	secrets, err := buildHasher(cfg)
	if err != nil {
		log.Fatalf("hasher: %v", err)
	}

	access := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)
	envelope := jwtsvc.NewRefreshSigner(cfg.RefreshSecret, cfg.RefreshTTL)

	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)

	refreshManager := auth.NewRefreshManager(refreshRepo, secrets, envelope, auth.RefreshConfig{
		Pepper:      cfg.RefreshTokenPepper,
		LookupIndex: cfg.RefreshLookupIndex,
		MaxSessions: cfg.MaxSessionsPerUser,
		Logger:      logger,
		ObserveCandidates: func(n int) {
			metrics.RefreshCandidates.Observe(float64(n))
		},
	})
	authService := auth.NewService(userRepo, secrets, access, refreshManager, logger)
	authHandler := auth.NewHandler(authService, auth.CookieOptions{
		Path:     cfg.CookiePath,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.CookieSameSite,
		MaxAge:   cfg.RefreshTTL,
	}, logger)

	limiter, closeLimiter := buildLimiter(cfg, logger)
	defer closeLimiter()

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorLogger(logger), middleware.CORS(cfg.FrontendOrigins))

	r.GET(cfg.MetricsPath, gin.WrapH(metrics.Handler(registry)))

	api := r.Group("/api")
	{
		authHandler.RegisterPublicRoutes(api, middleware.Throttle(limiter, "auth", logger))

		protected := api.Group("")
		protected.Use(middleware.RequireAuth(access))
		{
			authHandler.RegisterProtectedRoutes(protected)
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
	}
}

func buildHasher(cfg *config.AuthRuntimeConfig) (*hasher.Service, error) {
	bc, err := hasher.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	params := hasher.DefaultArgon2Params()
	params.Iterations = cfg.Argon2Time
	params.Memory = cfg.Argon2MemoryKiB
	params.Parallelism = cfg.Argon2Threads
	argon, err := hasher.NewArgon2id(params)
	if err != nil {
		return nil, err
	}

	var primary, fallback hasher.Algorithm = bc, argon
	if cfg.HashAlgorithm == "argon2id" {
		primary, fallback = argon, bc
	}

	return hasher.New(primary, workerpool.New(cfg.HashWorkers),
		hasher.WithFallback(fallback),
		hasher.WithObserver(metrics.ObserveHash),
	), nil
}

// buildLimiter prefers Redis so limits hold across replicas.
func buildLimiter(cfg *config.AuthRuntimeConfig, logger *slog.Logger) (ratelimit.Limiter, func()) {
	if cfg.AuthRateLimit == 0 {
		return nil, func() {}
	}
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-process rate limiter")
		return ratelimit.NewMemory(cfg.AuthRateLimit, cfg.AuthRateWindow, nil), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, limiter will fail open until it recovers", slog.String("error", err.Error()))
	}
	return ratelimit.NewRedis(client, cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.RedisPrefix), func() { _ = client.Close() }
}
