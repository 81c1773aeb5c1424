package config

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultDatabaseURL        = "photoshare.db"
	defaultLogLevel           = "info"
	defaultMetricsPath        = "/metrics"
	defaultJWTAccessTTL       = "15m"
	defaultRefreshTTL         = "720h"
	defaultCookieSecure       = "false"
	defaultCookieSameSite     = "Lax"
	defaultCookiePath         = "/api/auth"
	defaultFrontendOrigin     = "http://localhost:5173"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultRefreshSecret      = "change-me-refresh-secret"
	defaultRefreshTokenPepper = "change-me-refresh-pepper"
	defaultHashAlgorithm      = "bcrypt"
	defaultBcryptCost         = 10
	defaultMaxSessions        = 10
	defaultAuthRateLimit      = 20
	defaultAuthRateWindow     = "1m"
	defaultCleanupRetention   = "720h"
	defaultRedisPrefix        = "photoshare:auth:rl:"
)

type AuthRuntimeConfig struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string
	MetricsPath string

	JWTSecret          string
	RefreshSecret      string
	JWTAccessTTL       time.Duration
	RefreshTTL         time.Duration
	RefreshTokenPepper string
	RefreshLookupIndex bool
	MaxSessionsPerUser int

	HashAlgorithm   string
	BcryptCost      int
	Argon2Time      uint32
	Argon2MemoryKiB uint32
	Argon2Threads   uint8
	HashWorkers     int

	CookieSecure    bool
	CookieSameSite  string
	CookiePath      string
	FrontendOrigins []string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string
	AuthRateLimit  int
	AuthRateWindow time.Duration

	CleanupRetention time.Duration
}

func LoadAuthRuntimeConfig() (*AuthRuntimeConfig, error) {
	cfg := &AuthRuntimeConfig{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.MetricsPath = strings.TrimSpace(getEnv("METRICS_PATH", defaultMetricsPath))

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RefreshSecret = strings.TrimSpace(getEnv("REFRESH_SECRET", defaultRefreshSecret))
	cfg.RefreshTokenPepper = strings.TrimSpace(getEnv("REFRESH_TOKEN_PEPPER", defaultRefreshTokenPepper))
	cfg.RefreshLookupIndex = parseBoolEnv("REFRESH_LOOKUP_INDEX", "false")

	var err error
	cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL)
	if err != nil {
		return nil, err
	}
	cfg.RefreshTTL, err = parseDurationEnv("REFRESH_TTL", defaultRefreshTTL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxSessionsPerUser, err = parseIntEnv("MAX_SESSIONS_PER_USER", defaultMaxSessions); err != nil {
		return nil, err
	}

	cfg.HashAlgorithm = strings.ToLower(strings.TrimSpace(getEnv("HASH_ALGORITHM", defaultHashAlgorithm)))
	if cfg.BcryptCost, err = parseIntEnv("BCRYPT_COST", defaultBcryptCost); err != nil {
		return nil, err
	}
	argonTime, err := parseIntEnv("ARGON2_TIME", 3)
	if err != nil {
		return nil, err
	}
	argonMem, err := parseIntEnv("ARGON2_MEMORY_KIB", 64*1024)
	if err != nil {
		return nil, err
	}
	argonThreads, err := parseIntEnv("ARGON2_THREADS", 2)
	if err != nil {
		return nil, err
	}
	if argonTime <= 0 || argonMem <= 0 || argonThreads <= 0 || argonThreads > 255 {
		return nil, fmt.Errorf("ARGON2_TIME, ARGON2_MEMORY_KIB and ARGON2_THREADS must be positive")
	}
	cfg.Argon2Time = uint32(argonTime)
	cfg.Argon2MemoryKiB = uint32(argonMem)
	cfg.Argon2Threads = uint8(argonThreads)
	if cfg.HashWorkers, err = parseIntEnv("HASH_WORKERS", runtime.GOMAXPROCS(0)); err != nil {
		return nil, err
	}

	cfg.CookieSecure = parseBoolEnv("COOKIE_SECURE", defaultCookieSecure)
	cfg.CookieSameSite = strings.TrimSpace(getEnv("COOKIE_SAMESITE", defaultCookieSameSite))
	cfg.CookiePath = strings.TrimSpace(getEnv("COOKIE_PATH", defaultCookiePath))
	cfg.FrontendOrigins = splitList(getEnv("FRONTEND_ORIGIN", defaultFrontendOrigin))

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	cfg.RedisPrefix = strings.TrimSpace(getEnv("REDIS_PREFIX", defaultRedisPrefix))
	if cfg.AuthRateLimit, err = parseIntEnv("AUTH_RATE_LIMIT", defaultAuthRateLimit); err != nil {
		return nil, err
	}
	cfg.AuthRateWindow, err = parseDurationEnv("AUTH_RATE_WINDOW", defaultAuthRateWindow)
	if err != nil {
		return nil, err
	}

	cfg.CleanupRetention, err = parseDurationEnv("CLEANUP_RETENTION", defaultCleanupRetention)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("auth cookie config: secure=%t, sameSite=%s, path=%s", cfg.CookieSecure, cfg.CookieSameSite, cfg.CookiePath)

	return cfg, nil
}

func validateConfig(cfg *AuthRuntimeConfig) error {
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TTL must be > 0")
	}
	if cfg.RefreshTTL <= cfg.JWTAccessTTL {
		return fmt.Errorf("REFRESH_TTL must be longer than JWT_ACCESS_TTL")
	}
	if cfg.MaxSessionsPerUser < 0 {
		return fmt.Errorf("MAX_SESSIONS_PER_USER must be >= 0")
	}
	if cfg.HashAlgorithm != "bcrypt" && cfg.HashAlgorithm != "argon2id" {
		return fmt.Errorf("HASH_ALGORITHM must be one of: bcrypt, argon2id")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.HashWorkers <= 0 {
		return fmt.Errorf("HASH_WORKERS must be > 0")
	}
	if cfg.JWTSecret == cfg.RefreshSecret {
		return fmt.Errorf("JWT_SECRET and REFRESH_SECRET must differ")
	}
	if cfg.CookiePath == "" {
		return fmt.Errorf("COOKIE_PATH must not be empty")
	}
	if cfg.CookieSameSite == "" {
		return fmt.Errorf("COOKIE_SAMESITE must not be empty")
	}
	sameSite := strings.ToLower(strings.TrimSpace(cfg.CookieSameSite))
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}
	if cfg.AuthRateLimit < 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT must be >= 0")
	}
	if cfg.AuthRateLimit > 0 && cfg.AuthRateWindow <= 0 {
		return fmt.Errorf("AUTH_RATE_WINDOW must be > 0")
	}
	if cfg.CleanupRetention < 0 {
		return fmt.Errorf("CLEANUP_RETENTION must be >= 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshSecret, defaultRefreshSecret) {
			return fmt.Errorf("in prod/release REFRESH_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.RefreshTokenPepper, defaultRefreshTokenPepper) {
			return fmt.Errorf("in prod/release REFRESH_TOKEN_PEPPER must be set and not default")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}

	return nil
}

// IsProdLike reports whether the runtime enforces production secret rules.
func (c *AuthRuntimeConfig) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
