package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// minBcryptCost is the lowest acceptable bcrypt work factor. Configurations
// below it are rejected at startup.
const minBcryptCost = 10

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	MySQLDSN   string
	RedisAddr  string
	RedisDB    int
	RedisPass  string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	BcryptCost       int
	MaxLoginAttempts int
	LockoutDuration  time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBackend  string // "memory" or "redis"

	CORSOrigins []string
	SwaggerHost string
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/taskvault?charset=utf8mb4&parseTime=True&loc=Local"),
		RedisAddr:  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		RedisPass:  os.Getenv("REDIS_PASSWORD"),

		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_HOURS", 7*24)) * time.Hour,

		BcryptCost:       getEnvInt("BCRYPT_COST", 12),
		MaxLoginAttempts: getEnvInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:  time.Duration(getEnvInt("LOCKOUT_MINUTES", 30)) * time.Minute,

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		RateLimitBackend:  getEnv("RATE_LIMIT_BACKEND", "memory"),

		CORSOrigins: splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

// Validate checks startup invariants that must hold before the server
// accepts traffic.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.BcryptCost < minBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d, got %d", minBcryptCost, c.BcryptCost)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.MaxLoginAttempts < 1 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1, got %d", c.MaxLoginAttempts)
	}
	if c.LockoutDuration <= 0 {
		return fmt.Errorf("LOCKOUT_MINUTES must be positive")
	}
	if c.RateLimitRequests < 1 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit thresholds must be positive")
	}
	if c.RateLimitBackend != "memory" && c.RateLimitBackend != "redis" {
		return fmt.Errorf("RATE_LIMIT_BACKEND must be \"memory\" or \"redis\", got %q", c.RateLimitBackend)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
