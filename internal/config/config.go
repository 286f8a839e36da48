package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// セッションストアのバックエンド種別。
const (
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OpenWeather
	OpenWeatherAPIKey          string
	OpenWeatherSearchURL       string
	OpenWeatherWeatherURL      string
	OpenWeatherTimeout         time.Duration
	OpenWeatherSearchLimit     int
	OpenWeatherMaxResponseSize int64
	OpenWeatherSafeClient      bool

	// Session
	SessionBackend         string
	SessionMaxAge          int
	SessionStoreTimeout    time.Duration
	SessionCleanupInterval time.Duration
	RedisURL               string

	// Password
	BcryptCost int

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitAuth    int

	// GetUserLocations
	GetLocationsConcurrency int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// SessionTTL はセッションの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}

	cfg.SessionBackend = strings.ToLower(getEnvString("SESSION_BACKEND", SessionBackendRedis))
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.SessionBackend == SessionBackendRedis && cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.SessionBackend != SessionBackendRedis && cfg.SessionBackend != SessionBackendPostgres {
		return nil, fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q",
			SessionBackendRedis, SessionBackendPostgres, cfg.SessionBackend)
	}

	// Optional fields with defaults
	cfg.OpenWeatherSearchURL = getEnvString("OPENWEATHER_SEARCH_URL", "https://api.openweathermap.org/geo/1.0/direct")
	cfg.OpenWeatherWeatherURL = getEnvString("OPENWEATHER_WEATHER_URL", "https://api.openweathermap.org/data/2.5/weather")
	cfg.OpenWeatherTimeout = getEnvDuration("OPENWEATHER_TIMEOUT", 10*time.Second)
	cfg.OpenWeatherSearchLimit = getEnvInt("OPENWEATHER_SEARCH_LIMIT", 5)
	cfg.OpenWeatherMaxResponseSize = getEnvInt64("OPENWEATHER_MAX_RESPONSE_SIZE", 1<<20)
	cfg.OpenWeatherSafeClient = getEnvBool("OPENWEATHER_SAFE_CLIENT", true)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionStoreTimeout = getEnvDuration("SESSION_STORE_TIMEOUT", 3*time.Second)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 0)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.GetLocationsConcurrency = getEnvInt("GET_LOCATIONS_CONCURRENCY", 1)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
