package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		Port        string
		Env         string
		Debug       bool
		FrontendURL string
	}
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		DBName   string
		SSLMode  string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
		DB       int
	}
	Cricbuzz struct {
		BaseURL  string
		APIKey   string
		APIHost  string
		Keywords []string
	}
	News struct {
		BaseURL string
		APIKey  string
	}
	Cache struct {
		Backend   string // memory | redis
		LiveTTL   time.Duration
		StaticTTL time.Duration
		PlayerTTL time.Duration
		NewsTTL   time.Duration
		MaxStale  time.Duration
	}
	Upstream struct {
		Timeout time.Duration
	}
	Retry struct {
		MaxAttempts int
		BaseDelay   time.Duration
		MaxDelay    time.Duration
		Jitter      float64
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	Chat struct {
		HistoryLimit  int
		MaxMessageLen int
		RetentionDays int
	}
	Workers struct {
		MatchesEnabled    bool
		RetentionEnabled  bool
		MatchesInterval   time.Duration
		RetentionInterval time.Duration
		SnapshotRetention time.Duration
	}
	RateLimit struct {
		Max    int
		Window time.Duration
	}
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "5000")
	cfg.App.Env = getEnv("APP_ENV", "development")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:5173")

	// DB
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnv("DB_NAME", "batball")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	// Redis
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	// Cricbuzz
	cfg.Cricbuzz.BaseURL = getEnv("CRICBUZZ_BASE_URL", "https://cricbuzz-cricket.p.rapidapi.com")
	cfg.Cricbuzz.APIKey = getEnv("CRICBUZZ_API_KEY", "")
	cfg.Cricbuzz.APIHost = getEnv("CRICBUZZ_API_HOST", "cricbuzz-cricket.p.rapidapi.com")
	cfg.Cricbuzz.Keywords = getEnvAsList("MATCH_KEYWORDS",
		[]string{"ICC", "World Cup", "Champions Trophy", "T20 World", "Trophy", "Cup", "Championship"})

	// News
	cfg.News.BaseURL = getEnv("NEWS_BASE_URL", "https://newsapi.org/v2")
	cfg.News.APIKey = getEnv("NEWS_API_KEY", "")

	// Cache
	cfg.Cache.Backend = getEnv("CACHE_BACKEND", "memory")
	cfg.Cache.LiveTTL = getEnvAsDuration("CACHE_LIVE_TTL", 30*time.Second)
	cfg.Cache.StaticTTL = getEnvAsDuration("CACHE_STATIC_TTL", time.Hour)
	cfg.Cache.PlayerTTL = getEnvAsDuration("CACHE_PLAYER_TTL", 6*time.Hour)
	cfg.Cache.NewsTTL = getEnvAsDuration("CACHE_NEWS_TTL", 5*time.Minute)
	cfg.Cache.MaxStale = getEnvAsDuration("CACHE_MAX_STALE", 0)

	cfg.Upstream.Timeout = getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second)

	// Retry
	cfg.Retry.MaxAttempts = getEnvAsInt("RETRY_MAX_ATTEMPTS", 3)
	cfg.Retry.BaseDelay = getEnvAsDuration("RETRY_BASE_DELAY", 200*time.Millisecond)
	cfg.Retry.MaxDelay = getEnvAsDuration("RETRY_MAX_DELAY", 2*time.Second)
	cfg.Retry.Jitter = getEnvAsFloat("RETRY_JITTER", 0.5)

	// Auth
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", "dev-jwt-secret-change-me")
	cfg.Auth.TokenTTL = getEnvAsDuration("JWT_TTL", 24*time.Hour)

	// Chat
	cfg.Chat.HistoryLimit = getEnvAsInt("CHAT_HISTORY_LIMIT", 50)
	cfg.Chat.MaxMessageLen = getEnvAsInt("CHAT_MAX_MESSAGE_LEN", 500)
	cfg.Chat.RetentionDays = getEnvAsInt("CHAT_RETENTION_DAYS", 0)

	// Workers
	cfg.Workers.MatchesEnabled = getEnvAsBool("MATCHES_WORKER_ENABLED", true)
	cfg.Workers.RetentionEnabled = getEnvAsBool("RETENTION_WORKER_ENABLED", true)
	cfg.Workers.MatchesInterval = getEnvAsDuration("WORKER_MATCHES_INTERVAL", 30*time.Second)
	cfg.Workers.RetentionInterval = getEnvAsDuration("WORKER_RETENTION_INTERVAL", 6*time.Hour)
	cfg.Workers.SnapshotRetention = getEnvAsDuration("SNAPSHOT_RETENTION", 7*24*time.Hour)

	// Rate Limit
	cfg.RateLimit.Max = getEnvAsInt("RATE_LIMIT_MAX", 100)
	cfg.RateLimit.Window = getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute)

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}

// getEnvAsList разбирает значение через запятую, пустые элементы отбрасываются
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
