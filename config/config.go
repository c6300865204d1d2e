package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // MATCH_TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	AppEnv       string
	LogLevel     string

	CORSAllowedOrigins []string
	MatchTimezone      string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	KickoffPollInterval    time.Duration
	MatchRetention         time.Duration
	RetentionSweepInterval time.Duration
	VideoSweepInterval     time.Duration
	VideoOrphanAge         time.Duration
	UploadTimeout          time.Duration
	MaxUploadBytes         int64
	UploadConcurrency      int
}

// IsDevelopment reports whether internal error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecretKey:      os.Getenv("JWT_SECRET_KEY"),
		AppEnv:            getEnvOrDefault("APP_ENV", "development"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		MatchTimezone:     getEnvOrDefault("MATCH_TIMEZONE", "Africa/Lagos"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := getEnvOrDefault("SERVER_PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if _, err := time.LoadLocation(cfg.MatchTimezone); err != nil {
		return nil, fmt.Errorf("invalid MATCH_TIMEZONE %q: %w", cfg.MatchTimezone, err)
	}

	cfg.CORSAllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS",
		"http://localhost:3000,http://127.0.0.1:3000"))

	durations := []struct {
		env string
		def time.Duration
		dst *time.Duration
	}{
		{"KICKOFF_POLL_INTERVAL", 60 * time.Second, &cfg.KickoffPollInterval},
		{"MATCH_RETENTION", 48 * time.Hour, &cfg.MatchRetention},
		{"RETENTION_SWEEP_INTERVAL", 5 * time.Minute, &cfg.RetentionSweepInterval},
		{"VIDEO_SWEEP_INTERVAL", time.Hour, &cfg.VideoSweepInterval},
		{"VIDEO_ORPHAN_AGE", 48 * time.Hour, &cfg.VideoOrphanAge},
		{"UPLOAD_TIMEOUT", 60 * time.Second, &cfg.UploadTimeout},
	}
	for _, d := range durations {
		v, err := durationFromEnv(d.env, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	maxBytes, err := intFromEnv("MAX_UPLOAD_BYTES", 512<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxBytes)

	concurrency, err := intFromEnv("UPLOAD_CONCURRENCY", 3)
	if err != nil {
		return nil, err
	}
	cfg.UploadConcurrency = concurrency

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return d, nil
}

func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, v)
	}
	return v, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
