package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Supabase SupabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Import   ImportConfig
	Sync     SyncConfig
	AWS      AWSConfig
	Kafka    KafkaConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins []string // CORS_ALLOWED_ORIGINS, comma-separated; "*" allows all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SupabaseConfig is the managed project URL/key pair. The service dials Postgres directly through
// DATABASE_URL; these are surfaced for clients and logged at startup.
type SupabaseConfig struct {
	URL string
	Key string
}

// RedisConfig holds Redis connection settings. An empty Addr disables cross-instance fan-out
// and the job queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds session token settings. An empty Secret makes the server sign sessions with a
// per-process key; ProviderPublicKey (PEM) enables verification of identity-provider tokens.
type JWTConfig struct {
	Secret            string
	ExpireHours       int
	ProviderPublicKey string
}

// ImportConfig bounds outbound datastore concurrency during menu imports.
type ImportConfig struct {
	Concurrency int
}

// SyncConfig holds the intervals handed to polling clients.
type SyncConfig struct {
	OrderPoll      time.Duration
	MenuPoll       time.Duration
	PortalRefresh  time.Duration
	NewOrderWindow time.Duration
}

// AWSConfig holds credentials and the bucket used to archive import payloads.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ImportBucket    string
}

// KafkaConfig configures the order-event export sink. No brokers means no export.
type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "menuportal"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Supabase: SupabaseConfig{
			URL: getEnv("SUPABASE_URL", ""),
			Key: getEnv("SUPABASE_KEY", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			ExpireHours:       getEnvInt("JWT_EXPIRE_HOURS", 24),
			ProviderPublicKey: getEnv("JWT_PROVIDER_PUBLIC_KEY", ""),
		},
		Import: ImportConfig{
			Concurrency: clamp(getEnvInt("IMPORT_CONCURRENCY", 8), 1, 16),
		},
		Sync: SyncConfig{
			OrderPoll:      time.Duration(getEnvInt("ORDER_POLL_SEC", 5)) * time.Second,
			MenuPoll:       time.Duration(getEnvInt("MENU_POLL_SEC", 30)) * time.Second,
			PortalRefresh:  time.Duration(getEnvInt("PORTAL_REFRESH_SEC", 60)) * time.Second,
			NewOrderWindow: time.Duration(getEnvInt("NEW_ORDER_WINDOW_SEC", 60)) * time.Second,
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ImportBucket:    getEnv("AWS_S3_IMPORT_BUCKET", "menuportal-imports"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitTrim(getEnv("KAFKA_BROKERS", ""), ","),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "live-orders"),
		},
	}
	if cfg.Sync.OrderPoll <= 0 || cfg.Sync.MenuPoll <= 0 {
		return nil, fmt.Errorf("poll intervals must be positive")
	}
	return cfg, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
