package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service and workers.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Inference InferenceConfig
	RAG       RAGConfig
	SLA       SLAConfig
	Queue     QueueConfig
	Upload    UploadConfig
	Email     EmailConfig
	Retention RetentionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	FrontendURL           string
	RequestTimeoutSeconds int
	RLSDegradedMode       bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                string
	AccessTokenExpireMinutes int
	RefreshTokenExpireDays   int
	BcryptCost               int
	MaxLoginAttempts         int
	LockoutMinutes           int
}

// InferenceConfig points at the remote model endpoint.
type InferenceConfig struct {
	Endpoint       string
	Model          string
	EmbeddingModel string
	TimeoutSeconds int
}

// RAGConfig controls retrieval behavior.
type RAGConfig struct {
	Enabled              bool
	IndexOnTicketResolve bool
	TopK                 int
	GraphDepth           int
	HNSWEfSearch         int
	EmbedDim             int
	ChunkSize            int
	ChunkOverlap         int
	MaxAttempts          int
}

// SLAConfig controls the breach sweep.
type SLAConfig struct {
	CheckIntervalSeconds int
}

// QueueConfig controls job-queue workers.
type QueueConfig struct {
	WorkerCount        int
	MaxRetries         int
	BaseBackoffSeconds int
	LeaseSeconds       int
	IdleBackoffMaxSec  int
}

// UploadConfig describes the attachment contract.
type UploadConfig struct {
	Dir               string
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// EmailConfig holds SMTP/IMAP ingress settings; wire plumbing lives
// outside the core.
type EmailConfig struct {
	SMTPHost            string
	SMTPPort            int
	SMTPUser            string
	SMTPPassword        string
	IMAPHost            string
	IMAPPort            int
	IMAPUser            string
	IMAPPassword        string
	PollIntervalSeconds int
}

// RetentionConfig controls log cleanup defaults.
type RetentionConfig struct {
	DefaultDays int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "atum-helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			RLSDegradedMode:       getEnvAsBool("RLS_DEGRADED_MODE", true),
		},
		Postgres: PostgresConfig{
			DSN:            getEnv("DATABASE_URL", os.Getenv("POSTGRES_DSN")),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:                getEnv("SECRET_KEY", "dev-secret"),
			AccessTokenExpireMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60),
			RefreshTokenExpireDays:   getEnvAsInt("REFRESH_TOKEN_EXPIRE_DAYS", 7),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 12),
			MaxLoginAttempts:         getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutMinutes:           getEnvAsInt("LOCKOUT_MINUTES", 15),
		},
		Inference: InferenceConfig{
			Endpoint:       getEnv("INFERENCE_ENDPOINT", "http://127.0.0.1:11434"),
			Model:          getEnv("INFERENCE_MODEL", "llama3.1"),
			EmbeddingModel: getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			TimeoutSeconds: getEnvAsInt("INFERENCE_TIMEOUT", 30),
		},
		RAG: RAGConfig{
			Enabled:              getEnvAsBool("RAG_ENABLED", true),
			IndexOnTicketResolve: getEnvAsBool("RAG_INDEX_ON_TICKET_RESOLVE", true),
			TopK:                 getEnvAsInt("RAG_TOP_K", 5),
			GraphDepth:           getEnvAsInt("RAG_GRAPH_DEPTH", 2),
			HNSWEfSearch:         getEnvAsInt("RAG_HNSW_EF_SEARCH", 100),
			EmbedDim:             getEnvAsInt("RAG_EMBED_DIM", 768),
			ChunkSize:            getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:         getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			MaxAttempts:          getEnvAsInt("RAG_INDEX_MAX_ATTEMPTS", 3),
		},
		SLA: SLAConfig{
			CheckIntervalSeconds: getEnvAsInt("SLA_CHECK_INTERVAL_SECONDS", 60),
		},
		Queue: QueueConfig{
			WorkerCount:        getEnvAsInt("QUEUE_WORKER_COUNT", 4),
			MaxRetries:         getEnvAsInt("QUEUE_MAX_RETRIES", 3),
			BaseBackoffSeconds: getEnvAsInt("QUEUE_BASE_BACKOFF_SECONDS", 30),
			LeaseSeconds:       getEnvAsInt("QUEUE_LEASE_SECONDS", 300),
			IdleBackoffMaxSec:  getEnvAsInt("QUEUE_IDLE_BACKOFF_MAX_SECONDS", 60),
		},
		Upload: UploadConfig{
			Dir:               getEnv("UPLOAD_DIR", "./uploads"),
			MaxUploadBytes:    int64(getEnvAsInt("MAX_UPLOAD_SIZE", 10*1024*1024)),
			AllowedExtensions: splitCSV(getEnv("ALLOWED_EXTENSIONS", "pdf,png,jpg,jpeg,txt,log,zip")),
		},
		Email: EmailConfig{
			SMTPHost:            getEnv("SMTP_HOST", ""),
			SMTPPort:            getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:            getEnv("SMTP_USER", ""),
			SMTPPassword:        os.Getenv("SMTP_PASSWORD"),
			IMAPHost:            getEnv("IMAP_HOST", ""),
			IMAPPort:            getEnvAsInt("IMAP_PORT", 993),
			IMAPUser:            getEnv("IMAP_USER", ""),
			IMAPPassword:        os.Getenv("IMAP_PASSWORD"),
			PollIntervalSeconds: getEnvAsInt("EMAIL_POLL_INTERVAL", 60),
		},
		Retention: RetentionConfig{
			DefaultDays: getEnvAsInt("RETENTION_DEFAULT_DAYS", 365),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call inference timeout.
func (i InferenceConfig) Timeout() time.Duration {
	if i.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// Lease returns the stuck-job lease duration.
func (q QueueConfig) Lease() time.Duration {
	if q.LeaseSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(q.LeaseSeconds) * time.Second
}

// BaseBackoff returns the retry backoff base.
func (q QueueConfig) BaseBackoff() time.Duration {
	if q.BaseBackoffSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(q.BaseBackoffSeconds) * time.Second
}

func splitCSV(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
