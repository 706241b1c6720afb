// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for outbound email delivery.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetSupportForwardAddress() string
	GetAccountTeamForwardAddress() string
	GetBookingBaseURL() string
}

// AIConfig provides settings for the Gemini-backed classification and
// email generation services.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsAIEnabled() bool
}

// SchedulerConfig provides settings for the asynq job queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// QdrantConfig provides settings for the Qdrant vector database.
type QdrantConfig interface {
	GetQdrantURL() string
	GetQdrantAPIKey() string
	GetQdrantCollection() string
	IsQdrantEnabled() bool
}

// EmbeddingConfig provides settings for the embedding API service.
type EmbeddingConfig interface {
	GetEmbeddingAPIURL() string
	GetEmbeddingAPIKey() string
	IsEmbeddingEnabled() bool
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCaseStudyAssets() string
	IsMinIOEnabled() bool
}

// IntakeConfig provides settings for the IMAP inbox poller.
type IntakeConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPFolder() string
	GetIMAPPollInterval() time.Duration
	IsIMAPEnabled() bool
}

// PhoneConfig provides the default region for phone normalization.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	JWTAccessSecret           string
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	EmailEnabled              bool
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	EmailFromName             string
	EmailFromAddress          string
	SupportForwardAddress     string
	AccountTeamForwardAddress string
	BookingBaseURL            string
	GeminiAPIKey              string
	GeminiModel               string
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	QdrantURL                 string
	QdrantAPIKey              string
	QdrantCollection          string
	EmbeddingAPIURL           string
	EmbeddingAPIKey           string
	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinioBucketCaseStudies    string
	IMAPHost                  string
	IMAPPort                  int
	IMAPUsername              string
	IMAPPassword              string
	IMAPFolder                string
	IMAPPollInterval          time.Duration
	DefaultPhoneRegion        string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool                { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string                  { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                     { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string              { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string              { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string             { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string          { return c.EmailFromAddress }
func (c *Config) GetSupportForwardAddress() string     { return c.SupportForwardAddress }
func (c *Config) GetAccountTeamForwardAddress() string { return c.AccountTeamForwardAddress }
func (c *Config) GetBookingBaseURL() string            { return c.BookingBaseURL }

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }
func (c *Config) IsAIEnabled() bool       { return c.GeminiAPIKey != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// QdrantConfig implementation
func (c *Config) GetQdrantURL() string        { return c.QdrantURL }
func (c *Config) GetQdrantAPIKey() string     { return c.QdrantAPIKey }
func (c *Config) GetQdrantCollection() string { return c.QdrantCollection }
func (c *Config) IsQdrantEnabled() bool {
	return c.QdrantURL != "" && c.QdrantCollection != ""
}

// EmbeddingConfig implementation
func (c *Config) GetEmbeddingAPIURL() string { return c.EmbeddingAPIURL }
func (c *Config) GetEmbeddingAPIKey() string { return c.EmbeddingAPIKey }
func (c *Config) IsEmbeddingEnabled() bool   { return c.EmbeddingAPIURL != "" }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string             { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string            { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string            { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                 { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCaseStudyAssets() string { return c.MinioBucketCaseStudies }
func (c *Config) IsMinIOEnabled() bool                 { return c.MinIOEndpoint != "" }

// IntakeConfig implementation
func (c *Config) GetIMAPHost() string                  { return c.IMAPHost }
func (c *Config) GetIMAPPort() int                     { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string              { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string              { return c.IMAPPassword }
func (c *Config) GetIMAPFolder() string                { return c.IMAPFolder }
func (c *Config) GetIMAPPollInterval() time.Duration   { return c.IMAPPollInterval }
func (c *Config) IsIMAPEnabled() bool                  { return c.IMAPHost != "" && c.IMAPUsername != "" }

// PhoneConfig implementation
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, optionally seeded by a
// .env file in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		EmailEnabled:              emailEnabled && smtpHost != "",
		SMTPHost:                  smtpHost,
		SMTPPort:                  mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:              getEnv("SMTP_USERNAME", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "Sales Team"),
		EmailFromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
		SupportForwardAddress:     getEnv("SUPPORT_FORWARD_ADDRESS", ""),
		AccountTeamForwardAddress: getEnv("ACCOUNT_TEAM_FORWARD_ADDRESS", ""),
		BookingBaseURL:            getEnv("BOOKING_BASE_URL", "http://localhost:4200/book"),
		GeminiAPIKey:              getEnv("GEMINI_API_KEY", ""),
		GeminiModel:               getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "leads"),
		AsynqConcurrency:          mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		QdrantURL:                 getEnv("QDRANT_URL", ""),
		QdrantAPIKey:              getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:          getEnv("QDRANT_COLLECTION", "case_studies"),
		EmbeddingAPIURL:           getEnv("EMBEDDING_API_URL", ""),
		EmbeddingAPIKey:           getEnv("EMBEDDING_API_KEY", ""),
		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketCaseStudies:    getEnv("MINIO_BUCKET_CASE_STUDY_ASSETS", "case-study-assets"),
		IMAPHost:                  getEnv("IMAP_HOST", ""),
		IMAPPort:                  mustInt(getEnv("IMAP_PORT", "993")),
		IMAPUsername:              getEnv("IMAP_USERNAME", ""),
		IMAPPassword:              getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:                getEnv("IMAP_FOLDER", "INBOX"),
		IMAPPollInterval:          mustDuration(getEnv("IMAP_POLL_INTERVAL", "2m")),
		DefaultPhoneRegion:        getEnv("DEFAULT_PHONE_REGION", "US"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}
