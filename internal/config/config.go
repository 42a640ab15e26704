package config

import (
	"fmt"
	"time"
)

// Store drivers
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Worker   WorkerConfig
	Sync     SyncConfig
	Kafka    KafkaConfig
	MinIO    MinIOConfig
	Sentry   SentryConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Env            string `mapstructure:"env"`
	LogRequestBody bool   `mapstructure:"log_request_body"`
	// CORSOrigins lists allowed browser origins; empty allows any origin
	CORSOrigins []string `mapstructure:"cors_origins"`
	// RateLimitPerMinute caps requests per owner; zero disables the limiter
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// StoreConfig selects the entity store backend
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// DSN returns the PostgreSQL connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	LookupCacheTTL time.Duration `mapstructure:"lookup_cache_ttl"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string `mapstructure:"secret"`
	AccessExpiry int    `mapstructure:"access_expiry"` // minutes
	Issuer       string `mapstructure:"issuer"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	ResyncDelay     time.Duration `mapstructure:"resync_delay"`
	OrphanSweepCron string        `mapstructure:"orphan_sweep_cron"`
}

// SyncConfig tunes the counterpart sweep
type SyncConfig struct {
	SweepConcurrency int `mapstructure:"sweep_concurrency"`
}

// KafkaConfig holds relationship event publishing configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MinIOConfig holds MinIO configuration
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	Bucket        string        `mapstructure:"bucket"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	SampleRate       float64 `mapstructure:"sample_rate"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// Enabled reports whether a DSN is configured
func (c SentryConfig) Enabled() bool {
	return c.DSN != ""
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IsDevelopment returns true if running in development mode
func (c Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}
