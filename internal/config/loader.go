package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rolodex")

	// Ignore error if config file not found
	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Server
	cfg.Server.Host = v.GetString("server_host")
	cfg.Server.Port = v.GetInt("server_port")
	cfg.Server.Env = v.GetString("server_env")
	cfg.Server.LogRequestBody = v.GetBool("server_log_request_body")
	cfg.Server.CORSOrigins = splitList(v.GetString("server_cors_origins"))
	cfg.Server.RateLimitPerMinute = v.GetInt("server_rate_limit_per_minute")

	// Store
	cfg.Store.Driver = strings.ToLower(v.GetString("store_driver"))

	// MongoDB
	cfg.Mongo.URI = v.GetString("mongo_uri")
	cfg.Mongo.Database = v.GetString("mongo_database")
	cfg.Mongo.Timeout = v.GetDuration("mongo_timeout")

	// PostgreSQL
	cfg.Postgres.Host = v.GetString("postgres_host")
	cfg.Postgres.Port = v.GetInt("postgres_port")
	cfg.Postgres.User = v.GetString("postgres_user")
	cfg.Postgres.Password = v.GetString("postgres_password")
	cfg.Postgres.Database = v.GetString("postgres_db")
	cfg.Postgres.SSLMode = v.GetString("postgres_ssl_mode")
	cfg.Postgres.MaxConns = int32(v.GetInt("postgres_max_conns"))
	cfg.Postgres.MinConns = int32(v.GetInt("postgres_min_conns"))

	// Redis
	cfg.Redis.Host = v.GetString("redis_host")
	cfg.Redis.Port = v.GetInt("redis_port")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Redis.DB = v.GetInt("redis_db")
	cfg.Redis.LookupCacheTTL = v.GetDuration("redis_lookup_cache_ttl")

	// JWT
	cfg.JWT.Secret = v.GetString("jwt_secret")
	cfg.JWT.AccessExpiry = v.GetInt("jwt_access_expiry")
	cfg.JWT.Issuer = v.GetString("jwt_issuer")

	// Worker
	cfg.Worker.Concurrency = v.GetInt("worker_concurrency")
	cfg.Worker.ResyncDelay = v.GetDuration("worker_resync_delay")
	cfg.Worker.OrphanSweepCron = v.GetString("worker_orphan_sweep_cron")

	// Sync
	cfg.Sync.SweepConcurrency = v.GetInt("sync_sweep_concurrency")

	// Kafka
	cfg.Kafka.Enabled = v.GetBool("kafka_enabled")
	cfg.Kafka.Brokers = splitList(v.GetString("kafka_brokers"))
	cfg.Kafka.Topic = v.GetString("kafka_topic")

	// MinIO
	cfg.MinIO.Endpoint = v.GetString("minio_endpoint")
	cfg.MinIO.AccessKey = v.GetString("minio_access_key")
	cfg.MinIO.SecretKey = v.GetString("minio_secret_key")
	cfg.MinIO.UseSSL = v.GetBool("minio_use_ssl")
	cfg.MinIO.Bucket = v.GetString("minio_bucket")
	cfg.MinIO.PresignExpiry = v.GetDuration("minio_presign_expiry")

	// Sentry
	cfg.Sentry.DSN = v.GetString("sentry_dsn")
	cfg.Sentry.Environment = v.GetString("sentry_environment")
	cfg.Sentry.SampleRate = v.GetFloat64("sentry_sample_rate")
	cfg.Sentry.TracesSampleRate = v.GetFloat64("sentry_traces_sample_rate")

	// Logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_env", "development")
	v.SetDefault("server_log_request_body", false)
	v.SetDefault("server_cors_origins", "")
	v.SetDefault("server_rate_limit_per_minute", 600)

	// Store defaults
	v.SetDefault("store_driver", StoreMongo)

	// MongoDB defaults
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "rolodex")
	v.SetDefault("mongo_timeout", "10s")

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "rolodex")
	v.SetDefault("postgres_password", "rolodex")
	v.SetDefault("postgres_db", "rolodex")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("postgres_max_conns", 25)
	v.SetDefault("postgres_min_conns", 5)

	// Redis defaults
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_lookup_cache_ttl", "5m")

	// JWT defaults
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("jwt_access_expiry", 60*24)
	v.SetDefault("jwt_issuer", "rolodex")

	// Worker defaults
	v.SetDefault("worker_concurrency", 10)
	v.SetDefault("worker_resync_delay", "30s")
	v.SetDefault("worker_orphan_sweep_cron", "0 3 * * *")

	// Sync defaults
	v.SetDefault("sync_sweep_concurrency", 4)

	// Kafka defaults
	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_topic", "rolodex.relationships")

	// MinIO defaults
	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "rolodex")
	v.SetDefault("minio_secret_key", "rolodex123")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_bucket", "rolodex-exports")
	v.SetDefault("minio_presign_expiry", "15m")

	// Sentry defaults
	v.SetDefault("sentry_sample_rate", 1.0)
	v.SetDefault("sentry_traces_sample_rate", 0.1)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

func validate(cfg *Config) error {
	if cfg.JWT.Secret == defaultJWTSecret && cfg.IsProduction() {
		return fmt.Errorf("JWT secret must be changed in production")
	}
	switch cfg.Store.Driver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Sync.SweepConcurrency < 1 {
		return fmt.Errorf("sync sweep concurrency must be positive, got %d", cfg.Sync.SweepConcurrency)
	}
	if cfg.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka enabled without brokers")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
