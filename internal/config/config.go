// Package config provides configuration management for the guestbook service.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, SERVER_PORT)
// 3. Default values
//
// Import Path: travelguide.io/guestbook/internal/config
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Rate window store backends.
const (
	RateLimitBackendMemory   = "memory"
	RateLimitBackendRedis    = "redis"
	RateLimitBackendPostgres = "postgres"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	River       RiverConfig       `mapstructure:"river"`
	Security    SecurityConfig    `mapstructure:"security"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Moderation  ModerationConfig  `mapstructure:"moderation"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORS is only installed when at least one origin is configured.
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`

	// TrustedProxies controls which peers may set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	// ValidateResponses checks handler output against the OpenAPI document.
	ValidateResponses bool `mapstructure:"validate_responses"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// The pool is shared by the repositories and River.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`

	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// RedisConfig contains Redis settings. Only used by the redis rate window store.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings.
type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// SecurityConfig contains token verification settings.
// Tokens are issued by the external identity provider with a shared HS256 key.
type SecurityConfig struct {
	JWTSigningKey       string   `mapstructure:"jwt_signing_key"`
	JWTVerificationKeys []string `mapstructure:"jwt_verification_keys"`
	JWTIssuer           string   `mapstructure:"jwt_issuer"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize int `mapstructure:"general_pool_size"`
	AuditPoolSize   int `mapstructure:"audit_pool_size"`
}

// RateLimitConfig selects the rate window store.
// Caps and window lengths are fixed policy and not configurable.
type RateLimitConfig struct {
	Backend        string `mapstructure:"backend"`
	MemoryCapacity int    `mapstructure:"memory_capacity"`
}

// ModerationConfig contains classifier tuning.
type ModerationConfig struct {
	SpamThreshold int `mapstructure:"spam_threshold"`
	MaxBodyLength int `mapstructure:"max_body_length"`
}

// MaintenanceConfig contains background maintenance settings.
type MaintenanceConfig struct {
	// RateWindowRetention is how long an expired rate window row is kept before cleanup.
	RateWindowRetention time.Duration `mapstructure:"rate_window_retention"`
}

var (
	bootstrapLoggerOnce sync.Once
	bootstrapLogger     *zap.Logger
)

// Load reads configuration from file and environment variables.
// No env prefix: nested keys map as database.max_conns -> DATABASE_MAX_CONNS.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/guestbook")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.ensureSecrets(); err != nil {
		return nil, fmt.Errorf("ensure secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if len(c.Security.JWTSigningKey) < 32 {
		return fmt.Errorf("security.jwt_signing_key must be at least 32 characters")
	}
	switch c.RateLimit.Backend {
	case RateLimitBackendMemory:
		if c.RateLimit.MemoryCapacity <= 0 {
			return fmt.Errorf("ratelimit.memory_capacity must be positive")
		}
	case RateLimitBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required when ratelimit.backend is redis")
		}
	case RateLimitBackendPostgres:
	default:
		return fmt.Errorf("ratelimit.backend %q is not one of memory, redis, postgres", c.RateLimit.Backend)
	}
	if c.Moderation.SpamThreshold < 1 || c.Moderation.SpamThreshold > 100 {
		return fmt.Errorf("moderation.spam_threshold must be within 1..100")
	}
	if c.Moderation.MaxBodyLength <= 0 {
		return fmt.Errorf("moderation.max_body_length must be positive")
	}
	return nil
}

// ensureSecrets generates a signing key when none is configured.
// Tokens signed by the identity provider will not verify against it; it only keeps
// a development instance bootable.
func (c *Config) ensureSecrets() error {
	if c.Security.JWTSigningKey == "" {
		key, err := generateSecureRandomHex(32)
		if err != nil {
			return fmt.Errorf("auto-generate jwt signing key: %w", err)
		}
		c.Security.JWTSigningKey = key
		logBootstrapWarn(
			"auto-generated jwt_signing_key; set SECURITY_JWT_SIGNING_KEY to the identity provider key",
			zap.Int("length", len(key)),
		)
	}
	return nil
}

func logBootstrapWarn(msg string, fields ...zap.Field) {
	bootstrapLoggerOnce.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)

		l, err := cfg.Build()
		if err != nil {
			bootstrapLogger = zap.NewNop()
			return
		}
		bootstrapLogger = l
	})

	bootstrapLogger.Warn(msg, fields...)
}

// generateSecureRandomHex produces a hex-encoded string of n random bytes.
func generateSecureRandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.allow_credentials", true)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.validate_responses", false)

	// Database
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "guestbook")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "guestbook")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.auto_migrate", true)

	// Redis
	v.SetDefault("redis.url", "")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 5)
	v.SetDefault("river.completed_job_retention_period", "24h")

	// Security
	v.SetDefault("security.jwt_signing_key", "")
	v.SetDefault("security.jwt_verification_keys", []string{})
	v.SetDefault("security.jwt_issuer", "")

	// Worker pools
	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.audit_pool_size", 20)

	// Rate limiting
	v.SetDefault("ratelimit.backend", RateLimitBackendPostgres)
	v.SetDefault("ratelimit.memory_capacity", 100000)

	// Moderation
	v.SetDefault("moderation.spam_threshold", 50)
	v.SetDefault("moderation.max_body_length", 10000)

	// Maintenance
	v.SetDefault("maintenance.rate_window_retention", "1h")
}
