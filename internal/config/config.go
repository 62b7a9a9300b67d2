package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/skillswap/skillswap-backend/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config application configuration loaded from configs/config.<env>.yaml
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	CORS      CORSConfig      `yaml:"cors"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Messaging MessagingConfig `yaml:"messaging"`
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Mode string `yaml:"mode"` // debug, release, test
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`
}

// DatabaseConfig relational storage settings
type DatabaseConfig struct {
	Driver          string `yaml:"driver"` // mysql, sqlite
	Host            string `yaml:"host"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	Path            string `yaml:"path"` // sqlite file path
	Port            int    `yaml:"port"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// GetDSN builds a MySQL DSN
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

// RedisConfig redis connection settings
type RedisConfig struct {
	Host     string `yaml:"host"`
	Password string `yaml:"password"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Enabled  bool   `yaml:"enabled"`
}

// JWTConfig token verification settings
type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"` // seconds
}

// CORSConfig allowed origins (comma separated)
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// KafkaConfig integration event outbox
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Enabled bool     `yaml:"enabled"`
}

// MessagingConfig knobs for the messaging core
type MessagingConfig struct {
	MaxContentLength  int    `yaml:"max_content_length"`
	RequestTimeoutSec int    `yaml:"request_timeout"`
	FeedBuffer        int    `yaml:"feed_buffer"`
	ResolveRetries    int    `yaml:"resolve_retries"`
	SendPerMinute     int    `yaml:"send_per_minute"`
	WSAllowedOrigins  string `yaml:"ws_allowed_origins"`
	WSFramesPerSecond int    `yaml:"ws_frames_per_second"`
}

// RequestTimeout returns the per-request backend timeout
func (m MessagingConfig) RequestTimeout() time.Duration {
	return time.Duration(m.RequestTimeoutSec) * time.Second
}

// Load reads the YAML file at path, applies defaults and environment overrides
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// missing file: defaults + env only
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required (set JWT_SECRET)")
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8082
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "local"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "skillswap.db"
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 50
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.JWT.ExpiresIn == 0 {
		cfg.JWT.ExpiresIn = 900
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "messaging.events"
	}
	if cfg.Messaging.MaxContentLength == 0 {
		cfg.Messaging.MaxContentLength = 1000
	}
	if cfg.Messaging.RequestTimeoutSec == 0 {
		cfg.Messaging.RequestTimeoutSec = 10
	}
	if cfg.Messaging.FeedBuffer == 0 {
		cfg.Messaging.FeedBuffer = 64
	}
	if cfg.Messaging.ResolveRetries == 0 {
		cfg.Messaging.ResolveRetries = 3
	}
	if cfg.Messaging.SendPerMinute == 0 {
		cfg.Messaging.SendPerMinute = 60
	}
	if cfg.Messaging.WSFramesPerSecond == 0 {
		cfg.Messaging.WSFramesPerSecond = 5
	}
}

// applyEnv lets secrets and deployment-specific values come from the environment
func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.DBName = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		cfg.CORS.AllowOrigins = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = SplitAndTrim(v, ",")
		cfg.Kafka.Enabled = len(cfg.Kafka.Brokers) > 0
	}
}

// IsDevelopment reports whether the service runs in a local/dev environment
func (c *Config) IsDevelopment() bool {
	switch c.Server.Env {
	case "local", "dev", "development":
		return true
	}
	return false
}

// LogResolved prints the effective configuration without secrets
func LogResolved(cfg *Config) {
	logger.GetLogger().Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("db_driver", cfg.Database.Driver).
		Str("db_host", cfg.Database.Host).
		Bool("redis_enabled", cfg.Redis.Enabled).
		Bool("kafka_enabled", cfg.Kafka.Enabled).
		Int("max_content_length", cfg.Messaging.MaxContentLength).
		Msg("config resolved")
}

// SplitAndTrim splits s by sep and drops empty entries
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
