package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"socialmedia_api/internal/logging"
)

type Config struct {
	DBHost         string `koanf:"db_host"`
	DBPort         string `koanf:"db_port"`
	DBUser         string `koanf:"db_user"`
	DBPassword     string `koanf:"db_password"`
	DBName         string `koanf:"db_name"`
	DBSSLMode      string `koanf:"db_sslmode"`
	DBMaxOpenConns int    `koanf:"db_max_open_conns"`

	ServerPort string `koanf:"server_port"`

	RedisURL string `koanf:"redis_url"`

	JWTSecret string `koanf:"jwt_secret"`

	AccessTokenMaxAge  int `koanf:"access_token_max_age"`
	RefreshTokenMaxAge int `koanf:"refresh_token_max_age"`

	R2AccountID       string `koanf:"r2_account_id"`
	R2AccessKeyID     string `koanf:"r2_access_key_id"`
	R2SecretAccessKey string `koanf:"r2_secret_access_key"`
	R2BucketName      string `koanf:"r2_bucket_name"`
	R2PublicURL       string `koanf:"r2_public_url"`

	DefaultAvatarURL string `koanf:"default_avatar_url"`
	DefaultAvatarKey string `koanf:"default_avatar_key"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// NotifySuppressSelf skips notifications where actor and recipient are the same user.
	NotifySuppressSelf bool   `koanf:"notify_suppress_self"`
	PushEnabled        bool   `koanf:"push_enabled"`
	ExpoPushURL        string `koanf:"expo_push_url"`
	WorkerCount        int    `koanf:"worker_count"`

	RateLimitRPM       int    `koanf:"rate_limit_rpm"`
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`
}

func defaultConfig() *Config {
	return &Config{
		DBPort:             "5432",
		DBSSLMode:          "require",
		DBMaxOpenConns:     25,
		ServerPort:         "8080",
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 2592000,
		LogLevel:           "info",
		LogFormat:          "json",
		PushEnabled:        true,
		WorkerCount:        2,
		RateLimitRPM:       120,
		CORSAllowedOrigins: "*",
	}
}

// LoadConfig reads .env (if present), then layers struct defaults and the
// process environment. Environment variables win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found, relying on environment variables")
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
		return errors.New("DB_HOST, DB_USER and DB_NAME are required")
	}
	if c.AccessTokenMaxAge <= 0 || c.RefreshTokenMaxAge <= 0 {
		return errors.New("token max ages must be positive")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1, got %d", c.WorkerCount)
	}
	return nil
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// R2Enabled reports whether object storage credentials are configured.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}
