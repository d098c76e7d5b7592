package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database    DatabaseConfig   `json:"database"`
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Sharing     SharingConfig    `json:"sharing"`
	CORSOrigins []string         `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type SharingConfig struct {
	// Hard cap on codes one issuer may create per trailing hour.
	MaxCodesPerHour int `json:"max_codes_per_hour"`
	// Default/ceiling for per-code expiry when the request omits it.
	DefaultExpiryHours int `json:"default_expiry_hours"`
	MaxExpiryHours     int `json:"max_expiry_hours"`
	// Ceiling on max_uses accepted from the request.
	MaxUsesLimit int `json:"max_uses_limit"`
	// Cron spec for flipping expired codes inactive.
	CleanupCron string `json:"cleanup_cron"`
	// Client lookup cache on the redemption path.
	ClientCacheSize       int `json:"client_cache_size"`
	ClientCacheTTLSeconds int `json:"client_cache_ttl_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	applySharingDefaults(&cfg.Sharing)
	return &cfg, nil
}

func applySharingDefaults(s *SharingConfig) {
	if s.MaxCodesPerHour <= 0 {
		s.MaxCodesPerHour = 10
	}
	if s.DefaultExpiryHours <= 0 {
		s.DefaultExpiryHours = 24
	}
	if s.MaxExpiryHours <= 0 {
		s.MaxExpiryHours = 24 * 30
	}
	if s.MaxUsesLimit <= 0 {
		s.MaxUsesLimit = 100
	}
	if s.CleanupCron == "" {
		s.CleanupCron = "*/30 * * * *"
	}
	if s.ClientCacheSize <= 0 {
		s.ClientCacheSize = 1024
	}
	if s.ClientCacheTTLSeconds <= 0 {
		s.ClientCacheTTLSeconds = 30
	}
}
