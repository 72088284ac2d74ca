// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DATABASE_REDIS_ADDRESS
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored if not present
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root, so the
// daemon and tests can run from different directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "recipehub-notifier"
	}
	if cfg.Queue.Stream == "" {
		cfg.Queue.Stream = "notifications"
	}
	if cfg.Queue.Group == "" {
		cfg.Queue.Group = "notifier"
	}
	if cfg.Queue.Consumer == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "notifier-1"
		}
		cfg.Queue.Consumer = host
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.BlockMillis <= 0 {
		cfg.Queue.BlockMillis = 5000
	}
	if cfg.Queue.ReclaimIdleMillis <= 0 {
		cfg.Queue.ReclaimIdleMillis = 30000
	}
	if cfg.Queue.ReclaimIntervalMillis <= 0 {
		cfg.Queue.ReclaimIntervalMillis = 10000
	}
	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = 5
	}
	if cfg.Database.Mongo.URI == "" {
		cfg.Database.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Database.Mongo.Database == "" {
		cfg.Database.Mongo.Database = "recipehub"
	}
	if cfg.Database.Mongo.ConnectTimeout <= 0 {
		cfg.Database.Mongo.ConnectTimeout = 10000
	}
	if cfg.Database.Mongo.MaxPoolSize <= 0 {
		cfg.Database.Mongo.MaxPoolSize = 20
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if cfg.Realtime.SendTimeoutMillis <= 0 {
		cfg.Realtime.SendTimeoutMillis = 2000
	}
	if cfg.Realtime.MaxMessageBytes <= 0 {
		cfg.Realtime.MaxMessageBytes = 4096
	}
	if cfg.Realtime.PingIntervalSecs <= 0 {
		cfg.Realtime.PingIntervalSecs = 30
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8085"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if s := os.Getenv("JWT_SECRET"); s != "" {
		cfg.Auth.JWTSecret = s
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set JWT_SECRET)")
	}
	if cfg.Email.Enabled {
		if cfg.Email.FromEmail == "" {
			return fmt.Errorf("email.from_email is required when email is enabled")
		}
		if cfg.Email.AWSRegion == "" {
			return fmt.Errorf("email.aws_region is required when email is enabled")
		}
	}
	return nil
}
