// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Email    EmailConfig    `mapstructure:"email"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// QueueConfig holds settings for the notification job queue consumer.
type QueueConfig struct {
	Stream      string `mapstructure:"stream"`
	Group       string `mapstructure:"group"`
	Consumer    string `mapstructure:"consumer"`
	Workers     int    `mapstructure:"workers"`
	BlockMillis int    `mapstructure:"block_millis"`
	// Pending entries idle longer than this are reclaimed for redelivery.
	ReclaimIdleMillis     int `mapstructure:"reclaim_idle_millis"`
	ReclaimIntervalMillis int `mapstructure:"reclaim_interval_millis"`
	MaxAttempts           int `mapstructure:"max_attempts"`
}

type DatabaseConfig struct {
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type MongoConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	ConnectTimeout int    `mapstructure:"connect_timeout"` // milliseconds
	MaxPoolSize    int    `mapstructure:"max_pool_size"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AuthConfig holds settings for websocket handshake verification.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RealtimeConfig holds settings for live websocket delivery.
type RealtimeConfig struct {
	SendTimeoutMillis int   `mapstructure:"send_timeout_millis"`
	MaxMessageBytes   int64 `mapstructure:"max_message_bytes"`
	PingIntervalSecs  int   `mapstructure:"ping_interval_secs"`
}

// EmailConfig holds settings for the price-alert email channel.
type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	FromEmail string `mapstructure:"from_email"`
	AWSRegion string `mapstructure:"aws_region"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
