// Package config provides environment-based configuration management
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// RedisConfig holds Redis connection parameters
type RedisConfig struct {
	Addr string // Format: host:port
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Port int
}

// LegacyMetaConfig holds the pre-migration Meta Cloud API credentials.
// Consulted only as the last resolution fallback when no channel records
// resolve; scheduled for removal once all traffic uses the channel registry.
type LegacyMetaConfig struct {
	AccessToken   string
	PhoneNumberID string
}

// IsSet reports whether both legacy credentials are configured
func (c *LegacyMetaConfig) IsSet() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// AMQPConfig holds the delivery-event broker settings.
// Event publishing is disabled when URL is empty.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// Config aggregates all configuration sections
type Config struct {
	DB         DBConfig
	Redis      RedisConfig
	App        AppConfig
	LegacyMeta LegacyMetaConfig
	AMQP       AMQPConfig
}

// LoadConfig reads configuration from environment variables
// Returns error if critical variables are missing
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// Database Configuration
	cfg.DB.Host = getEnv("DB_HOST", "dealerchat_db")
	cfg.DB.Port = getEnvAsInt("DB_PORT", 3306)
	cfg.DB.User = getEnv("DB_USER", "root")
	cfg.DB.Password = getEnv("DB_PASS", "")
	cfg.DB.Database = getEnv("DB_NAME", "dealerchat")

	// Validate critical DB password
	if cfg.DB.Password == "" {
		return nil, fmt.Errorf("DB_PASS environment variable is required")
	}

	// Redis Configuration
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "dealerchat_redis:6379")

	// Application Configuration
	cfg.App.Port = getEnvAsInt("APP_PORT", 8080)

	// Legacy Meta credentials (optional, backward compatibility only)
	cfg.LegacyMeta.AccessToken = getEnv("WHATSAPP_ACCESS_TOKEN", "")
	cfg.LegacyMeta.PhoneNumberID = getEnv("WHATSAPP_PHONE_NUMBER_ID", "")

	// Delivery event broker (optional)
	cfg.AMQP.URL = getEnv("AMQP_URL", "")
	cfg.AMQP.Exchange = getEnv("AMQP_EXCHANGE", "dealerchat.events")

	return cfg, nil
}

// GetDSN returns MariaDB connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// getEnv reads environment variable with fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads environment variable as integer with fallback default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
