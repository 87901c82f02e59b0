package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Relay    RelayConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds the payment gateway endpoints and timeouts. The
// gateway exposes two base URLs: the purchase API and the app API the
// customer and session calls go through.
type GatewayConfig struct {
	APIBaseURL string
	AppBaseURL string
	// CallbackURL is this bridge's own webhook endpoint, registered
	// with the gateway on every purchase and session.
	CallbackURL string
	Timeout     int // request timeout in seconds
}

// RelayConfig holds the webhook relay configuration
type RelayConfig struct {
	// BusinessURL is the relying party's base URL for callback delivery
	BusinessURL string
	// DefaultPublicKey is the base64 gateway verification key used for
	// mappings stored without a per-tenant key. May be empty.
	DefaultPublicKey string
	DeliveryTimeout  int // seconds
}

// SecretsConfig selects where the callback signing key comes from
type SecretsConfig struct {
	// Backend is one of: env, aws, vault
	Backend string
	// SignKeyName is the secret name (aws, vault) or the environment
	// variable (env) holding the 32-byte callback signing key.
	SignKeyName string
	// VaultMount is the KV v2 mount path for the vault backend
	VaultMount string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "gateway_bridge"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			APIBaseURL:  getEnv("GATEWAY_API_BASE_URL", ""),
			AppBaseURL:  getEnv("GATEWAY_APP_BASE_URL", ""),
			CallbackURL: getEnv("GATEWAY_CALLBACK_URL", ""),
			Timeout:     getEnvAsInt("GATEWAY_TIMEOUT", 30),
		},
		Relay: RelayConfig{
			BusinessURL:      getEnv("BUSINESS_URL", ""),
			DefaultPublicKey: getEnv("GATEWAY_PUBLIC_KEY", ""),
			DeliveryTimeout:  getEnvAsInt("DELIVERY_TIMEOUT", 10),
		},
		Secrets: SecretsConfig{
			Backend:     getEnv("SECRETS_BACKEND", "env"),
			SignKeyName: getEnv("SIGN_KEY_NAME", "SIGN_KEY"),
			VaultMount:  getEnv("VAULT_MOUNT", "secret"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Gateway.APIBaseURL == "" {
		return nil, fmt.Errorf("GATEWAY_API_BASE_URL is required")
	}
	if cfg.Gateway.AppBaseURL == "" {
		return nil, fmt.Errorf("GATEWAY_APP_BASE_URL is required")
	}
	if cfg.Gateway.CallbackURL == "" {
		return nil, fmt.Errorf("GATEWAY_CALLBACK_URL is required")
	}
	if cfg.Relay.BusinessURL == "" {
		return nil, fmt.Errorf("BUSINESS_URL is required")
	}
	switch cfg.Secrets.Backend {
	case "env", "aws", "vault":
	default:
		return nil, fmt.Errorf("SECRETS_BACKEND must be one of env, aws, vault")
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
