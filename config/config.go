package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// InsecureDefaultPassphrase is used for credential encryption when
// CREDENTIAL_PASSPHRASE is not set. Rejected in production.
const InsecureDefaultPassphrase = "llm-gateway-insecure-default-passphrase"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Providers     ProvidersConfig
	Security      SecurityConfig
	Gateway       GatewayConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ProvidersConfig holds per-vendor transport settings. Credentials are not
// configured here; they live encrypted in the store.
type ProvidersConfig struct {
	OpenAI     VendorConfig
	Anthropic  VendorConfig
	Google     VendorConfig
	Grok       VendorConfig
	OpenRouter VendorConfig
}

// VendorConfig holds transport settings for one vendor
type VendorConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// Referer and Title are sent as attribution headers (OpenRouter only)
	Referer string
	Title   string
}

// SecurityConfig holds secret-handling configuration
type SecurityConfig struct {
	CredentialPassphrase string
}

// GatewayConfig holds chat orchestration settings
type GatewayConfig struct {
	ChatTimeout  time.Duration
	HistoryLimit int
	SeedCatalog  bool
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: loadDatabaseConfig(),
		Providers: ProvidersConfig{
			OpenAI:    loadVendorConfig("OPENAI", "https://api.openai.com/v1"),
			Anthropic: loadVendorConfig("ANTHROPIC", "https://api.anthropic.com"),
			Google:    loadVendorConfig("GOOGLE", "https://generativelanguage.googleapis.com"),
			Grok:      loadVendorConfig("GROK", "https://api.x.ai/v1"),
			OpenRouter: VendorConfig{
				BaseURL:    getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
				Timeout:    getEnvAsDuration("OPENROUTER_TIMEOUT", 60*time.Second),
				MaxRetries: getEnvAsInt("OPENROUTER_MAX_RETRIES", 2),
				Referer:    getEnv("OPENROUTER_REFERER", "http://localhost:5173"),
				Title:      getEnv("OPENROUTER_TITLE", "LLM Gateway"),
			},
		},
		Security: SecurityConfig{
			CredentialPassphrase: getEnv("CREDENTIAL_PASSPHRASE", ""),
		},
		Gateway: GatewayConfig{
			ChatTimeout:  getEnvAsDuration("GATEWAY_CHAT_TIMEOUT", 90*time.Second),
			HistoryLimit: getEnvAsInt("GATEWAY_HISTORY_LIMIT", 20),
			SeedCatalog:  getEnvAsBool("GATEWAY_SEED_CATALOG", true),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() && !c.Security.HasPassphrase() {
		return fmt.Errorf("credential passphrase is required in production")
	}

	if c.Gateway.ChatTimeout <= 0 {
		return fmt.Errorf("gateway chat timeout must be positive")
	}
	if c.Gateway.HistoryLimit < 0 {
		return fmt.Errorf("gateway history limit cannot be negative")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// HasPassphrase reports whether an explicit credential passphrase was configured
func (s SecurityConfig) HasPassphrase() bool {
	return s.CredentialPassphrase != "" && s.CredentialPassphrase != InsecureDefaultPassphrase
}

// Passphrase returns the configured passphrase or the insecure default
func (s SecurityConfig) Passphrase() string {
	if s.CredentialPassphrase == "" {
		return InsecureDefaultPassphrase
	}
	return s.CredentialPassphrase
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}
	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "gateway")
	pool.Password = getEnv("DB_PASSWORD", "gateway")
	pool.Database = getEnv("DB_NAME", "gateway")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// loadVendorConfig reads <PREFIX>_BASE_URL, <PREFIX>_TIMEOUT and <PREFIX>_MAX_RETRIES
func loadVendorConfig(prefix, defaultBaseURL string) VendorConfig {
	return VendorConfig{
		BaseURL:    getEnv(prefix+"_BASE_URL", defaultBaseURL),
		Timeout:    getEnvAsDuration(prefix+"_TIMEOUT", 60*time.Second),
		MaxRetries: getEnvAsInt(prefix+"_MAX_RETRIES", 2),
	}
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
