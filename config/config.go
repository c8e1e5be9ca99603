package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/expert-gateway/internal/policy"
	"github.com/upb/expert-gateway/utils"
)

// MinSecretBytes is the smallest accepted HMAC secret (HS256 key size)
const MinSecretBytes = 32

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	JWT           JWTConfig
	Access        AccessConfig
	Database      *DatabaseConfig // Optional: when nil, admin access records are kept in memory
	Audit         AuditConfig
	Observability ObservabilityConfig
	Environment   string `validate:"required"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string
	Port               int           `validate:"min=1,max=65535"`
	ReadTimeout        time.Duration `validate:"gt=0"`
	WriteTimeout       time.Duration `validate:"gt=0"`
	ShutdownTimeout    time.Duration `validate:"gt=0"`
	CORSAllowedOrigins []string
	TLS                struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// JWTConfig holds bearer token validation settings
type JWTConfig struct {
	Secret []byte        // Decoded from base64 JWT_SECRET_KEY
	Issuer string        // Optional: when set, tokens must carry this iss
	Leeway time.Duration `validate:"gte=0"`
}

// AccessConfig holds the path prefixes of the access policy
type AccessConfig struct {
	PublicPrefixes []string `validate:"dive,startswith=/"`
	AdminPrefix    string   `validate:"required,startswith=/"`
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	InitSchema       bool
}

// AuditConfig holds admin access auditing settings
type AuditConfig struct {
	BufferSize     int `validate:"min=1"`
	WorkerCount    int `validate:"min=1"`
	MemoryCapacity int `validate:"min=1"`
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"required,oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=json text console"` // json or text
	LogFile        string // Optional rotating file sink
	MetricsEnabled bool
	MetricsHost    string
	MetricsPort    int `validate:"min=1,max=65535"`

	MetricsPushExporter string `validate:"omitempty,oneof=none stdout otlp"` // Optional second exporter next to /metrics

	TracingEnabled   bool
	TracingExporter  string  `validate:"omitempty,oneof=none stdout otlp"`
	TracingSamplePct float64 `validate:"gte=0,lte=1"`
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	secret, err := loadJWTSecret()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getPort(),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		JWT: JWTConfig{
			Secret: secret,
			Issuer: getEnv("JWT_ISSUER", ""),
			Leeway: getEnvAsDuration("JWT_LEEWAY", 0),
		},
		Access: AccessConfig{
			PublicPrefixes: getEnvAsList("AUTH_PUBLIC_PREFIXES", []string{policy.DefaultPublicPrefix}),
			AdminPrefix:    getEnv("AUTH_ADMIN_PREFIX", policy.DefaultAdminPrefix),
		},
		Database: loadDatabaseConfig(),
		Audit: AuditConfig{
			BufferSize:     getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount:    getEnvAsInt("AUDIT_WORKER_COUNT", 2),
			MemoryCapacity: getEnvAsInt("AUDIT_MEMORY_CAPACITY", 1000),
		},
		Observability: ObservabilityConfig{
			LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
			LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
			LogFile:        getEnv("LOG_FILE", ""),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsHost:    getEnv("METRICS_HOST", "0.0.0.0"),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),

			MetricsPushExporter: strings.ToLower(getEnv("METRICS_PUSH_EXPORTER", "none")),

			TracingEnabled:   getEnvAsBool("TRACING_ENABLED", false),
			TracingExporter:  strings.ToLower(getEnv("TRACING_EXPORTER", "none")),
			TracingSamplePct: getEnvAsFloat("TRACING_SAMPLE_PCT", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		if fields := utils.GetValidationFields(err); len(fields) > 0 {
			return fmt.Errorf("%w: %v", err, fields)
		}
		return err
	}

	if len(c.JWT.Secret) < MinSecretBytes {
		return fmt.Errorf("jwt secret must decode to at least %d bytes, got %d", MinSecretBytes, len(c.JWT.Secret))
	}

	if _, err := c.AccessPolicy(); err != nil {
		return fmt.Errorf("invalid access policy: %w", err)
	}

	if c.Observability.MetricsEnabled && c.Observability.MetricsPort == c.Server.Port {
		return fmt.Errorf("metrics port %d must differ from server port", c.Observability.MetricsPort)
	}

	if c.Database != nil && c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() {
		if c.Database == nil {
			return fmt.Errorf("database configuration required in production: set DATABASE_URL or DB_HOST")
		}
		if len(c.Server.CORSAllowedOrigins) == 0 {
			return fmt.Errorf("cors allowed origins are required in production")
		}
	}

	return nil
}

// AccessPolicy builds the immutable access policy described by the config
func (c *Config) AccessPolicy() (policy.AccessPolicy, error) {
	return policy.NewAccessPolicy(c.Access.PublicPrefixes, c.Access.AdminPrefix)
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
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

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddress returns the ops listener address
func (c *ObservabilityConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// loadJWTSecret decodes JWT_SECRET_KEY, which holds the HMAC key in standard base64
func loadJWTSecret() ([]byte, error) {
	encoded := strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	if encoded == "" {
		return nil, errors.New("JWT_SECRET_KEY is required")
	}

	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET_KEY must be base64 encoded: %w", err)
	}
	return secret, nil
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars.
// Returns nil when neither is set.
func loadDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return &DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			InitSchema:       getEnvAsBool("DB_INIT_SCHEMA", true),
		}
	}
	if getEnv("DB_HOST", "") == "" {
		return nil
	}
	return &DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", ""),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", ""),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		InitSchema:      getEnvAsBool("DB_INIT_SCHEMA", true),
	}
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
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

// getEnvAsList splits a comma-separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
