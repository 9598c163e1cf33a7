package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environments
const (
	Development = "development"
	Production  = "production"
)

// Credential source kinds
const (
	AuthProviderSupabase = "supabase"
	AuthProviderJWT      = "jwt"
)

// Reference backend storage
const (
	StorageMemory   = "memory"
	StorageDynamoDB = "dynamodb"
)

// DevelopmentJWTSecret is the shared secret used when none is configured.
// Validate rejects it in production.
const DevelopmentJWTSecret = "development-secret-change-in-production"

// EnvConfigFile names the variable holding the optional YAML file path
const EnvConfigFile = "THOUGHTGRAPH_CONFIG"

// Config holds all application configuration
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// Graph service client
	APIBaseURL     string        `yaml:"api_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Credentials
	AuthProvider    string `yaml:"auth_provider"`
	SupabaseURL     string `yaml:"supabase_url"`
	SupabaseAnonKey string `yaml:"supabase_anon_key"`
	JWTSecret       string `yaml:"jwt_secret"`
	JWTIssuer       string `yaml:"jwt_issuer"`
	UserID          string `yaml:"user_id"`
	UserEmail       string `yaml:"user_email"`
	SessionFile     string `yaml:"session_file"`

	// Reference backend
	ServerAddress  string   `yaml:"server_address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Storage        string   `yaml:"storage"`

	// AWS, used when Storage is dynamodb
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
	EnableTracing bool `yaml:"enable_tracing"`
	EnableXRay    bool `yaml:"enable_xray"`

	// OTLPEndpoint is the host:port of the OTLP gRPC collector spans go to
	// when EnableTracing is set
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Environment:    Development,
		LogLevel:       "info",
		APIBaseURL:     "http://localhost:8080",
		RequestTimeout: 30 * time.Second,
		AuthProvider:   AuthProviderJWT,
		JWTSecret:      DevelopmentJWTSecret,
		JWTIssuer:      "thoughtgraph",
		UserID:         "local-user",
		ServerAddress:  ":8080",
		AllowedOrigins: []string{"http://localhost:3000"},
		Storage:        StorageMemory,
		AWSRegion:      "us-east-1",
		DynamoDBTable:  "thoughtgraph",
		EnableMetrics:  true,
	}
}

// LoadConfig loads configuration from the file named by THOUGHTGRAPH_CONFIG,
// if any, and environment variables
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load builds the configuration in three layers: defaults, then the YAML
// file at path (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.APIBaseURL = getEnv("API_BASE_URL", c.APIBaseURL)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)

	c.AuthProvider = getEnv("AUTH_PROVIDER", c.AuthProvider)
	c.SupabaseURL = getEnv("SUPABASE_URL", c.SupabaseURL)
	c.SupabaseAnonKey = getEnv("SUPABASE_ANON_KEY", c.SupabaseAnonKey)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.UserID = getEnv("THOUGHTGRAPH_USER_ID", c.UserID)
	c.UserEmail = getEnv("THOUGHTGRAPH_USER_EMAIL", c.UserEmail)
	c.SessionFile = getEnv("THOUGHTGRAPH_SESSION_FILE", c.SessionFile)

	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		c.AllowedOrigins = splitList(origins)
	}
	c.Storage = getEnv("STORAGE_BACKEND", c.Storage)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.DynamoDBEndpoint)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableXRay = getEnvBool("ENABLE_XRAY", c.EnableXRay)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}

	switch c.AuthProvider {
	case AuthProviderSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase provider"))
		}
	case AuthProviderJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for the jwt provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_PROVIDER must be %q or %q, got %q", AuthProviderSupabase, AuthProviderJWT, c.AuthProvider))
	}

	switch c.Storage {
	case StorageMemory:
	case StorageDynamoDB:
		if c.DynamoDBTable == "" || c.AWSRegion == "" {
			errs = append(errs, errors.New("TABLE_NAME and AWS_REGION are required for dynamodb storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageMemory, StorageDynamoDB, c.Storage))
	}

	if c.EnableTracing && c.OTLPEndpoint == "" {
		errs = append(errs, errors.New("OTLP_ENDPOINT is required when ENABLE_TRACING is set"))
	}

	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DevelopmentJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}

	return errors.Join(errs...)
}

// SessionPath returns where the CLI keeps the identity provider's refresh
// token: SessionFile when set, a file in the user config directory otherwise.
func (c *Config) SessionPath() (string, error) {
	if c.SessionFile != "" {
		return c.SessionFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "thoughtgraph", "session"), nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration accepts Go durations ("30s") or whole seconds ("30")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
