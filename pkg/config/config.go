// Package config provides configuration management for apigate
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvBaseURL is the environment variable consulted when no base URL is
// configured explicitly.
const EnvBaseURL = "API_BASE_URL"

// Config holds the complete configuration for an apigate client
type Config struct {
	// Client configuration
	Client ClientConfig `yaml:"client" json:"client"`

	// Auth configuration
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Monitoring configuration
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
}

// ClientConfig holds the gateway's transport-facing configuration
type ClientConfig struct {
	// BaseURL is the API root every endpoint is resolved against.
	// Trailing slashes are stripped during validation.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// Timeout applies to every request unless overridden per call.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// VerifyTLS controls certificate verification. Disabling it is
	// only appropriate against development endpoints.
	VerifyTLS bool `yaml:"verify_tls" json:"verify_tls"`

	// Headers are merged over the built-in defaults and sent on every
	// request. Caller values win on key collision.
	Headers map[string]string `yaml:"headers" json:"headers"`

	// UserAgent is sent as the User-Agent header when set.
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// AuthConfig holds credential configuration
type AuthConfig struct {
	// Type selects the credential source: "none", "bearer" or "jwt".
	Type string `yaml:"type" json:"type"`

	// Token is the static bearer credential for type "bearer".
	Token string `yaml:"token" json:"token"`

	// JWT configures the self-minting token source for type "jwt".
	JWT JWTConfig `yaml:"jwt" json:"jwt"`
}

// JWTConfig holds JWT token source configuration
type JWTConfig struct {
	SecretKey      string        `yaml:"secret_key" json:"secret_key"`
	Issuer         string        `yaml:"issuer" json:"issuer"`
	Subject        string        `yaml:"subject" json:"subject"`
	Audience       string        `yaml:"audience" json:"audience"`
	ExpiryDuration time.Duration `yaml:"expiry_duration" json:"expiry_duration"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`

	// FilePath is used when Output is "file".
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MonitoringConfig holds metrics and tracing configuration
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Endpoint     string        `yaml:"endpoint" json:"endpoint"`
	ServiceName  string        `yaml:"service_name" json:"service_name"`
	SampleRate   float64       `yaml:"sample_rate" json:"sample_rate"`
	BatchTimeout time.Duration `yaml:"batch_timeout" json:"batch_timeout"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Timeout:   30 * time.Second,
			VerifyTLS: true,
			Headers:   make(map[string]string),
		},
		Auth: AuthConfig{
			Type: "none",
			JWT: JWTConfig{
				ExpiryDuration: 15 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:   false,
				Namespace: "apigate",
				Subsystem: "client",
			},
			Tracing: TracingConfig{
				Enabled:      false,
				ServiceName:  "apigate",
				SampleRate:   0.1,
				BatchTimeout: 5 * time.Second,
			},
		},
	}
}

// LoadConfig loads configuration from an optional file and environment
// variables. Precedence is environment over file over defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadConfigFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a YAML or JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	switch ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}
}

// loadConfigFromEnv loads configuration from environment variables
func loadConfigFromEnv(config *Config) {
	if val := os.Getenv(EnvBaseURL); val != "" {
		config.Client.BaseURL = val
	}
	if val := os.Getenv("APIGATE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			config.Client.Timeout = d
		}
	}
	if val := os.Getenv("APIGATE_VERIFY_TLS"); val != "" {
		config.Client.VerifyTLS = strings.ToLower(val) != "false"
	}
	if val := os.Getenv("APIGATE_USER_AGENT"); val != "" {
		config.Client.UserAgent = val
	}

	// Auth configuration
	if val := os.Getenv("APIGATE_AUTH_TYPE"); val != "" {
		config.Auth.Type = val
	}
	if val := os.Getenv("APIGATE_AUTH_TOKEN"); val != "" {
		config.Auth.Token = val
	}
	if val := os.Getenv("APIGATE_JWT_SECRET_KEY"); val != "" {
		config.Auth.JWT.SecretKey = val
	}
	if val := os.Getenv("APIGATE_JWT_ISSUER"); val != "" {
		config.Auth.JWT.Issuer = val
	}

	// Logging configuration
	if val := os.Getenv("APIGATE_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("APIGATE_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}

	// Monitoring configuration
	if val := os.Getenv("APIGATE_METRICS_ENABLED"); val != "" {
		config.Monitoring.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("APIGATE_TRACING_ENABLED"); val != "" {
		config.Monitoring.Tracing.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("APIGATE_TRACING_ENDPOINT"); val != "" {
		config.Monitoring.Tracing.Endpoint = val
	}
	if val := os.Getenv("APIGATE_TRACING_SAMPLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			config.Monitoring.Tracing.SampleRate = rate
		}
	}
}

// Validate validates the configuration. The base URL may still be empty
// here; resolving it (explicit value or environment) is the client's
// construction-time responsibility.
func (c *Config) Validate() error {
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s, must be positive", c.Client.Timeout)
	}
	c.Client.BaseURL = strings.TrimRight(c.Client.BaseURL, "/")

	validAuthTypes := []string{"none", "bearer", "jwt"}
	if !contains(validAuthTypes, strings.ToLower(c.Auth.Type)) {
		return fmt.Errorf("invalid auth type: %s, must be one of %v", c.Auth.Type, validAuthTypes)
	}
	if strings.ToLower(c.Auth.Type) == "bearer" && c.Auth.Token == "" {
		return fmt.Errorf("auth token must be specified for bearer auth")
	}
	if strings.ToLower(c.Auth.Type) == "jwt" {
		if c.Auth.JWT.SecretKey == "" {
			return fmt.Errorf("JWT secret key must be specified for jwt auth")
		}
		if c.Auth.JWT.ExpiryDuration <= 0 {
			return fmt.Errorf("invalid JWT expiry duration: %s", c.Auth.JWT.ExpiryDuration)
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", c.Logging.Level, validLogLevels)
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", c.Logging.Format, validLogFormats)
	}

	if c.Monitoring.Tracing.Enabled {
		if c.Monitoring.Tracing.SampleRate < 0 || c.Monitoring.Tracing.SampleRate > 1 {
			return fmt.Errorf("invalid tracing sample rate: %f, must be in [0, 1]", c.Monitoring.Tracing.SampleRate)
		}
	}

	return nil
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// SaveToFile saves the configuration to a file
func (c *Config) SaveToFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
