package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskhub/taskhub/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"-"`
	Auth          AuthConfig          `yaml:"auth"`
	CORS          CORSConfig          `yaml:"cors"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`

	// StorageFile mirrors storage.Config for YAML parsing
	StorageFile StorageFileConfig `yaml:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Ops server (health + metrics, separate port for probes)
	OpsPort string `yaml:"ops_port"`
}

// AuthConfig holds token signing and password hashing settings
type AuthConfig struct {
	SecretKey  string        `yaml:"secret_key"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// CORSConfig holds the allowed cross-origin request origins
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds rate limiter settings
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	WindowDuration    time.Duration `yaml:"window_duration"`
	// RedisURL switches to the distributed limiter when set
	RedisURL string `yaml:"redis_url"`
}

// ObservabilityConfig holds logging and tracing settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// StorageFileConfig is the YAML shape of the storage section
type StorageFileConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresURL string `yaml:"postgres_url"`
}

// parseYAMLDuration parses a Go duration string into dest, leaving dest
// untouched when the value is absent
func parseYAMLDuration(val string, dest *time.Duration) error {
	if val == "" {
		return nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", val, err)
	}
	*dest = parsed
	return nil
}

// UnmarshalYAML accepts Go duration strings ("15s", "1h") for the timeout
// fields, which yaml.v3 does not decode into time.Duration on its own.
// Absent fields keep their current (default) values.
func (s *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		IdleTimeout     string `yaml:"idle_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		OpsPort         string `yaml:"ops_port"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Host != "" {
		s.Host = raw.Host
	}
	if raw.Port != "" {
		s.Port = raw.Port
	}
	if raw.OpsPort != "" {
		s.OpsPort = raw.OpsPort
	}
	for _, d := range []struct {
		val  string
		dest *time.Duration
	}{
		{raw.ReadTimeout, &s.ReadTimeout},
		{raw.WriteTimeout, &s.WriteTimeout},
		{raw.IdleTimeout, &s.IdleTimeout},
		{raw.ShutdownTimeout, &s.ShutdownTimeout},
	} {
		if err := parseYAMLDuration(d.val, d.dest); err != nil {
			return err
		}
	}
	return nil
}

func (a *AuthConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SecretKey  string `yaml:"secret_key"`
		TokenTTL   string `yaml:"token_ttl"`
		BcryptCost *int   `yaml:"bcrypt_cost"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.SecretKey != "" {
		a.SecretKey = raw.SecretKey
	}
	if raw.BcryptCost != nil {
		a.BcryptCost = *raw.BcryptCost
	}
	return parseYAMLDuration(raw.TokenTTL, &a.TokenTTL)
}

func (r *RateLimitConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Enabled           *bool  `yaml:"enabled"`
		RequestsPerWindow *int   `yaml:"requests_per_window"`
		WindowDuration    string `yaml:"window_duration"`
		RedisURL          string `yaml:"redis_url"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Enabled != nil {
		r.Enabled = *raw.Enabled
	}
	if raw.RequestsPerWindow != nil {
		r.RequestsPerWindow = *raw.RequestsPerWindow
	}
	if raw.RedisURL != "" {
		r.RedisURL = raw.RedisURL
	}
	return parseYAMLDuration(raw.WindowDuration, &r.WindowDuration)
}

// Defaults returns the built-in configuration, matching a local development
// setup: embedded SQLite, permissive CORS, rate limiting on.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			OpsPort:         "9090",
		},
		Storage: storage.DefaultConfig(),
		Auth: AuthConfig{
			// Development fallback; override in any real deployment
			SecretKey:  "change-this-secret-key-in-production",
			TokenTTL:   30 * time.Minute,
			BcryptCost: 0, // selects the bcrypt default
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:8000"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 100,
			WindowDuration:    time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			OTelServiceName:    "taskhub-api",
			OTelServiceVersion: "dev",
			OTelInsecure:       true,
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file at
// path (when non-empty), then environment variable overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.applyFileStorage()
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFileStorage() {
	if c.StorageFile.Driver != "" {
		c.Storage.Driver = c.StorageFile.Driver
	}
	if c.StorageFile.SQLitePath != "" {
		c.Storage.SQLitePath = c.StorageFile.SQLitePath
	}
	if c.StorageFile.PostgresURL != "" {
		c.Storage.PostgresURL = c.StorageFile.PostgresURL
	}
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("TASKHUB_HOST", c.Server.Host)
	c.Server.Port = getEnv("TASKHUB_PORT", c.Server.Port)
	c.Server.OpsPort = getEnv("TASKHUB_OPS_PORT", c.Server.OpsPort)
	c.Server.ReadTimeout = getEnvDuration("TASKHUB_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("TASKHUB_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("TASKHUB_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("TASKHUB_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Storage.Driver = getEnv("TASKHUB_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.SQLitePath = getEnv("TASKHUB_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.PostgresURL = getEnv("TASKHUB_POSTGRES_URL", c.Storage.PostgresURL)
	c.Storage.PostgresMaxConns = getEnvInt("TASKHUB_POSTGRES_MAX_CONNS", c.Storage.PostgresMaxConns)
	c.Storage.PostgresMinConns = getEnvInt("TASKHUB_POSTGRES_MIN_CONNS", c.Storage.PostgresMinConns)

	c.Auth.SecretKey = getEnv("TASKHUB_SECRET_KEY", c.Auth.SecretKey)
	c.Auth.TokenTTL = getEnvDuration("TASKHUB_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.BcryptCost = getEnvInt("TASKHUB_BCRYPT_COST", c.Auth.BcryptCost)

	if origins := getEnv("TASKHUB_ALLOWED_ORIGINS", ""); origins != "" {
		parts := strings.Split(origins, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		c.CORS.AllowedOrigins = parts
	}

	c.RateLimit.Enabled = getEnvBool("TASKHUB_RATELIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RequestsPerWindow = getEnvInt("TASKHUB_RATELIMIT_REQUESTS", c.RateLimit.RequestsPerWindow)
	c.RateLimit.WindowDuration = getEnvDuration("TASKHUB_RATELIMIT_WINDOW", c.RateLimit.WindowDuration)
	c.RateLimit.RedisURL = getEnv("TASKHUB_REDIS_URL", c.RateLimit.RedisURL)

	c.Observability.LogLevel = getEnv("TASKHUB_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.OTelEnabled = getEnvBool("TASKHUB_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("TASKHUB_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("TASKHUB_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("TASKHUB_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth secret key must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.BcryptCost < 0 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost out of range: %d", c.Auth.BcryptCost)
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path must not be empty")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL must not be empty")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.Observability.OTelEnabled && c.Observability.OTelEndpoint == "" {
		return fmt.Errorf("otel endpoint must be set when tracing is enabled")
	}

	return nil
}

// Environment variable helpers

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
