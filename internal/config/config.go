// ABOUTME: Configuration loading and parsing for infragate
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackmesh/infragate/internal/backend"
)

// Config represents the complete infragate configuration
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Auth     AuthConfig      `yaml:"auth"`
	Database DatabaseConfig  `yaml:"database"`
	Backends []BackendConfig `yaml:"backends"`
	MCP      MCPConfig       `yaml:"mcp"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`

	TokenTTL    time.Duration `yaml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl"`
}

// DatabaseConfig holds the audit database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BackendConfig describes one infrastructure backend the gateway fronts
type BackendConfig struct {
	Kind    string        `yaml:"kind"` // storage, firewall, bmc, hypervisor
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker tuning for one backend
type BreakerConfig struct {
	MaxFailures uint32 `yaml:"max_failures"`

	OpenTimeout    time.Duration `yaml:"-"`
	OpenTimeoutRaw string        `yaml:"open_timeout"`
}

// MCPConfig holds protocol handler configuration
type MCPConfig struct {
	ServerName string `yaml:"server_name"`

	RequestTimeout        time.Duration `yaml:"-"`
	SessionIdleTimeout    time.Duration `yaml:"-"`
	RequestTimeoutRaw     string        `yaml:"request_timeout"`
	SessionIdleTimeoutRaw string        `yaml:"session_idle_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}

	seen := make(map[string]bool, len(c.Backends))
	for i, b := range c.Backends {
		if !backend.Kind(b.Kind).Valid() {
			return fmt.Errorf("backends[%d].kind %q is not one of storage, firewall, bmc, hypervisor", i, b.Kind)
		}
		if seen[b.Kind] {
			return fmt.Errorf("backends[%d]: duplicate backend kind %q", i, b.Kind)
		}
		seen[b.Kind] = true
		if b.BaseURL == "" {
			return fmt.Errorf("backends[%d].base_url is required", i)
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.MCP.RequestTimeoutRaw != "" {
		cfg.MCP.RequestTimeout, err = time.ParseDuration(cfg.MCP.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.MCP.RequestTimeoutRaw, err)
		}
	}

	if cfg.MCP.SessionIdleTimeoutRaw != "" {
		cfg.MCP.SessionIdleTimeout, err = time.ParseDuration(cfg.MCP.SessionIdleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing session_idle_timeout %q: %w", cfg.MCP.SessionIdleTimeoutRaw, err)
		}
	}

	for i := range cfg.Backends {
		raw := cfg.Backends[i].Breaker.OpenTimeoutRaw
		if raw == "" {
			continue
		}
		cfg.Backends[i].Breaker.OpenTimeout, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing backends[%d].breaker.open_timeout %q: %w", i, raw, err)
		}
	}

	return nil
}
