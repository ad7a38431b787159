package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/larsvanarragon/axini-matrix-skeleton/broker"
	errs "github.com/larsvanarragon/axini-matrix-skeleton/errors"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/security"
)

// Config is the full adapter configuration. Files carry it as JSON or
// YAML; environment variables and command-line flags override file
// values after loading.
type Config struct {
	// Name is the adapter identity suffix. The broker sees the adapter
	// as "Matrix@<name>"; an empty name falls back to the hostname.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Broker configures the connection to AMP.
	Broker broker.Config `json:"broker" yaml:"broker"`

	SUT     SUTConfig     `json:"sut,omitempty" yaml:"sut,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`

	// Security configures TLS for the surfaces this process serves,
	// currently the metrics/health endpoint. Client TLS toward the
	// broker lives under Broker.TLS.
	Security security.Config `json:"security,omitempty" yaml:"security,omitempty"`
}

// SUTConfig locates the system under test.
type SUTConfig struct {
	// Endpoint overrides the default SmartDoor URL offered to AMP in
	// the announcement. AMP may still send a different one back in the
	// session configuration.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// MetricsConfig configures the metrics/health HTTP server.
type MetricsConfig struct {
	// Port 0 disables the server.
	Port int    `json:"port" yaml:"port"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig selects log verbosity and output encoding. Level is one
// of debug, info, warn or error; Format is text or json.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given. Broker
// URL and token have no defaults: they must come from a file, the
// environment, or flags.
func Default() *Config {
	return &Config{
		Broker: broker.DefaultConfig(),
		Metrics: MetricsConfig{
			Port: 8080,
			Path: "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration and normalizes enum-like fields to
// lowercase. Errors satisfy errors.Is against ErrMissingConfig or
// ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.validateBroker(); err != nil {
		return err
	}

	if c.SUT.Endpoint != "" {
		u, err := url.Parse(c.SUT.Endpoint)
		if err != nil {
			return fmt.Errorf("%w: sut.endpoint: %v", errs.ErrInvalidConfig, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("%w: sut.endpoint must be a ws:// or wss:// URL, got %q",
				errs.ErrInvalidConfig, c.SUT.Endpoint)
		}
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("%w: metrics.port %d out of range", errs.ErrInvalidConfig, c.Metrics.Port)
	}
	if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /", errs.ErrInvalidConfig)
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q (must be debug, info, warn or error)",
			errs.ErrInvalidConfig, c.Logging.Level)
	}

	c.Logging.Format = strings.ToLower(c.Logging.Format)
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q (must be text or json)",
			errs.ErrInvalidConfig, c.Logging.Format)
	}

	if err := validateServerTLS(c.Security.TLS.Server); err != nil {
		return fmt.Errorf("security.tls.server: %w", err)
	}
	if err := validateClientTLS(c.Broker.TLS); err != nil {
		return fmt.Errorf("broker.tls: %w", err)
	}

	return nil
}

// validateBroker checks the broker section. The URL scheme must match a
// transport the adapter can actually build.
func (c *Config) validateBroker() error {
	if c.Broker.URL == "" {
		return fmt.Errorf("%w: broker.url is required", errs.ErrMissingConfig)
	}

	u, err := url.Parse(c.Broker.URL)
	if err != nil {
		return fmt.Errorf("%w: broker.url: %v", errs.ErrInvalidConfig, err)
	}
	switch u.Scheme {
	case "ws", "wss":
		if c.Broker.Token == "" {
			return fmt.Errorf("%w: broker.token is required for WebSocket brokers",
				errs.ErrMissingConfig)
		}
	case "nats":
	default:
		return fmt.Errorf("%w: broker.url scheme %q (must be ws, wss or nats)",
			errs.ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: broker.url has no host", errs.ErrInvalidConfig)
	}

	if c.Broker.Reconnect.Multiplier != 0 && c.Broker.Reconnect.Multiplier < 1 {
		return fmt.Errorf("%w: broker.reconnect.multiplier must be >= 1", errs.ErrInvalidConfig)
	}

	return nil
}

func validateServerTLS(cfg security.ServerTLSConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.CertFile == "" {
		return fmt.Errorf("%w: cert_file is required when TLS is enabled", errs.ErrMissingConfig)
	}
	if cfg.KeyFile == "" {
		return fmt.Errorf("%w: key_file is required when TLS is enabled", errs.ErrMissingConfig)
	}
	if _, err := os.Stat(cfg.CertFile); err != nil {
		return fmt.Errorf("%w: cert_file: %v", errs.ErrInvalidConfig, err)
	}
	if _, err := os.Stat(cfg.KeyFile); err != nil {
		return fmt.Errorf("%w: key_file: %v", errs.ErrInvalidConfig, err)
	}
	if cfg.MinVersion != "" {
		if err := validateTLSVersion(cfg.MinVersion); err != nil {
			return err
		}
	}
	return nil
}

func validateClientTLS(cfg security.ClientTLSConfig) error {
	for i, caFile := range cfg.CAFiles {
		if _, err := os.Stat(caFile); err != nil {
			return fmt.Errorf("%w: ca_files[%d]: %v", errs.ErrInvalidConfig, i, err)
		}
	}
	if cfg.InsecureSkipVerify {
		_, _ = fmt.Fprintln(os.Stderr,
			"WARNING: TLS certificate verification is disabled (insecure_skip_verify=true). Use for development only.")
	}
	if cfg.MinVersion != "" {
		if err := validateTLSVersion(cfg.MinVersion); err != nil {
			return err
		}
	}
	if cfg.MTLS.Enabled {
		if cfg.MTLS.CertFile == "" || cfg.MTLS.KeyFile == "" {
			return fmt.Errorf("%w: mtls requires cert_file and key_file", errs.ErrMissingConfig)
		}
	}
	return nil
}

func validateTLSVersion(version string) error {
	switch version {
	case "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("%w: TLS version %q (must be \"1.2\" or \"1.3\")",
			errs.ErrInvalidConfig, version)
	}
}

// Clone returns a deep copy via a JSON round trip, falling back to a
// shallow copy when marshaling fails.
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		clone := *c
		return &clone
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		shallow := *c
		return &shallow
	}
	return &clone
}

// String renders the configuration as indented JSON with the broker
// token redacted, safe for startup logging.
func (c *Config) String() string {
	clone := c.Clone()
	if clone.Broker.Token != "" {
		clone.Broker.Token = "[redacted]"
	}
	data, _ := json.MarshalIndent(clone, "", "  ")
	return string(data)
}
