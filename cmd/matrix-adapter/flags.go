package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// CLIConfig holds command-line configuration. Empty strings and a
// negative port mean "not given": the config file value stands.
type CLIConfig struct {
	Name        string
	URL         string
	Token       string
	ConfigPath  string
	SUTEndpoint string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.Name, "name",
		getEnv("MATRIX_NAME", ""),
		"Adapter name suffix, announced as Matrix@<name>; defaults to the hostname (env: MATRIX_NAME)")

	flag.StringVar(&cfg.Name, "n",
		getEnv("MATRIX_NAME", ""),
		"Short for -name")

	flag.StringVar(&cfg.URL, "url",
		getEnv("MATRIX_BROKER_URL", ""),
		"Broker URL, ws(s):// or nats:// (env: MATRIX_BROKER_URL)")

	flag.StringVar(&cfg.URL, "u",
		getEnv("MATRIX_BROKER_URL", ""),
		"Short for -url")

	flag.StringVar(&cfg.Token, "token",
		getEnv("MATRIX_BROKER_TOKEN", ""),
		"Broker authentication token (env: MATRIX_BROKER_TOKEN)")

	flag.StringVar(&cfg.Token, "t",
		getEnv("MATRIX_BROKER_TOKEN", ""),
		"Short for -token")

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("MATRIX_CONFIG", ""),
		"Path to a JSON or YAML configuration file (env: MATRIX_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("MATRIX_CONFIG", ""),
		"Short for -config")

	flag.StringVar(&cfg.SUTEndpoint, "sut",
		getEnv("MATRIX_SUT_ENDPOINT", ""),
		"SmartDoor endpoint offered in the announcement (env: MATRIX_SUT_ENDPOINT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MATRIX_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: MATRIX_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MATRIX_LOG_FORMAT", ""),
		"Log format: json, text (env: MATRIX_LOG_FORMAT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("MATRIX_METRICS_PORT", -1),
		"Metrics/health server port, 0 to disable (env: MATRIX_METRICS_PORT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp
	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.LogLevel != "" && !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if cfg.LogFormat != "" && !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - AMP adapter for the SmartDoor SUT

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Connect to AMP with a token
  %s --url=wss://course.axini.com:443/adapters --token=<token>

  # Run against a local SmartDoor with debug logging
  %s --url=ws://localhost:8765 --token=dev --sut=ws://localhost:3001 --log-level=debug --log-format=text

  # Run with a config file and environment variables
  export MATRIX_CONFIG=/etc/matrix-adapter/config.yaml
  export MATRIX_BROKER_TOKEN=<token>
  %s

  # Validate configuration only
  %s --config=/etc/matrix-adapter/config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
