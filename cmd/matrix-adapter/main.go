// Package main implements the Matrix adapter binary. It connects the
// Axini Modeling Platform to the SmartDoor system under test: on connect
// it announces the SmartDoor label catalogue, then relays stimuli from
// the platform to the door and responses back for the duration of each
// test session.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/larsvanarragon/axini-matrix-skeleton/adapter"
	"github.com/larsvanarragon/axini-matrix-skeleton/broker"
	"github.com/larsvanarragon/axini-matrix-skeleton/config"
	"github.com/larsvanarragon/axini-matrix-skeleton/health"
	"github.com/larsvanarragon/axini-matrix-skeleton/metric"
	"github.com/larsvanarragon/axini-matrix-skeleton/sut/smartdoor"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "matrix-adapter"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Adapter failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	// Bootstrap logger from flags; rebuilt once the file config is known.
	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger = setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	identity := adapterIdentity(cfg)
	slog.Info("Starting Matrix adapter",
		"version", Version,
		"build_time", BuildTime,
		"adapter", identity,
		"broker_url", cfg.Broker.URL)

	return runAdapter(cfg, identity, logger)
}

// loadConfiguration layers the file, environment and flags, then
// validates the result.
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyFlagOverrides(cfg, cliCfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyFlagOverrides writes explicitly given flags over the loaded
// configuration. Flags beat both the file and the environment.
func applyFlagOverrides(cfg *config.Config, cliCfg *CLIConfig) {
	if cliCfg.Name != "" {
		cfg.Name = cliCfg.Name
	}
	if cliCfg.URL != "" {
		cfg.Broker.URL = cliCfg.URL
	}
	if cliCfg.Token != "" {
		cfg.Broker.Token = cliCfg.Token
	}
	if cliCfg.SUTEndpoint != "" {
		cfg.SUT.Endpoint = cliCfg.SUTEndpoint
	}
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	if cliCfg.MetricsPort >= 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}
}

// adapterIdentity builds the name announced to AMP, "Matrix@<suffix>",
// defaulting the suffix to the hostname.
func adapterIdentity(cfg *config.Config) string {
	name := cfg.Name
	if name == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "unknown"
		}
		name = host
	}
	return "Matrix@" + name
}

// runAdapter wires the metrics registry, health monitor, broker
// connection, SmartDoor handler and adapter core, then runs until a
// shutdown signal or a metrics server failure.
func runAdapter(cfg *config.Config, identity string, logger *slog.Logger) error {
	registry := metric.NewMetricsRegistry()
	healthMonitor := health.NewMonitor()

	brokerCfg := cfg.Broker
	brokerCfg.Name = identity
	conn, err := broker.NewConnection(brokerCfg, logger, registry)
	if err != nil {
		return fmt.Errorf("create broker connection: %w", err)
	}

	handler := smartdoor.NewHandler(logger, smartdoor.WithMetrics(registry.CoreMetrics()))
	handler.SetDefaultEndpoint(cfg.SUT.Endpoint)

	core, err := adapter.New(adapter.Deps{
		Name:       identity,
		Connection: conn,
		Handler:    handler,
		Logger:     logger,
		Registry:   registry,
		Health:     healthMonitor,
	})
	if err != nil {
		return fmt.Errorf("create adapter core: %w", err)
	}

	if err := core.Initialize(); err != nil {
		return fmt.Errorf("initialize adapter core: %w", err)
	}

	signalCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	group, groupCtx := errgroup.WithContext(context.Background())

	var metricsServer *metric.Server
	if cfg.Metrics.Port > 0 {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry, cfg.Security)
		metricsServer.SetHealthHandler(healthMonitor.Handler(appName))
		group.Go(func() error {
			slog.Info("Metrics server listening", "address", metricsServer.Address())
			if err := metricsServer.Start(); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	// The core gets a background context: shutdown goes through Stop so
	// queued work drains instead of being cut off by cancellation.
	if err := core.Start(context.Background()); err != nil {
		return fmt.Errorf("start adapter core: %w", err)
	}

	slog.Info("Matrix adapter started", "adapter", identity)

	select {
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	case <-groupCtx.Done():
		slog.Error("Metrics server failed, shutting down")
	}

	if err := core.Stop(shutdownTimeout); err != nil {
		slog.Error("Adapter stop failed", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			slog.Warn("Metrics server stop failed", "error", err)
		}
	}

	if err := group.Wait(); err != nil {
		return err
	}

	slog.Info("Matrix adapter shutdown complete")
	return nil
}
