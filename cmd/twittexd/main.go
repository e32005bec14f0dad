// Package main implements twittexd, a daemon that consumes the Twitter
// streaming API and republishes tweets onto NATS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/almightycouch/twittex/auth"
	"github.com/almightycouch/twittex/bridge"
	"github.com/almightycouch/twittex/config"
	"github.com/almightycouch/twittex/metric"
	"github.com/almightycouch/twittex/natsclient"
	"github.com/almightycouch/twittex/stream"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "twittexd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
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

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI flags override the file for log settings.
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if cliCfg.LogLevel != "" {
		level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		format = cliCfg.LogFormat
	}
	logger := setupLogger(level, format)
	slog.SetDefault(logger)

	slog.Info("Starting twittexd",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	registry := metric.NewMetricsRegistry()

	natsClient, err := connectNATS(signalCtx, cfg, logger, registry)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	firehose, err := buildBridge(cfg, logger, registry, natsClient)
	if err != nil {
		return err
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer metricsServer.Stop(5 * time.Second)
		slog.Info("Metrics server started", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
	}

	if err := firehose.Start(signalCtx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	slog.Info("Bridge started",
		"subject", cfg.Bridge.Subject,
		"window", cfg.Bridge.Window,
		"track", cfg.Twitter.Track)

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-firehose.Done():
			// No reconnect policy: a terminal stream failure ends the daemon.
			if err := firehose.Err(); err != nil {
				return fmt.Errorf("stream terminated: %w", err)
			}
			return nil
		}
	})

	runErr := g.Wait()

	slog.Info("Shutting down", "timeout", cliCfg.ShutdownTimeout)
	if err := firehose.Stop(cliCfg.ShutdownTimeout); err != nil {
		slog.Error("Bridge shutdown failed", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("Shutdown complete")
	return nil
}

// connectNATS creates the managed NATS client and waits for the connection.
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
) (*natsclient.Client, error) {
	slog.Info("Connecting to NATS", "url", cfg.NATS.URL)

	natsClient, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithLogger(&natsLogger{logger: logger}),
		natsclient.WithMetrics(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	return natsClient, nil
}

// buildBridge wires credentials, the streaming transport and the republisher.
func buildBridge(
	cfg *config.Config,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
	publisher bridge.Publisher,
) (*bridge.Bridge, error) {
	session := auth.Session{
		ConsumerKey:    cfg.Twitter.ConsumerKey,
		ConsumerSecret: cfg.Twitter.ConsumerSecret,
		Token:          cfg.Twitter.Token,
		TokenSecret:    cfg.Twitter.TokenSecret,
	}
	signer, err := session.OAuth1()
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	params := url.Values{}
	if cfg.Twitter.Track != "" {
		params.Set("track", cfg.Twitter.Track)
	}

	transport, err := stream.NewHTTPTransport(stream.HTTPConfig{
		Method:    "POST",
		URL:       cfg.Twitter.StreamURL,
		Params:    params,
		Requester: signer,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream transport: %w", err)
	}

	firehose, err := bridge.New(
		bridge.Config{
			Subject: cfg.Bridge.Subject,
			Window:  cfg.Bridge.Window,
			Name:    "firehose-bridge",
		},
		transport,
		publisher,
		bridge.WithLogger(logger),
		bridge.WithMetrics(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create bridge: %w", err)
	}

	if err := firehose.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize bridge: %w", err)
	}
	return firehose, nil
}
