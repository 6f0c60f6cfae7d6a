// Command plantcare runs the plant-care gateway HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/leofalp/plantcare/core/client"
	"github.com/leofalp/plantcare/core/client/middleware"
	"github.com/leofalp/plantcare/internal/config"
	"github.com/leofalp/plantcare/internal/server"
	"github.com/leofalp/plantcare/providers/careguide"
	"github.com/leofalp/plantcare/providers/memory"
	"github.com/leofalp/plantcare/providers/memory/inmemory"
	"github.com/leofalp/plantcare/providers/memory/sqlmemory"
	"github.com/leofalp/plantcare/providers/observability"
	"github.com/leofalp/plantcare/providers/observability/otelobs"
	slogobs "github.com/leofalp/plantcare/providers/observability/slog"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintln(os.Stderr, "plantcare:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := slogobs.NewLogger(os.Stderr, slogobs.ParseLogLevel(cfg.Gateway.LogLevel), cfg.Gateway.LogFormat)
	slog.SetDefault(logger)

	reg, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("provider registry: %w", err)
	}
	for _, name := range reg.Names() {
		descriptor, _ := reg.Lookup(name)
		if !reg.Configured(descriptor) {
			logger.Warn("provider has no credential", "provider", name, "credential_env", descriptor.CredentialEnvKey)
		}
	}

	var observer observability.Provider = slogobs.New(logger)
	if endpoint := cfg.Telemetry.OTLPEndpoint; endpoint != "" {
		tp, err := otelobs.Setup(ctx, endpoint, cfg.Telemetry.ServiceName)
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("trace provider shutdown failed", "error", err)
			}
		}()
		observer = otelobs.New(otelobs.WithTracerProvider(tp), otelobs.WithLogger(logger))
	}

	middlewares := []client.MiddlewareConfig{middleware.NewLoggingMiddleware(logger, middleware.LogLevelStandard)}
	if cfg.Gateway.RequestTimeout > 0 {
		middlewares = append(middlewares, middleware.NewTimeoutMiddleware(cfg.Gateway.RequestTimeout))
	}
	c, err := client.New(reg,
		client.WithObserver(observer),
		client.WithMaxStreamLine(cfg.Gateway.MaxStreamLineBytes),
		client.WithMiddleware(middlewares...),
	)
	if err != nil {
		return err
	}

	store, closeStore, err := openHistory(cfg.History)
	if err != nil {
		return err
	}
	defer closeStore()

	var guideOpts []careguide.Option
	if cfg.Gateway.CareGuidePrivate {
		logger.Warn("care-guide fetches may reach private addresses")
		guideOpts = append(guideOpts, careguide.WithPrivateNetworks())
	}

	srv := server.New(server.Config{
		Address:         cfg.Server.Address,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		ContextWindow:   cfg.Gateway.ContextWindow,
	}, c, store, careguide.NewFetcher(cfg.Gateway.CareGuideTimeout, guideOpts...), logger)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(ctx)
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown requested")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openHistory(cfg config.HistoryConfig) (memory.Store, func(), error) {
	switch cfg.Driver {
	case config.HistorySQLite:
		store, err := sqlmemory.Open(cfg.Path, sqlmemory.WithMaxMessages(cfg.MaxMessages))
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("history close failed", "error", err)
			}
		}, nil
	default:
		return inmemory.NewStore(inmemory.WithMaxMessages(cfg.MaxMessages)), func() {}, nil
	}
}
