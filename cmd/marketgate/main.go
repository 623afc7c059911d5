// Command marketgate serves the marketplace auth gate over HTTP.
//
// Configuration is read from an optional YAML file, a .env file and
// MARKETGATE_* environment variables, in that order of precedence (later
// wins). The only required setting is the credential secret:
//
//	MARKETGATE_SECRET=$(openssl rand -hex 32) go run ./cmd/marketgate -config marketgate.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/internal/config"
	"github.com/MrEthical07/marketgate/internal/httpapi"
	promexport "github.com/MrEthical07/marketgate/metrics/export/prometheus"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		dotenv     = flag.Bool("dotenv", true, "load .env from the working directory")
	)
	flag.Parse()

	cfg, err := config.NewLoader().WithDotEnv(*dotenv).Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("marketgate stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	deps, err := openDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	b := marketgate.New().
		WithConfig(cfg.Engine()).
		WithLogger(logger).
		WithIdentityProvider(deps.users).
		WithProductOwnerLookup(deps.products).
		WithAuditSink(deps.sink)
	if deps.redis != nil {
		b = b.WithRedis(deps.redis)
	}
	if deps.alerter != nil {
		b = b.WithAlerter(deps.alerter)
	}
	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer func() {
		if err := engine.Close(context.Background()); err != nil {
			logger.Warn("close engine", "error", err)
		}
	}()

	opts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithReadiness(deps.ready...),
	}
	if cfg.Metrics.Enabled {
		reg, err := promexport.NewRegistry(engine)
		if err != nil {
			return fmt.Errorf("metrics registry: %w", err)
		}
		opts = append(opts, httpapi.WithMetricsHandler(promexport.Handler(reg)))
	}

	if cfg.Metrics.OTel {
		reader := sdkmetric.NewPeriodicReader(&logExporter{logger: logger.With("component", "otel")},
			sdkmetric.WithInterval(cfg.Metrics.OTelInterval))
		shutdown, err := startOTel(engine, reader)
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("shutdown otel metrics", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.New(engine, deps.users, deps.products, opts...).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Database.Driver, "audit_sink", cfg.Audit.Sink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
