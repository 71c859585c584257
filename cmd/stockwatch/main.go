// Package main runs the low stock watcher: a JetStream consumer of beer stock change events.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/beerstock/internal/watcher"
	"github.com/abgdnv/beerstock/pkg/bootstrap"
	"github.com/abgdnv/beerstock/pkg/config"
	"github.com/abgdnv/beerstock/pkg/config/configloader"
	"github.com/abgdnv/beerstock/pkg/messaging"
	"github.com/abgdnv/beerstock/pkg/nats"
	"github.com/abgdnv/beerstock/pkg/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "stockwatch"

type watchConfig struct {
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Threshold  int                     `koanf:"threshold"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *watchConfig) String() string {
	var b strings.Builder
	b.WriteString(c.Nats.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(fmt.Sprintf("\n--- Watcher ---\n  threshold: %d%%\n", c.Threshold))
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

func (c *watchConfig) Validate() error {
	if !c.Nats.Enabled {
		return fmt.Errorf("nats must be enabled for the stock watcher")
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Subscriber.Validate(); err != nil {
		return err
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100: %d", c.Threshold)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	return c.Shutdown.Validate()
}

func defaults() map[string]any {
	return map[string]any{
		"nats.enabled":        true,
		"nats.url":            "nats://localhost:4222",
		"nats.timeout":        "5s",
		"nats.stream":         "BEERS",
		"subscriber.stream":   "BEERS",
		"subscriber.subject":  messaging.BeerStockChangedSubject,
		"subscriber.consumer": "stockwatch",
		"subscriber.batch":    10,
		"subscriber.timeout":  "5s",
		"subscriber.interval": "1s",
		"subscriber.workers":  2,
		"threshold":           20,
		"log.level":           "info",
		"log.format":          "json",
		"pprof.addr":          "localhost:6061",
		"shutdown.timeout":    "10s",

		"telemetry.traces.sampleratio": 1.0,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run starts the stock event consumer and, if enabled, the pprof server.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*watchConfig](serviceName, defaults())
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	var tracerShutdown func(context.Context) error
	if cfg.Telemetry.Traces.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		tracerShutdown = tracerProvider.Shutdown
	}

	natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create NATS connection: %w", err)
	}
	defer natsConn.Close()
	js, err := nats.NewJetStreamContext(natsConn)
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}
	if _, err := nats.EnsureStream(ctx, js, cfg.Nats.Stream, messaging.BeersSubjects); err != nil {
		return err
	}

	w := watcher.New(cfg.Threshold, watcher.LogNotifier{Logger: logger}, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Stock watcher started", slog.Int("threshold", cfg.Threshold))
		err := w.Start(gCtx, js, cfg.Subscriber)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("stock watcher failed", "error", err)
			return err
		}
		logger.Info("Stock watcher stopped gracefully.")
		return nil
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr:              cfg.PProf.Addr,
			ReadHeaderTimeout: cfg.Shutdown.Timeout,
		}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		// gracefully shutdown pprof server on context cancellation
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if tracerShutdown != nil {
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tracerShutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shutdown tracer provider: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
