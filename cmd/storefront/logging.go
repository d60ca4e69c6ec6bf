package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/logsink"
	"storefront/internal/telemetry"
)

// setupLogging installs the default slog logger: JSON on stdout, plus the append blob
// sink and the OTLP bridge when configured. The returned func flushes both.
func setupLogging(ctx context.Context, cfg *config.Config) (func(), error) {
	newSink := func(ctx context.Context, c logsink.Config) (sinkHandler, error) {
		return logsink.New(ctx, c)
	}
	return setupLoggingWith(ctx, cfg, newSink, telemetry.Setup)
}

type sinkHandler interface {
	slog.Handler
	io.Closer
}

type (
	newSinkFunc      func(context.Context, logsink.Config) (sinkHandler, error)
	setupTelemetryFn func(context.Context, config.TelemetryConfig) (slog.Handler, telemetry.Shutdown, error)
)

func setupLoggingWith(ctx context.Context, cfg *config.Config, newSink newSinkFunc, setupTelemetry setupTelemetryFn) (func(), error) {
	handlers := []slog.Handler{slog.NewJSONHandler(os.Stdout, nil)}
	var closers []func()

	if sinkCfg := logsink.FromConfig(cfg); sinkCfg.Enabled() {
		sink, err := newSink(ctx, sinkCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create log sink: %w", err)
		}
		handlers = append(handlers, sink)
		closers = append(closers, func() { _ = sink.Close() })
	}

	otelHandler, shutdown, err := setupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	handlers = append(handlers, otelHandler)
	closers = append(closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	})

	slog.SetDefault(slog.New(logsink.Fanout(handlers...)))

	var closed bool
	return func() {
		if closed {
			return
		}
		closed = true
		for _, c := range closers {
			c()
		}
	}, nil
}
