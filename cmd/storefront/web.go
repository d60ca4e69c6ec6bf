package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/inquiry"
	"storefront/internal/render"
	"storefront/internal/sheets"
	"storefront/internal/snapshot"
	"storefront/internal/static"
	"storefront/internal/storefront"
	"storefront/internal/templates"
)

type app struct {
	handler    http.Handler
	controller *storefront.Controller
	closers    []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Error("failed to close resource", "error", err)
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := cache.MakeCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	a := &app{}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	client, err := sheets.NewClient(cfg.Sheet)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create sheet client: %w", err)
	}

	if err := templates.Init(cfg, static.StylesheetPath); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a.controller = storefront.NewController(client, snapshot.New(store), cfg.Sheet, cfg.Cache.Key)
	// stop in-flight fetches before the cache they save into
	a.closers = append([]io.Closer{a.controller}, a.closers...)
	links := inquiry.New(cfg.Inquiry)

	mux := http.NewServeMux()
	static.Register(mux)
	storefront.NewServer(a.controller, render.New(cfg.StoreName, links), links).Register(mux)

	ro := &readyOnce{}
	ro.Add(a.controller)
	mux.Handle("GET /ready", ro)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.handler = WithMiddleware(mux)
	return a, nil
}

func runServer(cfg *config.Config, addr string) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		a.controller.Run(ctx, cfg.RefreshInterval)
	}()

	server := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Serving storefront", "address", addr, "store", cfg.StoreName)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)
		stop()
		return gracefulShutdown(server, refreshDone)
	}
}

func gracefulShutdown(svr *http.Server, refreshDone <-chan struct{}) error {
	// Give outstanding requests 25 seconds to complete (kubernetes has 30 second grace period)
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		if closeErr := svr.Close(); closeErr != nil {
			slog.Error("Server close error", "error", closeErr)
		}
		return err
	}

	select {
	case <-refreshDone:
		slog.Info("Catalog refresh loop stopped")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for catalog refresh loop")
		return ctx.Err()
	}
	return nil
}
