package telemetry

import (
	"context"
	"testing"
	"time"

	"storefront/internal/config"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	handler, shutdown, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "storefront"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if handler != nil {
		t.Fatalf("expected no log bridge without an endpoint")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupEnabledReturnsBridge(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:4318")
	handler, shutdown, err := Setup(context.Background(), config.TelemetryConfig{
		OTLPEndpoint: "http://127.0.0.1:4318",
		ServiceName:  "storefront",
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if handler == nil {
		t.Fatalf("expected a log bridge handler")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// nothing was recorded so there is nothing to export; the error is irrelevant here
	_ = shutdown(ctx)
}
