package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/codr1/Spinergy/internal/config"
)

func TestSetupDisabledInstallsPropagator(t *testing.T) {
	shutdown, err := Setup(context.Background(), false, config.TracingConfig{}, "test")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	fields := otel.GetTextMapPropagator().Fields()
	var hasTraceparent bool
	for _, f := range fields {
		if f == "traceparent" {
			hasTraceparent = true
		}
	}
	if !hasTraceparent {
		t.Fatalf("expected traceparent propagation, got %v", fields)
	}
}

func TestSetupRequiresEndpoint(t *testing.T) {
	if _, err := Setup(context.Background(), true, config.TracingConfig{ServiceName: "spinergy"}, "test"); err == nil {
		t.Fatalf("expected error without endpoint")
	}
}
