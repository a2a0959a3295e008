package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "ethtracker", "test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("expected a no-op span")
	}
	span.End()
}
