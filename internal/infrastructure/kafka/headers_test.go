package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func usePropagators(t *testing.T) {
	t.Helper()
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })
}

func sampledContext(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), spanCtx), spanCtx
}

func TestMessageHeaders(t *testing.T) {
	usePropagators(t)
	ctx, spanCtx := sampledContext(t)
	member, _ := baggage.NewMember("tenant", "acme")
	bag, _ := baggage.New(member)
	ctx = baggage.ContextWithBaggage(ctx, bag)

	headers := messageHeaders(ctx, "run-1", "0xabc")
	if headers[0].Key != headerRunID || string(headers[0].Value) != "run-1" {
		t.Errorf("expected run id first, got %+v", headers[0])
	}
	if headerValue(headers, headerAddress) != "0xabc" {
		t.Errorf("missing address header in %+v", headers)
	}
	if headerValue(headers, "traceparent") == "" || headerValue(headers, "baggage") == "" {
		t.Fatalf("trace fields not injected: %+v", headers)
	}

	restored := traceContext(context.Background(), headers)
	got := trace.SpanContextFromContext(restored)
	if got.TraceID() != spanCtx.TraceID() || got.SpanID() != spanCtx.SpanID() {
		t.Errorf("unexpected span context %v", got)
	}
	if baggage.FromContext(restored).Member("tenant").Value() != "acme" {
		t.Error("baggage not restored")
	}
}

func TestTraceContext_IgnoresOtherHeaders(t *testing.T) {
	usePropagators(t)
	ctx := context.Background()

	headers := []kafka.Header{
		{Key: headerRunID, Value: []byte("run-1")},
		{Key: "x-custom", Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")},
	}
	if got := traceContext(ctx, headers); got != ctx {
		t.Error("expected the context untouched without trace headers")
	}

	headers = append(headers, kafka.Header{Key: "TraceParent", Value: []byte("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")})
	if !trace.SpanContextFromContext(traceContext(ctx, headers)).IsValid() {
		t.Error("expected traceparent to be matched case-insensitively")
	}
}
