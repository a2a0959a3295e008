package kafka

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	headerRunID   = "run-id"
	headerAddress = "address"
)

// messageHeaders builds the headers shared by every message of one publish:
// the run and address the batch belongs to, then the propagated trace fields.
func messageHeaders(ctx context.Context, runID, address string) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]kafka.Header, 0, len(carrier)+2)
	headers = append(headers,
		kafka.Header{Key: headerRunID, Value: []byte(runID)},
		kafka.Header{Key: headerAddress, Value: []byte(address)},
	)
	for _, key := range slices.Sorted(maps.Keys(carrier)) {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(carrier[key])})
	}
	return headers
}

// traceContext returns ctx with the trace context carried by headers. Only the
// propagator's own fields (traceparent, tracestate, baggage) are read.
func traceContext(ctx context.Context, headers []kafka.Header) context.Context {
	propagator := otel.GetTextMapPropagator()
	carrier := propagation.MapCarrier{}
	for _, field := range propagator.Fields() {
		if value := headerValue(headers, field); value != "" {
			carrier[field] = value
		}
	}
	if len(carrier) == 0 {
		return ctx
	}
	return propagator.Extract(ctx, carrier)
}

func headerValue(headers []kafka.Header, key string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Key, key) {
			return string(header.Value)
		}
	}
	return ""
}
