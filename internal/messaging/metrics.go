package messaging

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/watertime/watertime/messaging"

// Metrics records push delivery outcomes.
type Metrics struct {
	sent   metric.Int64Counter
	failed metric.Int64Counter
	pruned metric.Int64Counter
}

// NewMetrics creates push delivery metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	sent, err := meter.Int64Counter(
		"push.sent",
		metric.WithDescription("Push messages accepted by the provider"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	failed, err := meter.Int64Counter(
		"push.failed",
		metric.WithDescription("Push messages rejected or not delivered"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	pruned, err := meter.Int64Counter(
		"push.tokens.pruned",
		metric.WithDescription("Device tokens removed after the provider rejected them"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{sent: sent, failed: failed, pruned: pruned}, nil
}

func (m *Metrics) record(ctx context.Context, provider string, r Result) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("push.provider", provider))
	if r.SuccessCount > 0 {
		m.sent.Add(ctx, int64(r.SuccessCount), attrs)
	}
	if r.FailureCount > 0 {
		m.failed.Add(ctx, int64(r.FailureCount), attrs)
	}
	if n := len(r.InvalidTokens); n > 0 {
		m.pruned.Add(ctx, int64(n), attrs)
	}
}
