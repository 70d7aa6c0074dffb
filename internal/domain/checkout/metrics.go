package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	secretFetches metric.Int64Counter
	confirmations metric.Int64Counter
	orderWrites   metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	secretFetches, err := meter.Int64Counter("checkout.secret_fetches",
		metric.WithDescription("Client secret requests by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "secret_fetches")
	}
	confirmations, err := meter.Int64Counter("checkout.confirmations",
		metric.WithDescription("Payment confirmations by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "confirmations")
	}
	orderWrites, err := meter.Int64Counter("checkout.order_writes",
		metric.WithDescription("Order record writes by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "order_writes")
	}
	return &metrics{
		secretFetches: secretFetches,
		confirmations: confirmations,
		orderWrites:   orderWrites,
	}, nil
}

func record(ctx context.Context, c metric.Int64Counter, outcome string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
