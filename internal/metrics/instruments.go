package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instruments pairs a counter with a duration histogram sharing the same attributes.
// HTTP, gRPC and business metrics are all recorded through one.
type instruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(meter metric.Meter, totalName, durationName, subject, unit string) (*instruments, error) {
	total, err := meter.Int64Counter(
		totalName,
		metric.WithDescription(fmt.Sprintf("Total number of %ss", subject)),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s counter: %w", subject, err)
	}

	duration, err := meter.Float64Histogram(
		durationName,
		metric.WithDescription(fmt.Sprintf("Duration of %ss in seconds", subject)),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s duration histogram: %w", subject, err)
	}

	return &instruments{total: total, duration: duration}, nil
}

func (i *instruments) record(ctx context.Context, elapsed time.Duration, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	i.total.Add(ctx, 1, opt)
	i.duration.Record(ctx, elapsed.Seconds(), opt)
}
