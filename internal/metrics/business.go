package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/allisson/sessions/internal/errors"
)

// Operation outcomes used as the status label.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// BusinessMetrics records use case operations such as token issuance or login attempts.
type BusinessMetrics interface {
	// RecordOperation counts one run of operation within domain ("auth", "user") and records
	// how long it took. The status label is derived from err, see StatusOf.
	RecordOperation(ctx context.Context, domain, operation string, elapsed time.Duration, err error)
}

// StatusOf maps an operation result to its status label. Unauthorized errors are a
// rejected caller, not a failure of the service.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return StatusRejected
	default:
		return StatusError
	}
}

type businessMetrics struct {
	ops *instruments
}

// NewBusinessMetrics registers <namespace>_operations_total and
// <namespace>_operation_duration_seconds on meterProvider.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	ops, err := newInstruments(
		meterProvider.Meter(namespace),
		namespace+"_operations_total",
		namespace+"_operation_duration_seconds",
		"business operation",
		"{operation}",
	)
	if err != nil {
		return nil, err
	}
	return &businessMetrics{ops: ops}, nil
}

func (b *businessMetrics) RecordOperation(
	ctx context.Context,
	domain, operation string,
	elapsed time.Duration,
	err error,
) {
	b.ops.record(ctx, elapsed,
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", StatusOf(err)),
	)
}

// NoOpBusinessMetrics discards everything. Used when METRICS_ENABLED is false.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a NoOpBusinessMetrics.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, time.Duration, error) {}
