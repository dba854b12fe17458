package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prperemyshlev/user-service/internal/service"

// Metrics records authentication counters on the global meter provider
type Metrics struct {
	authAttempts  metric.Int64Counter
	tokensIssued  metric.Int64Counter
	resetRequests metric.Int64Counter
	tokensSwept   metric.Int64Counter
}

// NewMetrics creates the service instruments
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(meterName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {

	authAttempts, err := meter.Int64Counter("auth_attempts_total",
		metric.WithDescription("Authentication attempts by strategy and outcome"))
	if err != nil {
		return nil, err
	}

	tokensIssued, err := meter.Int64Counter("auth_tokens_issued_total",
		metric.WithDescription("Tokens issued by kind"))
	if err != nil {
		return nil, err
	}

	resetRequests, err := meter.Int64Counter("auth_password_reset_requests_total",
		metric.WithDescription("Password reset requests by outcome"))
	if err != nil {
		return nil, err
	}

	tokensSwept, err := meter.Int64Counter("auth_tokens_swept_total",
		metric.WithDescription("Expired tokens removed by housekeeping"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		authAttempts:  authAttempts,
		tokensIssued:  tokensIssued,
		resetRequests: resetRequests,
		tokensSwept:   tokensSwept,
	}, nil
}

func (m *Metrics) authAttempt(ctx context.Context, strategy string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.authAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) tokenIssued(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) resetRequested(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.resetRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) swept(ctx context.Context, kind string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.tokensSwept.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind)))
}
