package metrics

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tournament-auth"

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LoginAttemptsTotal      metric.Int64Counter
	RegistrationsTotal      metric.Int64Counter
	PasswordChangesTotal    metric.Int64Counter
	TokenVerificationsTotal metric.Int64Counter
	AuthzDenialsTotal       metric.Int64Counter
	AuditEventsTotal        metric.Int64Counter
	StaleRetriesTotal       metric.Int64Counter
	HTTPRequestsTotal       metric.Int64Counter
	LoginDurationSeconds    metric.Float64Histogram
	HTTPDurationSeconds     metric.Float64Histogram
	DbQueryDurationSeconds  metric.Float64Histogram
	DbQueryErrorsTotal      metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// New creates every instrument on meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.LoginAttemptsTotal, "login_attempts_total", "Login attempts by outcome", "{attempt}"},
		{&m.RegistrationsTotal, "registrations_total", "Account registrations by outcome", "{request}"},
		{&m.PasswordChangesTotal, "password_changes_total", "Password changes by outcome", "{request}"},
		{&m.TokenVerificationsTotal, "token_verifications_total", "Bearer token verifications by outcome", "{token}"},
		{&m.AuthzDenialsTotal, "authz_denials_total", "Operations denied by the permission matrix", "{decision}"},
		{&m.AuditEventsTotal, "audit_events_total", "Security events recorded by severity", "{event}"},
		{&m.StaleRetriesTotal, "stale_record_retries_total", "Optimistic lock conflicts retried", "{retry}"},
		{&m.DbQueryErrorsTotal, "db_query_errors_total", "Total number of database query errors", "{error}"},
		{&m.HTTPRequestsTotal, "http_requests_total", "HTTP requests by route and status", "{request}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}

	m.LoginDurationSeconds, err = meter.Float64Histogram(
		"login_duration_seconds",
		metric.WithDescription("Duration of login requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login_duration_seconds: %w", err)
	}

	m.HTTPDurationSeconds, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds: %w", err)
	}

	m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_query_duration_seconds: %w", err)
	}

	return m, nil
}

// InitAppMetrics initializes the global metrics instruments once, from the globally
// configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter(meterName))
		if err != nil {
			log.Fatalf("Metrics: %v", err)
		}
		appMetrics = m
	})
}

// Get returns the global AppMetrics, initializing it on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

// Outcome adds a single "outcome" attribute to a counter increment.
func Outcome(ctx context.Context, c metric.Int64Counter, outcome string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
