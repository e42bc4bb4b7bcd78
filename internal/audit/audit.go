// Package audit records security events such as failed logins, rejected tokens and
// authorization denials.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/tournament-auth/app/observability/metrics"
	"github.com/FACorreiaa/tournament-auth/internal/clock"
)

// Severity ranks an event.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity accepts a severity in any case.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	switch sev {
	case SeverityInfo, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, true
	}
	return "", false
}

// Event types emitted by this service. Manually logged events may use any type.
const (
	TypeLoginSuccess            = "LOGIN_SUCCESS"
	TypeLoginFailure            = "LOGIN_FAILURE"
	TypeUserRegistered          = "USER_REGISTERED"
	TypePasswordChanged         = "PASSWORD_CHANGED"
	TypeUnauthorizedAccess      = "UNAUTHORIZED_ACCESS"
	TypeUnauthorizedOperation   = "UNAUTHORIZED_OPERATION"
	TypeInvalidToken            = "INVALID_TOKEN"
	TypeTokenExpired            = "TOKEN_EXPIRED"
	TypeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	TypeValidationFailed        = "INPUT_VALIDATION_FAILED"
	TypeDecryptionFailed        = "DECRYPTION_FAILED"
)

// Event is one entry in the audit trail.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"event_type"`
	Severity    Severity  `json:"severity"`
	Actor       string    `json:"actor,omitempty"`
	Resource    string    `json:"resource,omitempty"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type actorKey struct{}

// WithActor returns a context naming the authenticated user behind the request.
func WithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actorKey{}, username)
}

// ActorFromContext returns the username set by WithActor, or "".
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// Recorder persists events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Lister returns the most recent events, newest first.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// MultiRecorder fans an event out to every recorder and joins their errors.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Trail stamps events and hands them to a Recorder. Recorder failures are logged and
// never returned, so auditing cannot break the operation being audited.
type Trail struct {
	recorder Recorder
	logger   *slog.Logger
	clock    clock.Clock
	events   metric.Int64Counter
}

// NewTrail creates a Trail.
func NewTrail(recorder Recorder, logger *slog.Logger, clk clock.Clock) *Trail {
	if clk == nil {
		clk = clock.New()
	}
	return &Trail{
		recorder: recorder,
		logger:   logger,
		clock:    clk,
		events:   metrics.Get().AuditEventsTotal,
	}
}

// Log records e, filling in its ID and timestamp when unset, and returns the event as
// recorded.
func (t *Trail) Log(ctx context.Context, e Event) Event {
	if t == nil {
		return e
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = t.clock.Now().UTC()
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}

	t.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("severity", string(e.Severity)),
		attribute.String("type", e.Type),
	))

	if err := t.recorder.Record(ctx, e); err != nil {
		t.logger.ErrorContext(ctx, "Failed to record audit event",
			slog.String("event_type", e.Type),
			slog.String("severity", string(e.Severity)),
			slog.Any("error", err))
	}
	return e
}

// Emit is shorthand for Log with the common fields.
func (t *Trail) Emit(ctx context.Context, eventType string, severity Severity, actor, resource, description string) {
	t.Log(ctx, Event{
		Type:        eventType,
		Severity:    severity,
		Actor:       actor,
		Resource:    resource,
		Description: description,
	})
}
