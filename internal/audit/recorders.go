package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SlogRecorder writes events to a structured logger, choosing the level by severity.
type SlogRecorder struct {
	logger *slog.Logger
}

func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	return &SlogRecorder{logger: logger.With(slog.String("component", "audit"))}
}

func (r *SlogRecorder) Record(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	switch e.Severity {
	case SeverityMedium:
		level = slog.LevelWarn
	case SeverityHigh, SeverityCritical:
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "Security event",
		slog.String("event_id", e.ID.String()),
		slog.String("event_type", e.Type),
		slog.String("severity", string(e.Severity)),
		slog.String("actor", e.Actor),
		slog.String("resource", e.Resource),
		slog.String("description", e.Description),
		slog.Time("occurred_at", e.OccurredAt))
	return nil
}

// MemoryRecorder keeps the last N events in a ring buffer.
type MemoryRecorder struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

var (
	_ Recorder = (*MemoryRecorder)(nil)
	_ Lister   = (*MemoryRecorder)(nil)
)

func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryRecorder{events: make([]Event, capacity)}
}

func (r *MemoryRecorder) Record(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = e
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

func (r *MemoryRecorder) Recent(_ context.Context, limit int) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.events)) % len(r.events)
		out = append(out, r.events[idx])
	}
	return out, nil
}

// DB is the subset of pgxpool.Pool used by the Postgres recorder.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRecorder stores events in the audit_events table.
type PostgresRecorder struct {
	db DB
}

var (
	_ Recorder = (*PostgresRecorder)(nil)
	_ Lister   = (*PostgresRecorder)(nil)
)

func NewPostgresRecorder(db DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, e Event) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_events (id, event_type, severity, actor, resource, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Type, string(e.Severity), e.Actor, e.Resource, e.Description, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, event_type, severity, actor, resource, description, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e        Event
			severity string
			at       time.Time
		)
		if err := rows.Scan(&e.ID, &e.Type, &severity, &e.Actor, &e.Resource, &e.Description, &at); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Severity = Severity(severity)
		e.OccurredAt = at
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}
