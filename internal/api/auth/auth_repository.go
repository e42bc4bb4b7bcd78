package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tournament-auth/app/observability/metrics"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

// CredentialStore persists user identities and credentials.
type CredentialStore interface {
	// FindByUsername returns types.ErrNotFound when no user has that username.
	FindByUsername(ctx context.Context, username string) (*types.User, error)
	// Save inserts u when u.Version is 0, otherwise updates it if the stored version still
	// matches (types.ErrStaleRecord if not). On success u.Version is the new version.
	Save(ctx context.Context, u *types.User) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
}

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ CredentialStore = (*PostgresCredentialStore)(nil)

// PostgresCredentialStore keeps users in the users table.
type PostgresCredentialStore struct {
	logger  *slog.Logger
	db      DB
	metrics *metrics.AppMetrics
}

func NewPostgresCredentialStore(db DB, logger *slog.Logger) *PostgresCredentialStore {
	return &PostgresCredentialStore{
		logger:  logger,
		db:      db,
		metrics: metrics.Get(),
	}
}

const userColumns = `id, username, email, external_id, role, confederation, team, password_hash,
	password_history, password_changed_at, is_active, created_at, last_login_at, version`

func (r *PostgresCredentialStore) observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("db.operation", op), attribute.String("db.sql.table", "users"))
	r.metrics.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.metrics.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (r *PostgresCredentialStore) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "FindByUsername", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	var (
		u          types.User
		externalID *string
		role       string
		start      = time.Now()
	)
	err := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&externalID,
		&role,
		&u.Confederation,
		&u.Team,
		&u.PasswordHash,
		&u.PasswordHistory,
		&u.PasswordChangedAt,
		&u.IsActive,
		&u.CreatedAt,
		&u.LastLoginAt,
		&u.Version,
	)
	r.observe(ctx, "SELECT", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to load user", slog.String("username", username), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error loading user: %w", err)
	}
	if externalID != nil {
		u.ExternalID = *externalID
	}
	u.Role = types.Role(role)

	span.SetStatus(codes.Ok, "User loaded")
	return &u, nil
}

func (r *PostgresCredentialStore) exists(ctx context.Context, column, value string) (bool, error) {
	var found bool
	start := time.Now()
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE `+column+` = $1)`, value).Scan(&found)
	r.observe(ctx, "SELECT", start, err)
	if err != nil {
		return false, fmt.Errorf("database error checking %s: %w", column, err)
	}
	return found, nil
}

func (r *PostgresCredentialStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", username)
}

func (r *PostgresCredentialStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "lower(email)", strings.ToLower(email))
}

func (r *PostgresCredentialStore) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	return r.exists(ctx, "external_id", externalID)
}

func (r *PostgresCredentialStore) Save(ctx context.Context, u *types.User) error {
	if u.Version == 0 {
		return r.insert(ctx, u)
	}
	return r.update(ctx, u)
}

func (r *PostgresCredentialStore) insert(ctx context.Context, u *types.User) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "InsertUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	id := u.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	start := time.Now()
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)`,
		id, u.Username, u.Email, nullIfEmpty(u.ExternalID), string(u.Role), u.Confederation, u.Team,
		u.PasswordHash, u.PasswordHistory, u.PasswordChangedAt, u.IsActive, u.CreatedAt, u.LastLoginAt)
	r.observe(ctx, "INSERT", start, err)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			r.logger.WarnContext(ctx, "Unique constraint rejected new user", slog.String("username", u.Username), slog.Any("error", err))
			span.SetStatus(codes.Error, "Duplicate user")
			return dup
		}
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return fmt.Errorf("database error creating user: %w", err)
	}

	u.ID = id
	u.Version = 1
	span.SetAttributes(attribute.String("db.user.id", id.String()))
	span.SetStatus(codes.Ok, "User created")
	return nil
}

func (r *PostgresCredentialStore) update(ctx context.Context, u *types.User) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.Int64("db.user.version", u.Version),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET
			email = $2,
			external_id = $3,
			role = $4,
			confederation = $5,
			team = $6,
			password_hash = $7,
			password_history = $8,
			password_changed_at = $9,
			is_active = $10,
			last_login_at = $11,
			version = version + 1
		WHERE username = $1 AND version = $12`,
		u.Username, u.Email, nullIfEmpty(u.ExternalID), string(u.Role), u.Confederation, u.Team,
		u.PasswordHash, u.PasswordHistory, u.PasswordChangedAt, u.IsActive, u.LastLoginAt, u.Version)
	r.observe(ctx, "UPDATE", start, err)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			span.SetStatus(codes.Error, "Duplicate user")
			return dup
		}
		r.logger.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error updating user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		found, err := r.ExistsByUsername(ctx, u.Username)
		if err != nil {
			return err
		}
		if !found {
			span.SetStatus(codes.Error, "User not found")
			return types.ErrNotFound
		}
		span.SetStatus(codes.Error, "Stale version")
		return types.ErrStaleRecord
	}

	u.Version++
	span.SetStatus(codes.Ok, "User updated")
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// duplicateError maps a unique violation on users to the matching sentinel.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return types.ErrDuplicateEmail
	case strings.Contains(pgErr.ConstraintName, "external_id"):
		return types.ErrDuplicateExternalID
	default:
		return types.ErrDuplicateUsername
	}
}
