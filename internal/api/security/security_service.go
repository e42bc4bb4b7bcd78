package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
	"github.com/FACorreiaa/tournament-auth/internal/types"
	"github.com/FACorreiaa/tournament-auth/internal/validation"
)

const defaultAuditLimit = 100

var _ SecurityService = (*SecurityServiceImpl)(nil)

// SecurityService backs the /security endpoints.
type SecurityService interface {
	ValidateToken(ctx context.Context, token string, role types.Role) (*types.Claims, error)
	Authorize(ctx context.Context, role types.Role, operation authz.Operation, resource string) bool
	Encrypt(ctx context.Context, actor, plaintext string) (string, error)
	Decrypt(ctx context.Context, actor, sealed string) (string, error)
	ValidateInput(ctx context.Context, actor, input string, kind validation.Kind) validation.Result
	LogEvent(ctx context.Context, e audit.Event) audit.Event
	RecentEvents(ctx context.Context, limit int) ([]audit.Event, error)
}

// Verifier verifies bearer tokens.
type Verifier interface {
	Verify(token string) (*types.Claims, error)
}

// Authorizer decides role/operation pairs.
type Authorizer interface {
	Authorize(ctx context.Context, role types.Role, operation authz.Operation, resource string) bool
}

// Sealer encrypts and decrypts sensitive values.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// SecurityServiceImpl implements SecurityService.
type SecurityServiceImpl struct {
	logger   *slog.Logger
	verifier Verifier
	authz    Authorizer
	sealer   Sealer
	trail    *audit.Trail
	events   audit.Lister
}

// NewSecurityService creates a new security service. events may be nil when no recorder
// can list past events.
func NewSecurityService(
	verifier Verifier,
	authorizer Authorizer,
	sealer Sealer,
	trail *audit.Trail,
	events audit.Lister,
	logger *slog.Logger,
) *SecurityServiceImpl {
	return &SecurityServiceImpl{
		logger:   logger,
		verifier: verifier,
		authz:    authorizer,
		sealer:   sealer,
		trail:    trail,
		events:   events,
	}
}

// ValidateToken verifies token and, when role is set, requires the token to carry it.
func (s *SecurityServiceImpl) ValidateToken(ctx context.Context, token string, role types.Role) (*types.Claims, error) {
	ctx, span := otel.Tracer("SecurityService").Start(ctx, "ValidateToken", trace.WithAttributes(
		attribute.String("required.role", string(role)),
	))
	defer span.End()

	claims, err := s.verifier.Verify(token)
	if err != nil {
		eventType := audit.TypeInvalidToken
		if errors.Is(err, types.ErrTokenExpired) {
			eventType = audit.TypeTokenExpired
		}
		s.trail.Emit(ctx, eventType, audit.SeverityMedium, "", "token", err.Error())
		span.SetStatus(codes.Error, "Token rejected")
		return nil, fmt.Errorf("error validating token: %w", err)
	}

	if role != "" && !claims.HasRole(role) {
		s.trail.Emit(ctx, audit.TypeInsufficientPermissions, audit.SeverityHigh, claims.Subject, "token",
			fmt.Sprintf("token lacks required role %s", role))
		s.logger.WarnContext(ctx, "Token lacks required role",
			slog.String("username", claims.Subject), slog.String("role", string(role)))
		span.SetStatus(codes.Error, "Insufficient permissions")
		return nil, fmt.Errorf("error validating token: %w", types.ErrUnauthorized)
	}

	span.SetStatus(codes.Ok, "Token valid")
	return claims, nil
}

// Authorize consults the permission matrix.
func (s *SecurityServiceImpl) Authorize(ctx context.Context, role types.Role, operation authz.Operation, resource string) bool {
	return s.authz.Authorize(ctx, role, operation, resource)
}

// Encrypt seals plaintext.
func (s *SecurityServiceImpl) Encrypt(ctx context.Context, actor, plaintext string) (string, error) {
	sealed, err := s.sealer.Seal(plaintext)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to seal data", slog.String("actor", actor), slog.Any("error", err))
		return "", fmt.Errorf("error encrypting data: %w", err)
	}
	return sealed, nil
}

// Decrypt opens a value produced by Encrypt. Failures are audited and reported as invalid input.
func (s *SecurityServiceImpl) Decrypt(ctx context.Context, actor, sealed string) (string, error) {
	plaintext, err := s.sealer.Open(sealed)
	if err != nil {
		s.trail.Emit(ctx, audit.TypeDecryptionFailed, audit.SeverityHigh, actor, "sealed-data", err.Error())
		return "", fmt.Errorf("error decrypting data: %w: %v", types.ErrInvalidInput, err)
	}
	return plaintext, nil
}

// ValidateInput checks input against kind. Rejected input is audited.
func (s *SecurityServiceImpl) ValidateInput(ctx context.Context, actor, input string, kind validation.Kind) validation.Result {
	res := validation.Check(input, kind)
	if !res.Valid {
		s.trail.Emit(ctx, audit.TypeValidationFailed, audit.SeverityMedium, actor, string(kind),
			fmt.Sprintf("%d validation error(s)", len(res.Errors)))
	}
	return res
}

// LogEvent records a caller-supplied event and returns it with its ID and timestamp set.
func (s *SecurityServiceImpl) LogEvent(ctx context.Context, e audit.Event) audit.Event {
	return s.trail.Log(ctx, e)
}

// RecentEvents lists the newest audit events.
func (s *SecurityServiceImpl) RecentEvents(ctx context.Context, limit int) ([]audit.Event, error) {
	if s.events == nil {
		return []audit.Event{}, nil
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	events, err := s.events.Recent(ctx, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list audit events", slog.Any("error", err))
		return nil, fmt.Errorf("error listing audit events: %w", err)
	}
	return events, nil
}
