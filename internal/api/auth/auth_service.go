package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/tournament-auth/app/observability/metrics"
	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
	"github.com/FACorreiaa/tournament-auth/internal/clock"
	"github.com/FACorreiaa/tournament-auth/internal/password"
	"github.com/FACorreiaa/tournament-auth/internal/types"
	"github.com/FACorreiaa/tournament-auth/internal/validation"
)

// maxStaleRetries bounds how often a read-modify-write is retried after losing an
// optimistic-lock race.
const maxStaleRetries = 3

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService is the single entry point the HTTP layer uses for authentication and
// authorization.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*types.LoginResult, error)
	Register(ctx context.Context, params RegisterParams) (*types.User, error)
	ChangePassword(ctx context.Context, username, newPassword string) error
	IsPasswordExpired(ctx context.Context, username string) (bool, error)
	VerifyToken(ctx context.Context, token string) (*types.Claims, error)
	Authorize(ctx context.Context, role types.Role, operation authz.Operation, resource string) bool
}

// TokenManager issues and verifies bearer tokens.
type TokenManager interface {
	Mint(username string, role types.Role) (string, time.Time, error)
	Verify(token string) (*types.Claims, error)
}

// Authorizer decides role/operation pairs.
type Authorizer interface {
	Authorize(ctx context.Context, role types.Role, operation authz.Operation, resource string) bool
}

// AuthServiceImpl implements AuthService.
type AuthServiceImpl struct {
	logger  *slog.Logger
	store   CredentialStore
	hasher  password.Hasher
	policy  *password.Policy
	tokens  TokenManager
	authz   Authorizer
	trail   *audit.Trail
	clock   clock.Clock
	metrics *metrics.AppMetrics
}

// NewAuthService creates a new auth service instance.
func NewAuthService(
	store CredentialStore,
	hasher password.Hasher,
	policy *password.Policy,
	tokens TokenManager,
	authorizer Authorizer,
	trail *audit.Trail,
	clk clock.Clock,
	logger *slog.Logger,
) *AuthServiceImpl {
	if clk == nil {
		clk = clock.New()
	}
	return &AuthServiceImpl{
		logger:  logger,
		store:   store,
		hasher:  hasher,
		policy:  policy,
		tokens:  tokens,
		authz:   authorizer,
		trail:   trail,
		clock:   clk,
		metrics: metrics.Get(),
	}
}

// Login verifies credentials, stamps the last-login time and issues a token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, plaintext string) (*types.LoginResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("user.username", username),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.LoginDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	l := s.logger.With(slog.String("method", "Login"), slog.String("username", username))
	l.DebugContext(ctx, "Attempting login")

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Login for unknown user")
			s.loginFailed(ctx, span, username, "not_found", "unknown username")
			return nil, fmt.Errorf("error logging in: %w", types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load user")
		return nil, fmt.Errorf("error logging in: %w", err)
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		l.WarnContext(ctx, "Password mismatch")
		s.loginFailed(ctx, span, username, "bad_password", "password mismatch")
		return nil, fmt.Errorf("error logging in: %w", types.ErrInvalidCredentials)
	}
	if !user.IsActive {
		l.WarnContext(ctx, "Login to inactive account")
		s.loginFailed(ctx, span, username, "inactive", "account is inactive")
		return nil, fmt.Errorf("error logging in: %w", types.ErrInvalidCredentials)
	}

	now := s.clock.Now().UTC()
	user, err = s.mutate(ctx, username, user, func(u *types.User) error {
		u.LastLoginAt = &now
		return nil
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to record last login", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record last login")
		return nil, fmt.Errorf("error logging in: %w", err)
	}

	signed, expiresAt, err := s.tokens.Mint(user.Username, user.Role)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to issue token")
		return nil, fmt.Errorf("error logging in: %w", err)
	}

	metrics.Outcome(ctx, s.metrics.LoginAttemptsTotal, "success")
	s.trail.Emit(ctx, audit.TypeLoginSuccess, audit.SeverityInfo, username, "auth", "login succeeded")
	l.InfoContext(ctx, "User logged in", slog.String("role", string(user.Role)))
	span.SetStatus(codes.Ok, "User logged in")

	return &types.LoginResult{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User:        user.View(),
	}, nil
}

func (s *AuthServiceImpl) loginFailed(ctx context.Context, span trace.Span, username, outcome, reason string) {
	metrics.Outcome(ctx, s.metrics.LoginAttemptsTotal, outcome)
	s.trail.Emit(ctx, audit.TypeLoginFailure, audit.SeverityMedium, username, "auth", reason)
	span.SetStatus(codes.Error, reason)
}

// Register creates an active account after uniqueness, email and password policy checks.
func (s *AuthServiceImpl) Register(ctx context.Context, params RegisterParams) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.username", params.Username),
		attribute.String("user.role", string(params.Role)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"), slog.String("username", params.Username))
	l.DebugContext(ctx, "Registering user")

	fail := func(outcome string, err error) (*types.User, error) {
		metrics.Outcome(ctx, s.metrics.RegistrationsTotal, outcome)
		span.SetStatus(codes.Error, outcome)
		return nil, fmt.Errorf("error registering user: %w", err)
	}

	username := strings.TrimSpace(params.Username)
	email := strings.ToLower(strings.TrimSpace(params.Email))
	externalID := strings.TrimSpace(params.ExternalID)
	role := params.Role
	if role == "" {
		role = types.RolePlayer
	}

	switch {
	case username == "":
		return fail("invalid", fmt.Errorf("%w: username is required", types.ErrInvalidInput))
	case !validation.IsEmail(email):
		return fail("invalid", fmt.Errorf("%w: invalid email format", types.ErrInvalidInput))
	case !role.Valid():
		return fail("invalid", fmt.Errorf("%w: unknown role %q", types.ErrInvalidInput, role))
	}

	checks := []struct {
		exists func(context.Context, string) (bool, error)
		value  string
		dup    error
	}{
		{s.store.ExistsByUsername, username, types.ErrDuplicateUsername},
		{s.store.ExistsByEmail, email, types.ErrDuplicateEmail},
		{s.store.ExistsByExternalID, externalID, types.ErrDuplicateExternalID},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		taken, err := c.exists(ctx, c.value)
		if err != nil {
			l.ErrorContext(ctx, "Uniqueness check failed", slog.Any("error", err))
			span.RecordError(err)
			return fail("error", err)
		}
		if taken {
			l.WarnContext(ctx, "Duplicate registration", slog.Any("error", c.dup))
			return fail("duplicate", c.dup)
		}
	}

	user := &types.User{
		Username:      username,
		Email:         email,
		ExternalID:    externalID,
		Role:          role,
		Confederation: strings.TrimSpace(params.Confederation),
		Team:          strings.TrimSpace(params.Team),
	}

	if err := s.policy.Validate(params.Password, user, nil).Err(); err != nil {
		l.WarnContext(ctx, "Password rejected by policy", slog.Any("error", err))
		return fail("policy", err)
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		span.RecordError(err)
		return fail("error", err)
	}

	now := s.clock.Now().UTC()
	user.PasswordHash = hash
	user.PasswordHistory = []string{hash}
	user.PasswordChangedAt = &now
	user.IsActive = true
	user.CreatedAt = now

	if err := s.store.Save(ctx, user); err != nil {
		l.ErrorContext(ctx, "Failed to save user", slog.Any("error", err))
		span.RecordError(err)
		return fail("error", err)
	}

	metrics.Outcome(ctx, s.metrics.RegistrationsTotal, "success")
	s.trail.Emit(ctx, audit.TypeUserRegistered, audit.SeverityInfo, username, "users",
		fmt.Sprintf("registered with role %s", role))
	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return user, nil
}

// ChangePassword validates newPassword against the policy and the account's history,
// then rotates the history.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, username, newPassword string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ChangePassword", trace.WithAttributes(
		attribute.String("user.username", username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ChangePassword"), slog.String("username", username))
	l.DebugContext(ctx, "Changing password")

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		metrics.Outcome(ctx, s.metrics.PasswordChangesTotal, "not_found")
		span.SetStatus(codes.Error, "User lookup failed")
		return fmt.Errorf("error changing password: %w", err)
	}

	var hash string
	_, err = s.mutate(ctx, username, user, func(u *types.User) error {
		if err := s.policy.Validate(newPassword, u, u.PasswordHistory).Err(); err != nil {
			return err
		}
		if hash == "" {
			h, err := s.hasher.Hash(newPassword)
			if err != nil {
				return err
			}
			hash = h
		}
		now := s.clock.Now().UTC()
		u.PasswordHash = hash
		u.PasswordHistory = types.RotatePasswordHistory(u.PasswordHistory, hash)
		u.PasswordChangedAt = &now
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, types.ErrPolicyViolation) {
			outcome = "policy"
			l.WarnContext(ctx, "Password rejected by policy", slog.Any("error", err))
		} else {
			l.ErrorContext(ctx, "Failed to change password", slog.Any("error", err))
			span.RecordError(err)
		}
		metrics.Outcome(ctx, s.metrics.PasswordChangesTotal, outcome)
		span.SetStatus(codes.Error, outcome)
		return fmt.Errorf("error changing password: %w", err)
	}

	metrics.Outcome(ctx, s.metrics.PasswordChangesTotal, "success")
	s.trail.Emit(ctx, audit.TypePasswordChanged, audit.SeverityInfo, username, "users", "password rotated")
	l.InfoContext(ctx, "Password changed")
	span.SetStatus(codes.Ok, "Password changed")
	return nil
}

// IsPasswordExpired reports whether the account's password is past its role's maximum age.
func (s *AuthServiceImpl) IsPasswordExpired(ctx context.Context, username string) (bool, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "IsPasswordExpired", trace.WithAttributes(
		attribute.String("user.username", username),
	))
	defer span.End()

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		span.SetStatus(codes.Error, "User lookup failed")
		return false, fmt.Errorf("error checking password expiry: %w", err)
	}
	expired := s.policy.IsExpired(user)
	span.SetAttributes(attribute.Bool("password.expired", expired))
	span.SetStatus(codes.Ok, "Expiry computed")
	return expired, nil
}

// VerifyToken verifies a bearer token and records rejected tokens.
func (s *AuthServiceImpl) VerifyToken(ctx context.Context, token string) (*types.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		eventType, severity, outcome := audit.TypeInvalidToken, audit.SeverityMedium, "invalid"
		if errors.Is(err, types.ErrTokenExpired) {
			eventType, outcome = audit.TypeTokenExpired, "expired"
		}
		metrics.Outcome(ctx, s.metrics.TokenVerificationsTotal, outcome)
		s.trail.Emit(ctx, eventType, severity, "", "token", err.Error())
		return nil, err
	}
	metrics.Outcome(ctx, s.metrics.TokenVerificationsTotal, "valid")
	return claims, nil
}

// Authorize consults the permission matrix.
func (s *AuthServiceImpl) Authorize(ctx context.Context, role types.Role, operation authz.Operation, resource string) bool {
	return s.authz.Authorize(ctx, role, operation, resource)
}

// mutate applies fn to u and saves it, reloading and reapplying when the save loses an
// optimistic-lock race. Errors from fn abort without saving.
func (s *AuthServiceImpl) mutate(ctx context.Context, username string, u *types.User, fn func(*types.User) error) (*types.User, error) {
	for attempt := 0; ; attempt++ {
		if u == nil {
			var err error
			if u, err = s.store.FindByUsername(ctx, username); err != nil {
				return nil, err
			}
		}
		if err := fn(u); err != nil {
			return nil, err
		}
		err := s.store.Save(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, types.ErrStaleRecord) || attempt == maxStaleRetries {
			return nil, err
		}
		s.metrics.StaleRetriesTotal.Add(ctx, 1)
		s.logger.DebugContext(ctx, "Stale record, retrying",
			slog.String("username", username), slog.Int("attempt", attempt+1))
		u = nil
	}
}
