package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/tournament-auth/internal/api"
	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenVerifier is the part of AuthService the middleware needs.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*types.Claims, error)
}

// WithClaims returns a context carrying verified claims. The subject also becomes the
// audit actor for anything recorded further down the request.
func WithClaims(ctx context.Context, claims *types.Claims) context.Context {
	if claims != nil {
		ctx = audit.WithActor(ctx, claims.Subject)
	}
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*types.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*types.Claims)
	return claims, ok && claims != nil
}

// Authenticate verifies the bearer token and stores its claims in the request context.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString, ok := api.BearerToken(r)
			if !ok {
				l.WarnContext(ctx, "Missing or malformed Authorization header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			claims, err := verifier.VerifyToken(ctx, tokenString)
			if err != nil {
				l.WarnContext(ctx, "Token verification failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, api.PublicMessage(err))
				return
			}

			l.DebugContext(ctx, "Authentication successful", slog.String("username", claims.Subject))
			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// RequirePermission lets the request through only when the caller's role may perform op.
// Runs after Authenticate.
func RequirePermission(authorizer Authorizer, op authz.Operation, resource string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, ok := ClaimsFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "Claims missing from context", slog.String("operation", string(op)))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "authentication required")
				return
			}

			role, _ := claims.PrimaryRole()
			if !authorizer.Authorize(ctx, role, op, resource) {
				api.ErrorResponse(w, r, http.StatusForbidden, types.ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
