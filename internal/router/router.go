package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appLogger "github.com/FACorreiaa/tournament-auth/app/logger"
	appMiddleware "github.com/FACorreiaa/tournament-auth/app/middleware"
	"github.com/FACorreiaa/tournament-auth/internal/api/auth"
	"github.com/FACorreiaa/tournament-auth/internal/api/security"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
)

// Gatekeeper verifies tokens and consults the permission matrix.
type Gatekeeper interface {
	auth.TokenVerifier
	auth.Authorizer
}

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler     *auth.AuthHandler
	SecurityHandler *security.SecurityHandler
	Gatekeeper      Gatekeeper
	Logger          *slog.Logger
	AllowedOrigins  []string
	Timeout         time.Duration
}

// SetupRouter builds the HTTP handler with server-wide middleware, the public and
// authenticated /api/v1 routes and the swagger UI.
func SetupRouter(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(appMiddleware.Instrument)
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	authenticate := auth.Authenticate(cfg.Gatekeeper, cfg.Logger)
	require := func(op authz.Operation, resource string) func(http.Handler) http.Handler {
		return auth.RequirePermission(cfg.Gatekeeper, op, resource, cfg.Logger)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Group(func(r chi.Router) {
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/security/validate-token", cfg.SecurityHandler.ValidateToken)
			r.Post("/security/validate-input", cfg.SecurityHandler.ValidateInput)
		})

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/auth/me", cfg.AuthHandler.Me)
			r.Put("/auth/password", cfg.AuthHandler.ChangePassword)
			r.Get("/auth/password/expired", cfg.AuthHandler.PasswordExpired)

			r.Post("/security/authorize", cfg.SecurityHandler.Authorize)
			r.Post("/security/log-event", cfg.SecurityHandler.LogEvent)

			r.With(require(authz.OpManageSecurity, "sealed-data")).Post("/security/encrypt", cfg.SecurityHandler.Encrypt)
			r.With(require(authz.OpManageSecurity, "sealed-data")).Post("/security/decrypt", cfg.SecurityHandler.Decrypt)
			r.With(require(authz.OpAuditLogs, "audit")).Get("/security/audit", cfg.SecurityHandler.AuditEvents)
		})
	})

	return r
}
