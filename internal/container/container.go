package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/tournament-auth/app/db"
	"github.com/FACorreiaa/tournament-auth/config"
	"github.com/FACorreiaa/tournament-auth/internal/api/auth"
	"github.com/FACorreiaa/tournament-auth/internal/api/security"
	"github.com/FACorreiaa/tournament-auth/internal/audit"
	"github.com/FACorreiaa/tournament-auth/internal/authz"
	"github.com/FACorreiaa/tournament-auth/internal/clock"
	"github.com/FACorreiaa/tournament-auth/internal/password"
	"github.com/FACorreiaa/tournament-auth/internal/sealer"
	"github.com/FACorreiaa/tournament-auth/internal/store/memory"
	redisstore "github.com/FACorreiaa/tournament-auth/internal/store/redis"
	"github.com/FACorreiaa/tournament-auth/internal/token"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *slog.Logger
	Pool            *pgxpool.Pool
	Tokens          *token.Manager
	Hasher          *password.BcryptHasher
	AuthService     *auth.AuthServiceImpl
	AuthHandler     *auth.AuthHandler
	SecurityHandler *security.SecurityHandler

	closers []func() error
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	clk := clock.New()

	tokens, err := token.NewManager(token.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.TokenTTL(),
		Issuer: cfg.JWT.Issuer,
	}, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	c.Tokens = tokens

	seal, err := sealer.New(cfg.Security.SealingSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}

	store, recorder, lister, err := c.initStorage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	trail := audit.NewTrail(recorder, logger, clk)
	matrix := authz.NewMatrix(trail, logger)

	c.Hasher = password.NewBcryptHasher(cfg.Password.BcryptCost)
	policy := password.NewPolicy(c.Hasher, clk)

	c.AuthService = auth.NewAuthService(store, c.Hasher, policy, tokens, matrix, trail, clk, logger)
	c.AuthHandler = auth.NewAuthHandler(c.AuthService, logger)

	securityService := security.NewSecurityService(tokens, matrix, seal, trail, lister, logger)
	c.SecurityHandler = security.NewSecurityHandler(securityService, logger)

	return c, nil
}

// initStorage selects the credential store by storage.driver. Audit events always go to
// the log; Postgres also persists them, other drivers keep a bounded in-memory history.
func (c *Container) initStorage(ctx context.Context) (auth.CredentialStore, audit.Recorder, audit.Lister, error) {
	logRecorder := audit.NewSlogRecorder(c.Logger)

	switch c.Config.Storage.Driver {
	case "postgres":
		dbCfg, err := database.NewDatabaseConfig(c.Config, c.Logger)
		if err != nil {
			return nil, nil, nil, err
		}
		pool, err := database.Init(ctx, dbCfg, c.Logger)
		if err != nil {
			return nil, nil, nil, err
		}
		c.Pool = pool
		c.closers = append(c.closers, func() error { pool.Close(); return nil })
		if !database.WaitForDB(ctx, pool, c.Logger) {
			return nil, nil, nil, errors.New("database not ready")
		}

		pgRecorder := audit.NewPostgresRecorder(pool)
		return auth.NewPostgresCredentialStore(pool, c.Logger),
			audit.MultiRecorder{logRecorder, pgRecorder}, pgRecorder, nil

	case "redis":
		rc := c.Config.Repositories.Redis
		rcfg := redisstore.DefaultConfig()
		if rc.URL != "" {
			rcfg.URL = rc.URL
		}
		if rc.PoolSize > 0 {
			rcfg.PoolSize = rc.PoolSize
		}
		if rc.MinIdleConns > 0 {
			rcfg.MinIdleConns = rc.MinIdleConns
		}
		if rc.KeyPrefix != "" {
			rcfg.KeyPrefix = rc.KeyPrefix
		}
		store, err := redisstore.New(rcfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.closers = append(c.closers, store.Close)
		ring := audit.NewMemoryRecorder(c.Config.Security.AuditBuffer)
		return store, audit.MultiRecorder{logRecorder, ring}, ring, nil

	case "memory", "":
		c.Logger.Warn("Using in-memory credential store; accounts are lost on restart")
		ring := audit.NewMemoryRecorder(c.Config.Security.AuditBuffer)
		return memory.New(), audit.MultiRecorder{logRecorder, ring}, ring, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage driver %q", c.Config.Storage.Driver)
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("Error releasing resource", slog.Any("error", err))
		}
	}
	c.closers = nil
}
