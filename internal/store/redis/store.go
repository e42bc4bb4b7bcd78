// Package redis is a Redis-backed credential store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/tournament-auth/internal/types"
)

// record is the stored form of a user; types.User hides credentials from JSON.
type record struct {
	ID                uuid.UUID  `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	ExternalID        string     `json:"external_id,omitempty"`
	Role              types.Role `json:"role"`
	Confederation     string     `json:"confederation,omitempty"`
	Team              string     `json:"team,omitempty"`
	PasswordHash      string     `json:"password_hash"`
	PasswordHistory   []string   `json:"password_history"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	Version           int64      `json:"version"`
}

func toRecord(u *types.User) record {
	return record{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		ExternalID:        u.ExternalID,
		Role:              u.Role,
		Confederation:     u.Confederation,
		Team:              u.Team,
		PasswordHash:      u.PasswordHash,
		PasswordHistory:   u.PasswordHistory,
		PasswordChangedAt: u.PasswordChangedAt,
		IsActive:          u.IsActive,
		CreatedAt:         u.CreatedAt,
		LastLoginAt:       u.LastLoginAt,
		Version:           u.Version,
	}
}

func (r record) user() *types.User {
	return &types.User{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email,
		ExternalID:        r.ExternalID,
		Role:              r.Role,
		Confederation:     r.Confederation,
		Team:              r.Team,
		PasswordHash:      r.PasswordHash,
		PasswordHistory:   r.PasswordHistory,
		PasswordChangedAt: r.PasswordChangedAt,
		IsActive:          r.IsActive,
		CreatedAt:         r.CreatedAt,
		LastLoginAt:       r.LastLoginAt,
		Version:           r.Version,
	}
}

// Store keeps each user as a JSON document with email and external-ID index keys.
type Store struct {
	client *redis.Client
	cfg    Config
}

// New connects to Redis and verifies the connection.
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Store{client: client, cfg: cfg}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.load(ctx, s.client, username)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, username string) (*types.User, error) {
	data, err := c.Get(ctx, s.userKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return r.user(), nil
}

func (s *Store) exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, s.userKey(username))
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, s.emailKey(email))
}

func (s *Store) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	return s.exists(ctx, s.externalIDKey(externalID))
}

// Save inserts u when u.Version is 0 and otherwise replaces the stored record if its version
// still matches. The user key and the target index keys are WATCHed so a concurrent write
// between the check and the MULTI aborts with types.ErrStaleRecord.
func (s *Store) Save(ctx context.Context, u *types.User) error {
	userKey := s.userKey(u.Username)
	emailKey := s.emailKey(u.Email)
	watched := []string{userKey, emailKey}
	extKey := ""
	if u.ExternalID != "" {
		extKey = s.externalIDKey(u.ExternalID)
		watched = append(watched, extKey)
	}

	next := toRecord(u)
	if next.ID == uuid.Nil {
		next.ID = uuid.New()
	}
	next.Version = u.Version + 1

	txf := func(tx *redis.Tx) error {
		current, err := s.load(ctx, tx, u.Username)
		switch {
		case errors.Is(err, types.ErrNotFound):
			if u.Version != 0 {
				return types.ErrNotFound
			}
			current = nil
		case err != nil:
			return err
		case u.Version == 0:
			return types.ErrDuplicateUsername
		case current.Version != u.Version:
			return types.ErrStaleRecord
		}

		if err := s.checkIndex(ctx, tx, emailKey, u.Username, types.ErrDuplicateEmail); err != nil {
			return err
		}
		if extKey != "" {
			if err := s.checkIndex(ctx, tx, extKey, u.Username, types.ErrDuplicateExternalID); err != nil {
				return err
			}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if current != nil {
				if old := s.emailKey(current.Email); old != emailKey {
					pipe.Del(ctx, old)
				}
				if current.ExternalID != "" && current.ExternalID != u.ExternalID {
					pipe.Del(ctx, s.externalIDKey(current.ExternalID))
				}
			}
			pipe.Set(ctx, userKey, data, 0)
			pipe.Set(ctx, emailKey, u.Username, 0)
			if extKey != "" {
				pipe.Set(ctx, extKey, u.Username, 0)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		return types.ErrStaleRecord
	}
	if err != nil {
		return err
	}

	u.ID = next.ID
	u.Version = next.Version
	return nil
}

func (s *Store) checkIndex(ctx context.Context, tx *redis.Tx, key, username string, dup error) error {
	owner, err := tx.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}
	if owner != username {
		return dup
	}
	return nil
}
