// Package memory is an in-process credential store for development and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/tournament-auth/internal/types"
)

const (
	userPrefix  = "user:"
	emailPrefix = "email:"
	extPrefix   = "ext:"
)

// Store keeps users in a go-cache instance with no expiry. Records are cloned on the way in
// and out so callers never share memory with the store.
type Store struct {
	mu    sync.Mutex // serializes Save so the version check and index writes are atomic
	cache *cache.Cache
}

func New() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) FindByUsername(_ context.Context, username string) (*types.User, error) {
	v, ok := s.cache.Get(userPrefix + username)
	if !ok {
		return nil, types.ErrNotFound
	}
	return v.(*types.User).Clone(), nil
}

func (s *Store) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := s.cache.Get(userPrefix + username)
	return ok, nil
}

func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := s.cache.Get(emailPrefix + strings.ToLower(email))
	return ok, nil
}

func (s *Store) ExistsByExternalID(_ context.Context, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	_, ok := s.cache.Get(extPrefix + externalID)
	return ok, nil
}

// Save inserts u when u.Version is 0 and otherwise replaces the stored record if its version
// still matches. On success u.Version holds the new version.
func (s *Store) Save(_ context.Context, u *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	current, exists := s.cache.Get(userPrefix + u.Username)

	if u.Version == 0 {
		if exists {
			return types.ErrDuplicateUsername
		}
		if _, taken := s.cache.Get(emailPrefix + email); taken {
			return types.ErrDuplicateEmail
		}
		if u.ExternalID != "" {
			if _, taken := s.cache.Get(extPrefix + u.ExternalID); taken {
				return types.ErrDuplicateExternalID
			}
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
	} else {
		if !exists {
			return types.ErrNotFound
		}
		stored := current.(*types.User)
		if stored.Version != u.Version {
			return types.ErrStaleRecord
		}
		if owner, taken := s.cache.Get(emailPrefix + email); taken && owner != u.Username {
			return types.ErrDuplicateEmail
		}
		if u.ExternalID != "" {
			if owner, taken := s.cache.Get(extPrefix + u.ExternalID); taken && owner != u.Username {
				return types.ErrDuplicateExternalID
			}
		}
		s.cache.Delete(emailPrefix + strings.ToLower(stored.Email))
		if stored.ExternalID != "" {
			s.cache.Delete(extPrefix + stored.ExternalID)
		}
	}

	u.Version++
	s.cache.Set(userPrefix+u.Username, u.Clone(), cache.NoExpiration)
	s.cache.Set(emailPrefix+email, u.Username, cache.NoExpiration)
	if u.ExternalID != "" {
		s.cache.Set(extPrefix+u.ExternalID, u.Username, cache.NoExpiration)
	}
	return nil
}

// Count returns the number of stored users.
func (s *Store) Count() int {
	n := 0
	for k := range s.cache.Items() {
		if strings.HasPrefix(k, userPrefix) {
			n++
		}
	}
	return n
}
