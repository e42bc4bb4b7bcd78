package redis

import "strings"

func (s *Store) userKey(username string) string {
	return s.cfg.KeyPrefix + ":user:" + username
}

func (s *Store) emailKey(email string) string {
	return s.cfg.KeyPrefix + ":email:" + strings.ToLower(email)
}

func (s *Store) externalIDKey(id string) string {
	return s.cfg.KeyPrefix + ":ext:" + id
}
