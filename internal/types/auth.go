package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the claims carried by an access token.
type Claims struct {
	Roles                []string `json:"roles"` // canonical authorities, e.g. ROLE_PLAYER
	jwt.RegisteredClaims          // sub, iss, iat, exp
}

// Username returns the token subject.
func (c *Claims) Username() string {
	return c.Subject
}

// HasRole reports whether the claims carry the authority for r.
func (c *Claims) HasRole(r Role) bool {
	want := r.Authority()
	for _, a := range c.Roles {
		if a == want {
			return true
		}
	}
	return false
}

// PrimaryRole returns the first known role carried by the claims.
func (c *Claims) PrimaryRole() (Role, bool) {
	for _, a := range c.Roles {
		if r, ok := ParseRole(a); ok {
			return r, true
		}
	}
	return "", false
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserView  `json:"user"`
}
