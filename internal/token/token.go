// Package token issues and verifies the HS256 bearer tokens handed out at login.
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/tournament-auth/internal/clock"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

const (
	DefaultTTL    = time.Hour
	DefaultIssuer = "tournament-auth"

	minKeyBytes = 32
)

// iat and exp keep millisecond precision so a token lives exactly TTL from issue.
func init() {
	jwt.TimePrecision = time.Millisecond
}

// Config holds the signing parameters.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Manager signs and verifies tokens. It is safe for concurrent use; the key never changes
// after construction.
type Manager struct {
	key    []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
	parser *jwt.Parser
}

// NewManager creates a Manager. An empty secret is rejected.
func NewManager(cfg Config, clk clock.Clock) (*Manager, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("token: signing secret must not be empty")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Manager{
		key:    deriveKey(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		clock:  clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

// deriveKey uses the secret directly when it is base64 for at least 32 bytes,
// otherwise its SHA-256 digest.
func deriveKey(secret string) []byte {
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) >= minKeyBytes {
		return raw
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for username carrying the canonical authority of role.
func (m *Manager) Issue(username string, role types.Role) (string, error) {
	signed, _, err := m.Mint(username, role)
	return signed, err
}

// Mint is Issue that also returns the expiry written into the token.
func (m *Manager) Mint(username string, role types.Role) (string, time.Time, error) {
	now := m.clock.Now()
	claims := types.Claims{
		Roles: []string{role.Authority()},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks structure, signature, issuer and expiry, in that order.
func (m *Manager) Verify(tokenString string) (*types.Claims, error) {
	if err := checkStructure(tokenString); err != nil {
		return nil, err
	}

	claims := &types.Claims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// IsExpired reports whether an otherwise valid token has passed its expiry.
func (m *Manager) IsExpired(tokenString string) (bool, error) {
	_, err := m.Verify(tokenString)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, types.ErrTokenExpired):
		return true, nil
	default:
		return false, err
	}
}

// ExtractUsername returns the subject of a valid token.
func (m *Manager) ExtractUsername(tokenString string) (string, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractRoles returns the authorities of a valid token.
func (m *Manager) ExtractRoles(tokenString string) ([]string, error) {
	claims, err := m.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

// checkStructure separates malformed input from tokens whose signature segment was altered.
func checkStructure(tokenString string) error {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: expected 3 segments, got %d", types.ErrTokenMalformed, len(parts))
	}
	for i, name := range []string{"header", "payload"} {
		raw, err := base64.RawURLEncoding.Strict().DecodeString(parts[i])
		if err != nil {
			return fmt.Errorf("%w: %s is not base64url", types.ErrTokenMalformed, name)
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("%w: %s is not a JSON object", types.ErrTokenMalformed, name)
		}
	}
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
		return fmt.Errorf("%w: signature is not base64url", types.ErrTokenInvalidSignature)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", types.ErrTokenInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", types.ErrTokenExpired, err)
	default:
		// wrong issuer, missing exp, undecodable claims
		return fmt.Errorf("%w: %v", types.ErrTokenMalformed, err)
	}
}
