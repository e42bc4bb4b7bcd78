package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is one of the fixed account roles.
type Role string

const (
	RoleGuest               Role = "GUEST"
	RolePlayer              Role = "PLAYER"
	RoleCoach               Role = "COACH"
	RoleTeamManager         Role = "TEAM_MANAGER"
	RoleTournamentDirector  Role = "TOURNAMENT_DIRECTOR"
	RoleAdmin               Role = "ADMIN"
	RoleMatchOfficial       Role = "MATCH_OFFICIAL"
	RoleMediaRepresentative Role = "MEDIA_REPRESENTATIVE"
)

// AuthorityPrefix is carried by every role claim in an issued token.
const AuthorityPrefix = "ROLE_"

// MaxPasswordHistory bounds User.PasswordHistory.
const MaxPasswordHistory = 8

var knownRoles = map[Role]string{
	RoleGuest:               "Guest",
	RolePlayer:              "Player",
	RoleCoach:               "Coach",
	RoleTeamManager:         "Team Manager",
	RoleTournamentDirector:  "Tournament Director",
	RoleAdmin:               "Admin",
	RoleMatchOfficial:       "Match Official",
	RoleMediaRepresentative: "Media Representative",
}

// ParseRole accepts a role name in any case, with or without the authority prefix.
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, AuthorityPrefix)
	r := Role(s)
	_, ok := knownRoles[r]
	return r, ok
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// DisplayName returns the human readable role name.
func (r Role) DisplayName() string {
	if name, ok := knownRoles[r]; ok {
		return name
	}
	return string(r)
}

// Authority returns the canonical authority claim for the role.
func (r Role) Authority() string {
	return CanonicalAuthority(string(r))
}

// CanonicalAuthority prefixes an authority with ROLE_ unless it already carries it.
func CanonicalAuthority(a string) string {
	if strings.HasPrefix(a, AuthorityPrefix) {
		return a
	}
	return AuthorityPrefix + a
}

// User is the credential-store record for an account.
type User struct {
	ID                uuid.UUID  `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	ExternalID        string     `json:"external_id,omitempty"` // federation registration ID, empty for guests
	Role              Role       `json:"role"`
	Confederation     string     `json:"confederation,omitempty"`
	Team              string     `json:"team,omitempty"`
	PasswordHash      string     `json:"-"`
	PasswordHistory   []string   `json:"-"` // most recent first, PasswordHash at index 0
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	Version           int64      `json:"-"` // optimistic lock counter, 0 until first save
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.PasswordHistory != nil {
		c.PasswordHistory = append([]string(nil), u.PasswordHistory...)
	}
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

// RotatePasswordHistory returns a new history with hash prepended, truncated to MaxPasswordHistory.
// The input slice is never modified.
func RotatePasswordHistory(history []string, hash string) []string {
	n := len(history) + 1
	if n > MaxPasswordHistory {
		n = MaxPasswordHistory
	}
	rotated := make([]string, 0, n)
	rotated = append(rotated, hash)
	for _, h := range history {
		if len(rotated) == n {
			break
		}
		rotated = append(rotated, h)
	}
	return rotated
}

// UserView is the public projection of a User returned by the API.
type UserView struct {
	ID            uuid.UUID  `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	Username      string     `json:"username" example:"alice"`
	Email         string     `json:"email" example:"alice@example.com"`
	Role          Role       `json:"role" example:"PLAYER"`
	ExternalID    string     `json:"external_id,omitempty" example:"FIFA000123"`
	Confederation string     `json:"confederation,omitempty" example:"UEFA"`
	Team          string     `json:"team,omitempty" example:"Portugal"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// View projects u for API responses.
func (u *User) View() UserView {
	return UserView{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		ExternalID:    u.ExternalID,
		Confederation: u.Confederation,
		Team:          u.Team,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}
