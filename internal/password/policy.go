// Package password implements credential hashing and the role-sensitive password policy.
package password

import (
	"strings"
	"time"
	"unicode"

	"github.com/FACorreiaa/tournament-auth/internal/clock"
	"github.com/FACorreiaa/tournament-auth/internal/types"
)

// Rule names a single password policy check.
type Rule string

const (
	RuleMinLength          Rule = "min_length"
	RuleMaxLength          Rule = "max_length"
	RuleLowercase          Rule = "lowercase"
	RuleUppercase          Rule = "uppercase"
	RuleDigits             Rule = "two_digits"
	RuleSymbol             Rule = "symbol"
	RuleContainsUsername   Rule = "contains_username"
	RuleContainsExternalID Rule = "contains_external_id"
	RuleBannedTerm         Rule = "banned_term"
	RuleReused             Rule = "reused"
)

const (
	minLength      = 8
	adminMinLength = 12
	minDigits      = 2
)

// Symbols is the punctuation set a password must draw at least one character from.
const Symbols = `!@#$%^&()_+=-[]{};':"\|,.<>/?`

var bannedTerms = []string{"fifa", "tournament", "worldcup", "league", "cup", "match"}

// maxPasswordAgeDays holds the expiration threshold per role. Roles missing here never
// have a valid password age.
var maxPasswordAgeDays = map[types.Role]int{
	types.RoleTeamManager: 60,
	types.RoleAdmin:       120,
	types.RolePlayer:      180,
}

// Outcome is the result of validating one candidate password.
type Outcome struct {
	Failed []Rule
}

// Valid reports whether every rule passed.
func (o Outcome) Valid() bool {
	return len(o.Failed) == 0
}

// Has reports whether rule r failed.
func (o Outcome) Has(r Rule) bool {
	for _, f := range o.Failed {
		if f == r {
			return true
		}
	}
	return false
}

// Err returns nil for a valid outcome, otherwise a *types.PolicyError.
func (o Outcome) Err() error {
	if o.Valid() {
		return nil
	}
	rules := make([]string, len(o.Failed))
	for i, r := range o.Failed {
		rules[i] = string(r)
	}
	return &types.PolicyError{Rules: rules}
}

// Policy validates candidate passwords and computes expiration.
type Policy struct {
	hasher Hasher
	clock  clock.Clock
}

// NewPolicy creates a Policy that checks history through hasher.
func NewPolicy(hasher Hasher, clk clock.Clock) *Policy {
	return &Policy{hasher: hasher, clock: clk}
}

// MinLength returns the minimum password length for role.
func MinLength(role types.Role) int {
	if role == types.RoleAdmin {
		return adminMinLength
	}
	return minLength
}

// Validate evaluates every rule against candidate and reports all failures.
func (p *Policy) Validate(candidate string, user *types.User, history []string) Outcome {
	var out Outcome
	fail := func(r Rule) { out.Failed = append(out.Failed, r) }

	role := types.Role("")
	if user != nil {
		role = user.Role
	}
	if len([]rune(candidate)) < MinLength(role) {
		fail(RuleMinLength)
	}
	if len(candidate) > maxPasswordBytes {
		fail(RuleMaxLength)
	}

	var lower, upper, digits, symbols int
	for _, c := range candidate {
		switch {
		case unicode.IsLower(c):
			lower++
		case unicode.IsUpper(c):
			upper++
		case c >= '0' && c <= '9':
			digits++
		case strings.ContainsRune(Symbols, c):
			symbols++
		}
	}
	if lower == 0 {
		fail(RuleLowercase)
	}
	if upper == 0 {
		fail(RuleUppercase)
	}
	if digits < minDigits {
		fail(RuleDigits)
	}
	if symbols == 0 {
		fail(RuleSymbol)
	}

	folded := strings.ToLower(candidate)
	if user != nil {
		if u := strings.ToLower(strings.TrimSpace(user.Username)); u != "" && strings.Contains(folded, u) {
			fail(RuleContainsUsername)
		}
		if id := strings.ToLower(strings.TrimSpace(user.ExternalID)); id != "" && strings.Contains(folded, id) {
			fail(RuleContainsExternalID)
		}
	}
	for _, term := range bannedTerms {
		if strings.Contains(folded, term) {
			fail(RuleBannedTerm)
			break
		}
	}

	for _, digest := range history {
		if p.hasher.Verify(candidate, digest) {
			fail(RuleReused)
			break
		}
	}
	return out
}

// IsExpired reports whether the user's password is past its role's maximum age.
// A missing change timestamp, or a role without a threshold, counts as expired.
func (p *Policy) IsExpired(user *types.User) bool {
	if user == nil || user.PasswordChangedAt == nil {
		return true
	}
	maxDays, ok := maxPasswordAgeDays[user.Role]
	if !ok {
		return true
	}
	days := int(p.clock.Now().Sub(*user.PasswordChangedAt) / (24 * time.Hour))
	return days > maxDays
}
