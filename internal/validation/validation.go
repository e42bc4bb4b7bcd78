// Package validation sanitizes free-form input and checks it against a small set of
// field formats.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind selects the format a value is checked against.
type Kind string

const (
	KindEmail       Kind = "EMAIL"
	KindPassword    Kind = "PASSWORD"
	KindExternalID  Kind = "EXTERNAL_ID"
	KindName        Kind = "NAME"
	KindGeneralText Kind = "GENERAL_TEXT"
)

const maxGeneralText = 255

var (
	emailPattern      = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	externalIDPattern = regexp.MustCompile(`^FIFA\d{6}$`)
	namePattern       = regexp.MustCompile(`^[a-zA-Z\s]{2,50}$`)

	unsafeChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "")
	unsafeWords = strings.NewReplacer("script", "", "javascript:", "")
)

const passwordSpecials = "@$!%*?&"

// ParseKind accepts a kind name in any case. FIFA_ID is accepted as an alias of EXTERNAL_ID.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case KindEmail, KindPassword, KindExternalID, KindName, KindGeneralText:
		return k, nil
	case "FIFA_ID":
		return KindExternalID, nil
	}
	return "", fmt.Errorf("unknown input type %q", s)
}

// Result reports the outcome of Check.
type Result struct {
	Valid     bool     `json:"valid"`
	Sanitized string   `json:"sanitized_input"`
	Errors    []string `json:"errors"`
}

// Sanitize strips markup characters and script markers, then trims whitespace.
func Sanitize(input string) string {
	return strings.TrimSpace(unsafeWords.Replace(unsafeChars.Replace(input)))
}

// Check sanitizes input and validates the result against kind.
func Check(input string, kind Kind) Result {
	res := Result{Errors: []string{}}
	if input == "" {
		res.Errors = append(res.Errors, "input cannot be empty")
		return res
	}

	clean := Sanitize(input)
	switch kind {
	case KindEmail:
		if !emailPattern.MatchString(clean) {
			res.Errors = append(res.Errors, "invalid email format")
		}
	case KindPassword:
		if !strongPassword(clean) {
			res.Errors = append(res.Errors,
				"password must contain at least 8 characters with uppercase, lowercase, number and special character")
		}
	case KindExternalID:
		if !externalIDPattern.MatchString(clean) {
			res.Errors = append(res.Errors, "external id must be in format FIFA######")
		}
	case KindName:
		if !namePattern.MatchString(clean) {
			res.Errors = append(res.Errors, "name must contain only letters and spaces, 2-50 characters")
		}
	case KindGeneralText:
		if utf8.RuneCountInString(clean) > maxGeneralText {
			res.Errors = append(res.Errors, fmt.Sprintf("text too long (max %d characters)", maxGeneralText))
		}
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("unknown input type %q", kind))
	}

	res.Sanitized = clean
	res.Valid = len(res.Errors) == 0
	return res
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// strongPassword is the coarse form check: 8+ characters drawn from letters, digits and
// @$!%*?&, with at least one of each class.
func strongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, c := range s {
		switch {
		case c <= unicode.MaxASCII && unicode.IsLower(c):
			lower = true
		case c <= unicode.MaxASCII && unicode.IsUpper(c):
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, c):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}
