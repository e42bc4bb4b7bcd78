package types

import (
	"errors"
	"strings"
)

var (
	ErrNotFound            = errors.New("requested item not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrDuplicateEmail      = errors.New("email already exists")
	ErrDuplicateExternalID = errors.New("external id already exists")
	ErrPolicyViolation     = errors.New("password does not meet policy or was used recently")
	ErrInvalidInput        = errors.New("invalid input")
	ErrStaleRecord         = errors.New("record was modified concurrently")

	ErrTokenExpired          = errors.New("token has expired")
	ErrTokenInvalidSignature = errors.New("invalid token signature")
	ErrTokenMalformed        = errors.New("malformed token")

	ErrUnauthorized = errors.New("action forbidden")
)

// PolicyError lists the password rules a candidate failed.
type PolicyError struct {
	Rules []string
}

func (e *PolicyError) Error() string {
	return ErrPolicyViolation.Error() + ": " + strings.Join(e.Rules, ", ")
}

func (e *PolicyError) Unwrap() error {
	return ErrPolicyViolation
}
