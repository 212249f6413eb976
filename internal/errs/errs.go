// Package errs defines the error taxonomy shared by the session manager and the resolver.
package errs

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks.
var (
	ErrAuth         = errors.New("auth error")
	ErrInvalidInput = errors.New("invalid input")
	ErrPassword     = errors.New("password error")
	ErrProvider     = errors.New("provider error")
	ErrStructural   = errors.New("structural error")
)

// AuthError is returned when the API token or verification token cannot be obtained,
// or the provider rejects the credentials. It aborts the whole resolution.
type AuthError struct {
	Msg string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// InvalidInputError is returned when neither a content id nor a matching share URL was given.
type InvalidInputError struct {
	Msg string
}

func (e *InvalidInputError) Error() string { return e.Msg }

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// PasswordError reports a node whose passwordStatus is not passwordOk.
type PasswordError struct {
	ContentID string
	Status    string
}

func (e *PasswordError) Error() string {
	return fmt.Sprintf("invalid password for %s: %s", e.ContentID, e.Status)
}

func (e *PasswordError) Is(target error) bool { return target == ErrPassword }

// ProviderError reports a non-ok status, a malformed payload or a timed out request for one node.
type ProviderError struct {
	ContentID string
	Status    string
	Timeout   bool
	Err       error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("provider request for %s timed out", e.ContentID)
	case e.Err != nil:
		return fmt.Sprintf("provider error for %s: %v", e.ContentID, e.Err)
	default:
		return fmt.Sprintf("provider error for %s: status %q", e.ContentID, e.Status)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// StructuralError is returned when the folder graph has a cycle or exceeds the depth limit.
type StructuralError struct {
	ContentID string
	Depth     int
	Cycle     bool
}

func (e *StructuralError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("folder %s visited twice: cycle in content graph", e.ContentID)
	}
	return fmt.Sprintf("folder %s exceeds maximum depth %d", e.ContentID, e.Depth)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructural }

// AsAuth checks if an error is an AuthError and returns it.
func AsAuth(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// AsProvider checks if an error is a ProviderError and returns it.
func AsProvider(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// AsPassword checks if an error is a PasswordError and returns it.
func AsPassword(err error) (*PasswordError, bool) {
	var pe *PasswordError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsNodeLocal reports whether err only affects the node it was raised for.
func IsNodeLocal(err error) bool {
	return errors.Is(err, ErrPassword) || errors.Is(err, ErrProvider)
}
