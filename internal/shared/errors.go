package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates login failure. It never says which of
	// username or password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAccountInactive indicates the account exists but has been disabled.
	ErrAccountInactive = errors.New("user account is inactive")
	// ErrTokenInvalid covers malformed, unsigned, tampered and expired tokens.
	ErrTokenInvalid = errors.New("invalid authentication credentials")
	// ErrForbidden indicates an authenticated caller was denied.
	ErrForbidden = errors.New("forbidden")
	// ErrNoDUNAssignment is a forbidden subtype for principals without a DUN.
	ErrNoDUNAssignment = fmt.Errorf("%w: user has no DUN assignment", ErrForbidden)
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBackingStore wraps any I/O fault from the database or cache.
	ErrBackingStore = errors.New("backing store failure")
)

// Kind names a stable error category for clients.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountInactive    Kind = "account_inactive"
	KindTokenInvalid       Kind = "token_invalid"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindInvalidInput       Kind = "invalid_input"
	KindInternal           Kind = "internal"
)

// KindOf classifies err into the public taxonomy.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return KindAccountInactive
	case errors.Is(err, ErrTokenInvalid):
		return KindTokenInvalid
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// StoreError wraps err as a backing store failure. Nil stays nil.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackingStore, err)
}

// InvalidInput builds an ErrInvalidInput with a client-facing reason.
func InvalidInput(reason string) error {
	return &reasonError{kind: ErrInvalidInput, reason: reason}
}

// InvalidCredentials builds an ErrInvalidCredentials with a client-facing reason.
func InvalidCredentials(reason string) error {
	return &reasonError{kind: ErrInvalidCredentials, reason: reason}
}

// Forbidden builds an ErrForbidden with a client-facing reason.
func Forbidden(reason string) error {
	return &reasonError{kind: ErrForbidden, reason: reason}
}

// NotFound builds an ErrNotFound with a client-facing reason.
func NotFound(reason string) error {
	return &reasonError{kind: ErrNotFound, reason: reason}
}

type reasonError struct {
	kind   error
	reason string
}

func (e *reasonError) Error() string { return e.reason }

func (e *reasonError) Unwrap() error { return e.kind }

// Reasoned is implemented by errors that carry a message safe to show users.
type Reasoned interface {
	Reason() string
}

func (e *reasonError) Reason() string { return e.reason }

// UserSafeMessage returns a one-line message suitable for API responses.
// Internal failures collapse to a generic message.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var reasoned Reasoned
	if errors.As(err, &reasoned) {
		return reasoned.Reason()
	}
	switch KindOf(err) {
	case KindInvalidCredentials:
		return "Invalid username or password"
	case KindAccountInactive:
		return "User account is inactive"
	case KindTokenInvalid:
		return "Could not validate credentials"
	case KindForbidden:
		if errors.Is(err, ErrNoDUNAssignment) {
			return "User has no DUN assignment"
		}
		return "Access denied"
	case KindNotFound:
		return "Resource not found"
	case KindInvalidInput:
		return "Invalid input"
	default:
		return "Internal server error"
	}
}
