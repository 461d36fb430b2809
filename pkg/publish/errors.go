package publish

import (
	"errors"
	"fmt"
	"strings"
)

// AuthError means the remote rejected our credentials. Retrying without new
// credentials cannot succeed.
type AuthError struct {
	URL string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.URL, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError means the target repository does not exist or is not
// visible to us.
type NotFoundError struct {
	URL string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("repository not found: %s: %v", e.URL, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Error is a publish failure that fits no narrower class.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyError wraps a raw git error into the narrowest matching type.
func classifyError(op, url string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "authentication required"),
		strings.Contains(msg, "authorization failed"),
		strings.Contains(msg, "invalid credentials"):
		return &AuthError{URL: url, Err: err}
	case strings.Contains(msg, "repository not found"):
		return &NotFoundError{URL: url, Err: err}
	default:
		return &Error{Op: op, Err: err}
	}
}

// IsPermanent reports whether retrying the publish without operator
// intervention is pointless.
func IsPermanent(err error) bool {
	var authErr *AuthError
	var notFoundErr *NotFoundError
	return errors.As(err, &authErr) || errors.As(err, &notFoundErr)
}
