package api

import (
	"errors"
	"fmt"
)

// Op identifies which remote operation failed. Callers branch on it to pick
// user-facing messaging; the client never retries on its own.
type Op string

const (
	OpLogin       Op = "login"
	OpList        Op = "list"
	OpCreate      Op = "create"
	OpDelete      Op = "delete"
	OpUpdate      Op = "update"
	OpStartReport Op = "start-report"
	OpCheckReport Op = "check-report"
)

// Error is a failed remote call: either a non-2xx response (Status > 0) or a
// transport failure (Status == 0, Err carries the cause).
type Error struct {
	Op      Op
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Transport reports whether the call never produced an HTTP response.
func (e *Error) Transport() bool { return e.Status == 0 }

// IsUnauthorized reports whether err is a remote rejection of the credential
// token. The session holder drops the token when this is seen mid-session.
func IsUnauthorized(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == 401
}

// ErrOf extracts the *Error from err, if any.
func ErrOf(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
