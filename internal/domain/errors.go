package domain

import "errors"

// ErrorKind names a failure category. Kinds are stable strings; they appear
// verbatim in the JSON "error" field of failed commands.
type ErrorKind string

const (
	ErrNotConfigured      ErrorKind = "NotConfigured"
	ErrInvalidCredentials ErrorKind = "InvalidCredentials"
	ErrInvalidPhone       ErrorKind = "InvalidPhone"
	ErrInvalidCode        ErrorKind = "InvalidCode"
	ErrExpiredCode        ErrorKind = "ExpiredCode"
	ErrInvalidPassword    ErrorKind = "InvalidPassword"
	ErrNotAuthenticated   ErrorKind = "NotAuthenticated"
	ErrTransport          ErrorKind = "TransportError"
	ErrNotFound           ErrorKind = "NotFound"
	ErrAmbiguousMatch     ErrorKind = "AmbiguousMatch"
	ErrLockContention     ErrorKind = "LockContention"
	ErrCorruptState       ErrorKind = "CorruptState"
)

// Error is a kind-tagged error. All failures the tool reports to the user
// carry one of these somewhere in the chain; everything else is an internal
// error rendered with a generic kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a kind-tagged error with a human-readable message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError tags an underlying error with a kind and context message.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost tagged error in err's chain,
// or "" when err carries no kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
