package auth

import "errors"

// Token failures.
var (
	ErrMalformedToken    = errors.New("malformed token")
	ErrSignatureMismatch = errors.New("token signature mismatch")
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidSubject    = errors.New("subject id must be positive")
	ErrInvalidLifetime   = errors.New("token lifetime must be at least one second")
)

// Session failures.
var (
	ErrSubjectMismatch = errors.New("token subject does not match claimed user")
	ErrUserNotFound    = errors.New("user not found")
	ErrStorageFailure  = errors.New("user storage failure")
)

// AuthErrorKind classifies why the gate rejected a request.
type AuthErrorKind int

const (
	AuthMissing AuthErrorKind = iota + 1
	AuthInvalidOrExpired
	AuthSessionInvalid
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthMissing:
		return "missing"
	case AuthInvalidOrExpired:
		return "invalid_or_expired"
	case AuthSessionInvalid:
		return "session_invalid"
	default:
		return "unknown"
	}
}

// AuthError is returned by Gate.Authenticate.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "authentication failed (" + e.Kind.String() + "): " + e.Err.Error()
	}
	return "authentication failed (" + e.Kind.String() + ")"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Message returns the client facing text for the failure.
func (e *AuthError) Message() string {
	switch e.Kind {
	case AuthMissing:
		return "authentication token not provided"
	case AuthInvalidOrExpired:
		return "invalid or expired token"
	default:
		return "invalid session"
	}
}

// reason maps an error to a short label for logs and metrics.
func reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrSubjectMismatch):
		return "subject_mismatch"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	default:
		return "error"
	}
}
