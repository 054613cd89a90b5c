// Package session owns the process-wide authentication session: login through
// any provider, hydration at startup, refresh, profile updates and logout.
// Mutating operations are serialized and report structured results instead
// of errors.
package session

import (
	"context"
	"errors"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/linking"
	"github.com/jrsteele09/go-auth-session/users"
)

type Status string

const (
	Initializing    Status = "initializing"
	Authenticated   Status = "authenticated"
	Unauthenticated Status = "unauthenticated"
)

// Session is a snapshot of the session state. User is nil unless Authenticated.
type Session struct {
	Status        Status             `json:"status"`
	Authenticated bool               `json:"authenticated"`
	Loading       bool               `json:"loading"`
	User          *users.UserProfile `json:"user,omitempty"`
}

func (s Session) clone() Session {
	s.User = s.User.Clone()
	return s
}

// ErrorKind classifies a failed operation for callers outside the module.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindInvalidCredentials  ErrorKind = "invalid_credentials"
	KindTransport           ErrorKind = "transport"
	KindRefreshExpired      ErrorKind = "refresh_expired"
	KindUnauthorized        ErrorKind = "unauthorized"
	KindCancelled           ErrorKind = "cancelled"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindInProgress          ErrorKind = "in_progress"
	KindLinking             ErrorKind = "linking"
	KindBusy                ErrorKind = "busy"
	KindStorage             ErrorKind = "storage"
	KindSuperseded          ErrorKind = "superseded"
	KindNotAuthenticated    ErrorKind = "not_authenticated"
	KindUnknown             ErrorKind = "unknown"
)

// Result is the outcome of a session operation.
type Result struct {
	Success   bool               `json:"success"`
	Cancelled bool               `json:"cancelled,omitempty"`
	Kind      ErrorKind          `json:"kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	User      *users.UserProfile `json:"user,omitempty"`
}

// LinkResult is the outcome of linking a fitness account.
type LinkResult struct {
	Success   bool             `json:"success"`
	Cancelled bool             `json:"cancelled,omitempty"`
	Account   *linking.Account `json:"account,omitempty"`
	Kind      ErrorKind        `json:"kind,omitempty"`
	Error     string           `json:"error,omitempty"`
}

var errBusy = errors.New("another session operation is in progress")

// kindOf maps an error chain to its ErrorKind. Order matters: a superseded
// or cancelled flow is reported as such even if a transport error caused it.
func kindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, autherrors.ErrSuperseded):
		return KindSuperseded
	case errors.Is(err, errBusy):
		return KindBusy
	case errors.Is(err, autherrors.ErrProviderCancelled):
		return KindCancelled
	case errors.Is(err, autherrors.ErrLinking):
		return KindLinking
	case errors.Is(err, autherrors.ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, autherrors.ErrRefreshExpired):
		return KindRefreshExpired
	case errors.Is(err, autherrors.ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, autherrors.ErrProviderUnavailable), errors.Is(err, autherrors.ErrUnknownProvider):
		return KindProviderUnavailable
	case errors.Is(err, autherrors.ErrSignInInProgress):
		return KindInProgress
	case errors.Is(err, autherrors.ErrNotAuthenticated):
		return KindNotAuthenticated
	case errors.Is(err, autherrors.ErrStore):
		return KindStorage
	case errors.Is(err, autherrors.ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTransport
	default:
		return KindUnknown
	}
}

// messages are safe to show to users.
var messages = map[ErrorKind]string{
	KindInvalidCredentials:  "Invalid email or password.",
	KindTransport:           "Unable to reach the server. Please try again.",
	KindRefreshExpired:      "Your session has expired. Please sign in again.",
	KindUnauthorized:        "Your session is no longer valid. Please sign in again.",
	KindCancelled:           "Sign-in was cancelled.",
	KindProviderUnavailable: "This sign-in method is not available on this device.",
	KindInProgress:          "A sign-in is already in progress.",
	KindLinking:             "Unable to link your account. Please try again.",
	KindBusy:                "Another operation is in progress. Please try again.",
	KindStorage:             "Unable to save your session on this device.",
	KindSuperseded:          "The operation was interrupted.",
	KindNotAuthenticated:    "You need to be signed in.",
	KindUnknown:             "Something went wrong. Please try again.",
}

func failure(err error) Result {
	kind := kindOf(err)
	return Result{
		Success:   false,
		Cancelled: kind == KindCancelled,
		Kind:      kind,
		Error:     messages[kind],
	}
}

func linkFailure(err error) LinkResult {
	kind := kindOf(err)
	if kind != KindCancelled && kind != KindNotAuthenticated && kind != KindBusy {
		kind = KindLinking
	}
	return LinkResult{
		Cancelled: kind == KindCancelled,
		Kind:      kind,
		Error:     messages[kind],
	}
}
