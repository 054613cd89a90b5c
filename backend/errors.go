package backend

import (
	"encoding/json"
	"fmt"
	"net/http"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// HTTPError is a non-2xx response. Kind is the session error it maps to.
type HTTPError struct {
	Status  int
	Message string
	Code    string
	Kind    error
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%v: status %d (%s): %s", e.Kind, e.Status, e.Code, msg)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.Status, msg)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

// statusMapper picks the error kind for a non-2xx status.
type statusMapper func(status int) error

func mapLogin(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return autherrors.ErrInvalidCredentials
	}
	return autherrors.ErrTransport
}

func mapRefresh(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return autherrors.ErrRefreshExpired
	}
	return autherrors.ErrTransport
}

func mapAuthorized(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return autherrors.ErrUnauthorized
	}
	return autherrors.ErrTransport
}

func mapTransport(int) error {
	return autherrors.ErrTransport
}

func newHTTPError(status int, body []byte, mapper statusMapper) *HTTPError {
	e := &HTTPError{Status: status, Kind: mapper(status)}
	var parsed apiErrors
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		e.Message = parsed.Errors[0].Message
		e.Code = parsed.Errors[0].Extensions.Code
	}
	return e
}
