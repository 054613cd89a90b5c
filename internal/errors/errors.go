package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the session client
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// Token errors
	ErrRefreshExpired   = errors.New("refresh token expired")
	ErrInvalidTokenPair = errors.New("invalid token pair")

	// Transport errors (network failure, timeout, unexpected status)
	ErrTransport = errors.New("transport error")

	// Provider errors
	ErrProviderCancelled   = errors.New("provider flow cancelled")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrSignInInProgress    = errors.New("provider sign-in already in progress")
	ErrUnknownProvider     = errors.New("unknown provider")

	// Account linking errors
	ErrLinking = errors.New("account linking failed")

	// Storage errors
	ErrStore = errors.New("credential store error")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSuperseded       = errors.New("operation superseded")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Kindf builds an error that matches kind via errors.Is, with a formatted message
func Kindf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, nil if all are nil
func Join(errs ...error) error {
	return errors.Join(errs...)
}
