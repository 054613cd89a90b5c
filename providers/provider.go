// Package providers normalizes third-party identity flows into a single
// Result the session manager can act on.
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-auth-session/credentials"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// Kind identifies how a session was established.
type Kind string

const (
	Password Kind = "password"
	Apple    Kind = "apple"
	Facebook Kind = "facebook"
	Google   Kind = "google"
	Strava   Kind = "strava"
)

// ParseKind maps a stored provider name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Password, Apple, Facebook, Google, Strava:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", autherrors.ErrUnknownProvider, s)
	}
}

func (k Kind) String() string { return string(k) }

// Provider is a native identity flow. Implementations are stateless per call.
type Provider interface {
	Kind() Kind
	IsAvailable(ctx context.Context) bool
	SignIn(ctx context.Context) (*Result, error)
	SignOut(ctx context.Context) error
}

// ExchangeRequest asks the backend to trade a provider credential for a token pair.
type ExchangeRequest struct {
	Provider Kind   `json:"-"`
	Endpoint string `json:"-"` // Absolute URL of the provider-specific backend endpoint
	Payload  any    `json:"-"`
}

// Profile is the identity information a provider reported about the user.
type Profile struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// Result is the transient outcome of a sign-in. Exactly one of Tokens,
// Exchange or Cancelled is set.
type Result struct {
	Tokens    *credentials.TokenPair
	Exchange  *ExchangeRequest
	Profile   *Profile
	Cancelled bool
}

// CancelledResult is returned when the user backed out of the native flow.
func CancelledResult() *Result {
	return &Result{Cancelled: true}
}
