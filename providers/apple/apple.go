// Package apple adapts Sign in with Apple to the providers.Provider interface.
package apple

import (
	"context"
	"errors"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
)

// ErrCanceled is returned by the SDK when the user dismisses the sheet.
var ErrCanceled = errors.New("apple: authorization canceled")

// Requested scopes
const (
	ScopeFullName = "full_name"
	ScopeEmail    = "email"
)

// Credential is what the native authorization request returns.
type Credential struct {
	User              string
	AuthorizationCode string
	IdentityToken     string
	Email             string
	GivenName         string
	FamilyName        string
}

// SDK is the native Sign in with Apple surface.
type SDK interface {
	Supported() bool
	PerformRequest(ctx context.Context, scopes []string) (*Credential, error)
}

type Config struct {
	RedirectURI string                     // Backend endpoint that exchanges the authorization code
	Verifier    providers.IdentityVerifier // Optional; when set the identity token must verify
}

// exchangePayload is the body posted to RedirectURI.
type exchangePayload struct {
	Code string `json:"code"`
}

var _ providers.Provider = (*Provider)(nil)

type Provider struct {
	sdk    SDK
	config Config
}

func New(sdk SDK, config Config) *Provider {
	return &Provider{sdk: sdk, config: config}
}

func (p *Provider) Kind() providers.Kind { return providers.Apple }

func (p *Provider) IsAvailable(_ context.Context) bool {
	return p.sdk != nil && p.sdk.Supported()
}

func (p *Provider) SignIn(ctx context.Context) (*providers.Result, error) {
	if !p.IsAvailable(ctx) {
		return nil, providers.Fail(providers.Apple, providers.StageAvailability, autherrors.ErrProviderUnavailable)
	}

	cred, err := p.sdk.PerformRequest(ctx, []string{ScopeFullName, ScopeEmail})
	if errors.Is(err, ErrCanceled) {
		return providers.CancelledResult(), nil
	}
	if err != nil {
		return nil, providers.Fail(providers.Apple, providers.StageNativeSignIn, err)
	}
	if cred == nil || cred.AuthorizationCode == "" {
		return nil, providers.Fail(providers.Apple, providers.StageNativeSignIn, errors.New("no authorization code returned"))
	}

	profile := &providers.Profile{
		ID:        cred.User,
		Email:     cred.Email,
		FirstName: cred.GivenName,
		LastName:  cred.FamilyName,
	}

	if p.config.Verifier != nil {
		if cred.IdentityToken == "" {
			return nil, providers.Fail(providers.Apple, providers.StageTokenVerify, errors.New("no identity token returned"))
		}
		claims, err := p.config.Verifier.Verify(ctx, cred.IdentityToken)
		if err != nil {
			return nil, providers.Fail(providers.Apple, providers.StageTokenVerify, err)
		}
		if cred.User != "" && claims.Subject != cred.User {
			return nil, providers.Fail(providers.Apple, providers.StageTokenVerify,
				fmt.Errorf("identity token subject %q does not match user", claims.Subject))
		}
		profile.ID = claims.Subject
		if profile.Email == "" {
			profile.Email = claims.Email
		}
	}

	return &providers.Result{
		Profile: profile,
		Exchange: &providers.ExchangeRequest{
			Provider: providers.Apple,
			Endpoint: p.config.RedirectURI,
			Payload:  exchangePayload{Code: cred.AuthorizationCode},
		},
	}, nil
}

// SignOut is a no-op; Apple has no client-side session to end.
func (p *Provider) SignOut(_ context.Context) error {
	return nil
}
