// Package google adapts Google Sign-In to the providers.Provider interface.
package google

import (
	"context"
	"errors"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
)

// Status errors reported by the native SDK.
var (
	ErrSignInCancelled          = errors.New("google: sign-in cancelled")
	ErrInProgress               = errors.New("google: sign-in already in progress")
	ErrPlayServicesNotAvailable = errors.New("google: play services not available")
)

type User struct {
	ID         string
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	Photo      string
}

type SignInData struct {
	IDToken string
	User    *User
}

// SDK is the native Google Sign-In surface.
type SDK interface {
	HasPlayServices(ctx context.Context) error
	SignIn(ctx context.Context) (*SignInData, error)
	SignOut(ctx context.Context) error
}

type Config struct {
	RedirectURI string                     // Backend endpoint that exchanges the Google identity
	Verifier    providers.IdentityVerifier // Optional; when set the ID token must verify
}

type exchangePayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

var _ providers.Provider = (*Provider)(nil)

type Provider struct {
	sdk    SDK
	config Config
}

func New(sdk SDK, config Config) *Provider {
	return &Provider{sdk: sdk, config: config}
}

func (p *Provider) Kind() providers.Kind { return providers.Google }

func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.sdk != nil && p.sdk.HasPlayServices(ctx) == nil
}

func (p *Provider) SignIn(ctx context.Context) (*providers.Result, error) {
	if p.sdk == nil {
		return nil, providers.Fail(providers.Google, providers.StageAvailability, autherrors.ErrProviderUnavailable)
	}
	if err := p.sdk.HasPlayServices(ctx); err != nil {
		return nil, providers.Fail(providers.Google, providers.StageAvailability, unavailable(err))
	}

	data, err := p.sdk.SignIn(ctx)
	if err != nil {
		return nil, providers.Fail(providers.Google, providers.StageNativeSignIn, classify(err))
	}
	if data == nil || data.User == nil || data.User.Email == "" {
		return nil, providers.Fail(providers.Google, providers.StageNativeSignIn, errors.New("user data not found"))
	}
	user := data.User

	if p.config.Verifier != nil {
		if data.IDToken == "" {
			return nil, providers.Fail(providers.Google, providers.StageTokenVerify, errors.New("no ID token returned"))
		}
		claims, err := p.config.Verifier.Verify(ctx, data.IDToken)
		if err != nil {
			return nil, providers.Fail(providers.Google, providers.StageTokenVerify, err)
		}
		if claims.Email != "" && claims.Email != user.Email {
			return nil, providers.Fail(providers.Google, providers.StageTokenVerify,
				fmt.Errorf("ID token email %q does not match user", claims.Email))
		}
	}

	return &providers.Result{
		Profile: &providers.Profile{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			FirstName: user.GivenName,
			LastName:  user.FamilyName,
			Picture:   user.Photo,
		},
		Exchange: &providers.ExchangeRequest{
			Provider: providers.Google,
			Endpoint: p.config.RedirectURI,
			Payload:  exchangePayload{Email: user.Email, Name: user.Name},
		},
	}, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.SignOut(ctx)
}

// unavailable marks any play-services check failure as ErrProviderUnavailable.
func unavailable(err error) error {
	if errors.Is(err, autherrors.ErrProviderUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", autherrors.ErrProviderUnavailable, err)
}

// classify attaches the session error kind for the SDK's status codes.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrSignInCancelled):
		return fmt.Errorf("%w: %w", autherrors.ErrProviderCancelled, err)
	case errors.Is(err, ErrInProgress):
		return fmt.Errorf("%w: %w", autherrors.ErrSignInInProgress, err)
	case errors.Is(err, ErrPlayServicesNotAvailable):
		return fmt.Errorf("%w: %w", autherrors.ErrProviderUnavailable, err)
	default:
		return err
	}
}
