// Package facebook adapts Facebook Login to the providers.Provider interface.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
	"golang.org/x/oauth2"
)

const DefaultGraphURL = "https://graph.facebook.com/v19.0"

// Permissions requested from the native login.
var Permissions = []string{"public_profile", "email"}

type LoginResult struct {
	Cancelled           bool
	GrantedPermissions  []string
	DeclinedPermissions []string
}

// SDK is the native Facebook Login surface.
type SDK interface {
	LogInWithPermissions(ctx context.Context, permissions []string) (*LoginResult, error)
	CurrentAccessToken(ctx context.Context) (string, error)
	LogOut() error
}

type Config struct {
	RedirectURI string // Backend endpoint that exchanges the Facebook access token

	// FetchProfile enables a Graph API /me lookup so the exchange can carry
	// the user's email and name.
	FetchProfile bool
	GraphURL     string
	HTTPClient   *http.Client
}

type exchangePayload struct {
	Code  string `json:"code"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type graphUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

var _ providers.Provider = (*Provider)(nil)

type Provider struct {
	sdk    SDK
	config Config
}

func New(sdk SDK, config Config) *Provider {
	if config.GraphURL == "" {
		config.GraphURL = DefaultGraphURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{sdk: sdk, config: config}
}

func (p *Provider) Kind() providers.Kind { return providers.Facebook }

func (p *Provider) IsAvailable(_ context.Context) bool {
	return p.sdk != nil
}

func (p *Provider) SignIn(ctx context.Context) (*providers.Result, error) {
	if !p.IsAvailable(ctx) {
		return nil, providers.Fail(providers.Facebook, providers.StageAvailability, autherrors.ErrProviderUnavailable)
	}

	login, err := p.sdk.LogInWithPermissions(ctx, Permissions)
	if err != nil {
		return nil, providers.Fail(providers.Facebook, providers.StageNativeSignIn, err)
	}
	if login == nil || login.Cancelled {
		return providers.CancelledResult(), nil
	}

	accessToken, err := p.sdk.CurrentAccessToken(ctx)
	if err != nil {
		return nil, providers.Fail(providers.Facebook, providers.StageNativeSignIn, err)
	}
	if accessToken == "" {
		return nil, providers.Fail(providers.Facebook, providers.StageNativeSignIn, errors.New("no access token after login"))
	}

	payload := exchangePayload{Code: accessToken}
	var profile *providers.Profile

	if p.config.FetchProfile {
		user, err := p.fetchProfile(ctx, accessToken)
		if err != nil {
			return nil, providers.Fail(providers.Facebook, providers.StageProfileFetch, err)
		}
		payload.Email = user.Email
		payload.Name = user.Name
		profile = &providers.Profile{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}
	}

	return &providers.Result{
		Profile: profile,
		Exchange: &providers.ExchangeRequest{
			Provider: providers.Facebook,
			Endpoint: p.config.RedirectURI,
			Payload:  payload,
		},
	}, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.LogOut()
}

// fetchProfile calls the Graph API with the user's token as a bearer credential.
func (p *Provider) fetchProfile(ctx context.Context, accessToken string) (*graphUser, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.config.HTTPClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	q := url.Values{}
	q.Set("fields", "id,name,email,first_name,last_name")
	endpoint := strings.TrimRight(p.config.GraphURL, "/") + "/me?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: graph request: %w", autherrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: graph returned %d", autherrors.ErrTransport, resp.StatusCode)
	}

	var user graphUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode graph profile: %w", autherrors.ErrTransport, err)
	}
	return &user, nil
}
