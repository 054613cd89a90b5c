// Package linking connects a fitness account (Strava) to an already
// authenticated session. It never touches the session itself.
package linking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/linking/flowrepo"
	"github.com/jrsteele09/go-auth-session/users"
	"golang.org/x/oauth2"
)

// Strava endpoints
const (
	StravaAuthURL  = "https://www.strava.com/oauth/authorize"
	StravaTokenURL = "https://www.strava.com/oauth/token"
)

// DefaultScope is comma separated, as Strava expects.
const DefaultScope = "read,activity:read_all,activity:write"

// Account is a linked fitness account's credentials.
type Account struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // Unix seconds
	AthleteID    string `json:"athlete_id,omitempty"`
}

// ProfileUpdate carries the account into the user's profile fields.
func (a *Account) ProfileUpdate() users.ProfileUpdate {
	u := users.ProfileUpdate{
		StravaAccessToken:  utils.PtrOrNil(a.AccessToken),
		StravaRefreshToken: utils.PtrOrNil(a.RefreshToken),
		StravaAthleteID:    utils.PtrOrNil(a.AthleteID),
	}
	if a.ExpiresAt > 0 {
		u.StravaExpiresAt = utils.Ptr(a.ExpiresAt)
	}
	return u
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string // Deep link prefix the provider redirects to

	AuthURL  string // Defaults to StravaAuthURL
	TokenURL string // Defaults to StravaTokenURL
	Scope    string // Defaults to DefaultScope

	// RequireState rejects callbacks without a state issued by AuthURL.
	RequireState bool

	HTTPClient *http.Client
	Flows      flowrepo.Repo // Defaults to an in-memory TTL repo
}

type Linker struct {
	config     Config
	oauth      *oauth2.Config
	flows      flowrepo.Repo
	httpClient *http.Client
}

func New(config Config) (*Linker, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, errors.New("[linking.New] client ID and secret are required")
	}
	if config.RedirectURI == "" {
		return nil, errors.New("[linking.New] redirect URI is required")
	}
	if config.AuthURL == "" {
		config.AuthURL = StravaAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = StravaTokenURL
	}
	if config.Scope == "" {
		config.Scope = DefaultScope
	}
	if config.Flows == nil {
		config.Flows = flowrepo.NewCacheRepo(flowrepo.DefaultTTL)
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Linker{
		config: config,
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURI,
			Scopes:       []string{config.Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		flows:      config.Flows,
		httpClient: config.HTTPClient,
	}, nil
}

// AuthURL returns the authorize URL to open in a browser, with a fresh state.
func (l *Linker) AuthURL() (string, error) {
	state := uuid.NewString()
	err := l.flows.Upsert(state, &flowrepo.FlowState{
		RedirectURI: l.config.RedirectURI,
		Scope:       l.config.Scope,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("[Linker.AuthURL] %w", err)
	}
	return l.oauth.AuthCodeURL(state), nil
}

// Link completes the flow from the redirect the provider sent back.
func (l *Linker) Link(ctx context.Context, callbackURL string) (*Account, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, autherrors.Kindf(autherrors.ErrLinking, "parse callback: %v", err)
	}
	if !l.matchesRedirect(u) {
		return nil, autherrors.Kindf(autherrors.ErrLinking, "callback does not match redirect URI")
	}
	return l.complete(ctx, u.Query())
}

// matchesRedirect compares scheme, host and path against the configured
// redirect URI. A longer callback path only matches at a "/" boundary.
func (l *Linker) matchesRedirect(u *url.URL) bool {
	want, err := url.Parse(l.config.RedirectURI)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, want.Scheme) || !strings.EqualFold(u.Host, want.Host) {
		return false
	}
	wantPath := strings.TrimSuffix(want.Path, "/")
	gotPath := strings.TrimSuffix(u.Path, "/")
	return gotPath == wantPath || strings.HasPrefix(gotPath, wantPath+"/")
}

// Refresh trades a linked account's refresh token for new credentials.
func (l *Linker) Refresh(ctx context.Context, refreshToken string) (*Account, error) {
	if refreshToken == "" {
		return nil, autherrors.Kindf(autherrors.ErrLinking, "missing refresh token")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, l.httpClient)
	tok, err := l.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, autherrors.Kindf(autherrors.ErrLinking, "refresh: %v", err)
	}
	return accountFromToken(tok), nil
}

func (l *Linker) complete(ctx context.Context, query url.Values) (*Account, error) {
	if e := query.Get("error"); e != "" {
		return nil, fmt.Errorf("%w: %w: %s", autherrors.ErrLinking, autherrors.ErrProviderCancelled, e)
	}

	code := query.Get("code")
	if code == "" {
		return nil, autherrors.Kindf(autherrors.ErrLinking, "missing code parameter")
	}

	state := query.Get("state")
	if state != "" || l.config.RequireState {
		if err := l.consumeState(state); err != nil {
			return nil, err
		}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, l.httpClient)
	tok, err := l.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, autherrors.Kindf(autherrors.ErrLinking, "token exchange: %v", err)
	}
	return accountFromToken(tok), nil
}

func (l *Linker) consumeState(state string) error {
	if state == "" {
		return autherrors.Kindf(autherrors.ErrLinking, "missing state parameter")
	}
	if _, err := l.flows.Get(state); err != nil {
		return autherrors.Kindf(autherrors.ErrLinking, "invalid state parameter")
	}
	_ = l.flows.Delete(state)
	return nil
}

func accountFromToken(tok *oauth2.Token) *Account {
	acct := &Account{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		acct.ExpiresAt = tok.Expiry.Unix()
	}
	switch v := tok.Extra("expires_at").(type) {
	case float64:
		acct.ExpiresAt = int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			acct.ExpiresAt = n
		}
	}
	if athlete, ok := tok.Extra("athlete").(map[string]interface{}); ok {
		acct.AthleteID = utils.AnyToString(athlete["id"])
	}
	return acct
}
