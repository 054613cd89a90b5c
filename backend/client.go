// Package backend is the HTTP client for the content API's session endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/credentials"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 15 * time.Second

// API paths
const (
	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"
	LogoutPath  = "/auth/logout"
	MePath      = "/users/me"
)

const maxErrorBody = 64 << 10

// Client sends every request through a transport that attaches the stored
// access token as a bearer.
type Client struct {
	baseURL string
	store   credentials.Store

	base    *http.Client
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its transport is wrapped,
// not replaced, by the bearer transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.base = c
	}
}

// WithTimeout bounds each request. Timeouts surface as ErrTransport.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// New returns a client for the API rooted at baseURL. The access token is
// read from store on every request.
func New(baseURL string, store credentials.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[backend.New] invalid base URL %q", baseURL)
	}
	if store == nil {
		return nil, errors.New("[backend.New] credential store is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		store:   store,
		base:    &http.Client{},
		timeout: DefaultTimeout,
		logger:  log.Logger.With().Str("component", "backend").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	rt := c.base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	hc := *c.base
	hc.Transport = &bearerTransport{base: rt, store: store, origin: u, logger: c.logger}
	c.client = &hc

	return c, nil
}

// Login exchanges email and password for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (credentials.TokenPair, error) {
	var resp TokenResponse
	err := c.do(withBareRetry(ctx), http.MethodPost, c.baseURL+LoginPath, loginRequest{Email: email, Password: password}, &resp, mapLogin)
	if err != nil {
		return credentials.TokenPair{}, fmt.Errorf("[Client.Login] %w", err)
	}
	return validPair(resp.Data, "Client.Login")
}

// Refresh rotates the token pair. A rejected refresh token is ErrRefreshExpired.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (credentials.TokenPair, error) {
	if refreshToken == "" {
		return credentials.TokenPair{}, fmt.Errorf("[Client.Refresh] %w: no refresh token", autherrors.ErrRefreshExpired)
	}
	var resp TokenResponse
	err := c.do(withBareRetry(ctx), http.MethodPost, c.baseURL+RefreshPath, refreshRequest{RefreshToken: refreshToken}, &resp, mapRefresh)
	if err != nil {
		return credentials.TokenPair{}, fmt.Errorf("[Client.Refresh] %w", err)
	}
	return validPair(resp.Data, "Client.Refresh")
}

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*users.UserProfile, error) {
	var resp UserResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+MePath, nil, &resp, mapAuthorized); err != nil {
		return nil, fmt.Errorf("[Client.CurrentUser] %w", err)
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, fmt.Errorf("[Client.CurrentUser] %w: response has no user", autherrors.ErrTransport)
	}
	return resp.Data, nil
}

// UpdateCurrentUser sends a partial update and returns the updated profile.
func (c *Client) UpdateCurrentUser(ctx context.Context, update users.ProfileUpdate) (*users.UserProfile, error) {
	var resp UserResponse
	if err := c.do(ctx, http.MethodPatch, c.baseURL+MePath, update, &resp, mapAuthorized); err != nil {
		return nil, fmt.Errorf("[Client.UpdateCurrentUser] %w", err)
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, fmt.Errorf("[Client.UpdateCurrentUser] %w: response has no user", autherrors.ErrTransport)
	}
	return resp.Data, nil
}

// Logout invalidates the refresh token server-side. It is a no-op without one.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := c.do(withBareRetry(ctx), http.MethodPost, c.baseURL+LogoutPath, refreshRequest{RefreshToken: refreshToken}, nil, mapTransport); err != nil {
		return fmt.Errorf("[Client.Logout] %w", err)
	}
	return nil
}

// Exchange posts a provider credential to its backend endpoint and returns the issued pair.
func (c *Client) Exchange(ctx context.Context, req providers.ExchangeRequest) (credentials.TokenPair, error) {
	if req.Endpoint == "" {
		return credentials.TokenPair{}, fmt.Errorf("[Client.Exchange] %w: no endpoint configured for %s", autherrors.ErrProviderUnavailable, req.Provider)
	}
	var resp exchangeResponse
	if err := c.do(withBareRetry(ctx), http.MethodPost, req.Endpoint, req.Payload, &resp, mapLogin); err != nil {
		return credentials.TokenPair{}, fmt.Errorf("[Client.Exchange] %s: %w", req.Provider, err)
	}
	pair := resp.pair()
	if !pair.Valid() {
		return credentials.TokenPair{}, fmt.Errorf("[Client.Exchange] %s: %w: %w", req.Provider, autherrors.ErrTransport, autherrors.ErrInvalidTokenPair)
	}
	return pair, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any, mapper statusMapper) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", autherrors.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", req.URL.Path).Msg("request failed")
		return fmt.Errorf("%w: %s %s: %w", autherrors.ErrTransport, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newHTTPError(resp.StatusCode, raw, mapper)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", autherrors.ErrTransport, err)
	}
	return nil
}

func validPair(data *TokenData, method string) (credentials.TokenPair, error) {
	if data == nil {
		return credentials.TokenPair{}, fmt.Errorf("[%s] %w: response has no token data", method, autherrors.ErrTransport)
	}
	pair := data.Pair()
	if !pair.Valid() {
		return credentials.TokenPair{}, fmt.Errorf("[%s] %w: %w", method, autherrors.ErrTransport, autherrors.ErrInvalidTokenPair)
	}
	return pair, nil
}
