package backendfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/jrsteele09/go-auth-session/users"
)

// Method names for Calls
const (
	Login       = "Login"
	Refresh     = "Refresh"
	CurrentUser = "CurrentUser"
	Update      = "UpdateCurrentUser"
	Logout      = "Logout"
	Exchange    = "Exchange"
)

// FakeBackend is an in-memory stand-in for the content API. Protected calls
// authenticate with the access token held in the credential store, the same
// way the real client's transport does.
type FakeBackend struct {
	store credentials.Store

	mu       sync.Mutex
	accounts map[string]string
	profile  *users.UserProfile
	access   map[string]bool
	refresh  map[string]bool
	issued   int
	calls    map[string]int
	errs     map[string]error
	gates    map[string]chan struct{}
	entered  map[string]chan struct{}
	exchange []providers.ExchangeRequest
}

func NewFakeBackend(store credentials.Store) *FakeBackend {
	return &FakeBackend{
		store:    store,
		accounts: make(map[string]string),
		access:   make(map[string]bool),
		refresh:  make(map[string]bool),
		calls:    make(map[string]int),
		errs:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
		entered:  make(map[string]chan struct{}),
	}
}

// AddAccount registers password credentials.
func (f *FakeBackend) AddAccount(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[email] = password
}

// SetProfile sets the profile returned by CurrentUser.
func (f *FakeBackend) SetProfile(p *users.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p.Clone()
}

// Issue mints a valid token pair, as if a previous login had happened.
func (f *FakeBackend) Issue() credentials.TokenPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issue()
}

// Fail makes method return err until cleared with a nil err.
func (f *FakeBackend) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// Block makes method wait until the returned release func is called or the
// call's context ends. entered is closed when a call starts waiting.
func (f *FakeBackend) Block(method string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{})
	f.gates[method] = gate
	f.entered[method] = in
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

// ExpireAccessTokens invalidates every issued access token.
func (f *FakeBackend) ExpireAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]bool)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (f *FakeBackend) RevokeRefreshTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = make(map[string]bool)
}

func (f *FakeBackend) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Exchanges returns the exchange requests received so far.
func (f *FakeBackend) Exchanges() []providers.ExchangeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]providers.ExchangeRequest(nil), f.exchange...)
}

func (f *FakeBackend) Login(ctx context.Context, email, password string) (credentials.TokenPair, error) {
	if err := f.enter(ctx, Login); err != nil {
		return credentials.TokenPair{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if pw, ok := f.accounts[email]; !ok || pw != password {
		return credentials.TokenPair{}, fmt.Errorf("[FakeBackend.Login] %w", autherrors.ErrInvalidCredentials)
	}
	return f.issue(), nil
}

func (f *FakeBackend) Refresh(ctx context.Context, refreshToken string) (credentials.TokenPair, error) {
	if err := f.enter(ctx, Refresh); err != nil {
		return credentials.TokenPair{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.refresh[refreshToken] {
		return credentials.TokenPair{}, fmt.Errorf("[FakeBackend.Refresh] %w", autherrors.ErrRefreshExpired)
	}
	delete(f.refresh, refreshToken)
	return f.issue(), nil
}

func (f *FakeBackend) CurrentUser(ctx context.Context) (*users.UserProfile, error) {
	if err := f.enter(ctx, CurrentUser); err != nil {
		return nil, err
	}
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.profile == nil {
		return nil, fmt.Errorf("[FakeBackend.CurrentUser] %w: no profile", autherrors.ErrTransport)
	}
	return f.profile.Clone(), nil
}

func (f *FakeBackend) UpdateCurrentUser(ctx context.Context, update users.ProfileUpdate) (*users.UserProfile, error) {
	if err := f.enter(ctx, Update); err != nil {
		return nil, err
	}
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.profile == nil {
		return nil, fmt.Errorf("[FakeBackend.UpdateCurrentUser] %w: no profile", autherrors.ErrTransport)
	}
	p := f.profile
	if update.FirstName != nil {
		p.FirstName = update.FirstName
	}
	if update.LastName != nil {
		p.LastName = update.LastName
	}
	if update.Avatar != nil {
		p.Avatar = update.Avatar
	}
	if update.StravaAccessToken != nil {
		p.StravaAccessToken = update.StravaAccessToken
	}
	if update.StravaRefreshToken != nil {
		p.StravaRefreshToken = update.StravaRefreshToken
	}
	if update.StravaExpiresAt != nil {
		p.StravaExpiresAt = update.StravaExpiresAt
	}
	if update.StravaAthleteID != nil {
		p.StravaAthleteID = update.StravaAthleteID
	}
	f.profile = p.Clone()
	return p.Clone(), nil
}

func (f *FakeBackend) Logout(ctx context.Context, refreshToken string) error {
	if err := f.enter(ctx, Logout); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, refreshToken)
	return nil
}

func (f *FakeBackend) Exchange(ctx context.Context, req providers.ExchangeRequest) (credentials.TokenPair, error) {
	if err := f.enter(ctx, Exchange); err != nil {
		return credentials.TokenPair{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchange = append(f.exchange, req)
	return f.issue(), nil
}

// enter counts the call, waits on any gate and returns the injected error.
func (f *FakeBackend) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	gate := f.gates[method]
	in := f.entered[method]
	if gate != nil {
		delete(f.gates, method)
		delete(f.entered, method)
	}
	f.mu.Unlock()

	if gate != nil {
		close(in)
		select {
		case <-gate:
		case <-ctx.Done():
			return fmt.Errorf("[FakeBackend.%s] %w: %w", method, autherrors.ErrTransport, ctx.Err())
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[method]; err != nil {
		return fmt.Errorf("[FakeBackend.%s] %w", method, err)
	}
	return nil
}

func (f *FakeBackend) authorize(ctx context.Context) error {
	token, _, err := f.store.Get(ctx, credentials.AccessTokenKey)
	if err != nil {
		token = ""
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.access[token] {
		return fmt.Errorf("[FakeBackend.authorize] %w", autherrors.ErrUnauthorized)
	}
	return nil
}

func (f *FakeBackend) issue() credentials.TokenPair {
	f.issued++
	pair := credentials.TokenPair{
		AccessToken:  fmt.Sprintf("access-%d", f.issued),
		RefreshToken: fmt.Sprintf("refresh-%d", f.issued),
	}
	f.access[pair.AccessToken] = true
	f.refresh[pair.RefreshToken] = true
	return pair
}
