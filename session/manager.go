package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/linking"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Backend is the content API as seen by the session.
type Backend interface {
	Login(ctx context.Context, email, password string) (credentials.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (credentials.TokenPair, error)
	CurrentUser(ctx context.Context) (*users.UserProfile, error)
	UpdateCurrentUser(ctx context.Context, update users.ProfileUpdate) (*users.UserProfile, error)
	Logout(ctx context.Context, refreshToken string) error
	Exchange(ctx context.Context, req providers.ExchangeRequest) (credentials.TokenPair, error)
}

// AccountLinker completes a fitness account link from a redirect URL.
type AccountLinker interface {
	Link(ctx context.Context, callbackURL string) (*linking.Account, error)
}

// Manager is the single writer of the session state.
type Manager struct {
	backend  Backend
	store    credentials.Store
	registry *providers.Registry
	linker   AccountLinker
	logger   zerolog.Logger
	metrics  *metrics.Session
	leeway   time.Duration

	sem      chan struct{}
	seq      atomic.Uint64
	fence    atomic.Uint64
	inflight struct {
		sync.Mutex
		seq    uint64
		cancel context.CancelFunc
	}

	stateMu sync.RWMutex
	state   Session

	subsMu  sync.Mutex
	subs    map[int]chan Session
	nextSub int

	hydrate singleflight.Group
}

type Option func(*Manager)

func WithProviders(ps ...providers.Provider) Option {
	return func(m *Manager) {
		for _, p := range ps {
			m.registry.Register(p)
		}
	}
}

func WithRegistry(r *providers.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

func WithLinker(l AccountLinker) Option {
	return func(m *Manager) {
		m.linker = l
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithMetrics(s *metrics.Session) Option {
	return func(m *Manager) {
		m.metrics = s
	}
}

// WithTokenLeeway sets the clock skew allowed when checking access token expiry.
func WithTokenLeeway(d time.Duration) Option {
	return func(m *Manager) {
		m.leeway = d
	}
}

// New returns a manager in the Initializing state. Call Hydrate to resolve it.
func New(backend Backend, store credentials.Store, opts ...Option) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("[session.New] backend is required")
	}
	if store == nil {
		return nil, errors.New("[session.New] credential store is required")
	}

	m := &Manager{
		backend:  backend,
		store:    store,
		registry: providers.NewRegistry(),
		logger:   log.Logger.With().Str("component", "session").Logger(),
		leeway:   token.DefaultLeeway,
		sem:      make(chan struct{}, 1),
		state:    Session{Status: Initializing, Loading: true},
		subs:     make(map[int]chan Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Current returns a snapshot of the session.
func (m *Manager) Current() Session {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state.clone()
}

// Subscribe returns a channel that always holds the latest snapshot. Slow
// readers skip intermediate states. The returned func unsubscribes and
// closes the channel.
func (m *Manager) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.Current()
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

// IsAppleAuthAvailable reports whether an Apple provider is registered and usable.
func (m *Manager) IsAppleAuthAvailable(ctx context.Context) bool {
	p, err := m.registry.Get(providers.Apple)
	if err != nil {
		return false
	}
	return p.IsAvailable(ctx)
}

func (m *Manager) update(fn func(*Session)) {
	m.stateMu.Lock()
	fn(&m.state)
	snapshot := m.state.clone()
	m.stateMu.Unlock()

	m.metrics.SetAuthenticated(snapshot.Authenticated)
	m.publish(snapshot)
}

func (m *Manager) publish(s Session) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Drop the stale snapshot so the newest one fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (m *Manager) setLoading(loading bool) {
	m.update(func(s *Session) { s.Loading = loading })
}

func (m *Manager) setAuthenticated(user *users.UserProfile) {
	m.update(func(s *Session) {
		s.Status = Authenticated
		s.Authenticated = true
		s.User = user.Clone()
	})
}

func (m *Manager) setUnauthenticated() {
	m.update(func(s *Session) {
		s.Status = Unauthenticated
		s.Authenticated = false
		s.User = nil
	})
}

// settleStartup moves a still Initializing session to Unauthenticated and
// reports whether it did.
func (m *Manager) settleStartup() bool {
	settled := false
	m.update(func(s *Session) {
		if s.Status != Initializing {
			return
		}
		s.Status = Unauthenticated
		s.Authenticated = false
		s.User = nil
		s.Loading = false
		settled = true
	})
	return settled
}

func (m *Manager) currentUser() *users.UserProfile {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state.User.Clone()
}
