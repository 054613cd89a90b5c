package session

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-session/credentials"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/providers"
)

// LoginWithPassword signs in with email and password.
func (m *Manager) LoginWithPassword(ctx context.Context, email, password string) Result {
	return m.run(ctx, "login_password", false, func(o *op) (Result, error) {
		if email == "" || password == "" {
			return Result{}, fmt.Errorf("[Manager.LoginWithPassword] %w: email and password are required", autherrors.ErrInvalidCredentials)
		}
		return m.login(o, providers.Password, func(ctx context.Context) (credentials.TokenPair, error) {
			return m.backend.Login(ctx, email, password)
		})
	})
}

func (m *Manager) LoginWithApple(ctx context.Context) Result {
	return m.LoginWithProvider(ctx, providers.Apple)
}

func (m *Manager) LoginWithFacebook(ctx context.Context) Result {
	return m.LoginWithProvider(ctx, providers.Facebook)
}

func (m *Manager) LoginWithGoogle(ctx context.Context) Result {
	return m.LoginWithProvider(ctx, providers.Google)
}

// LoginWithProvider runs the native flow of a registered provider and
// exchanges its credential for a session.
func (m *Manager) LoginWithProvider(ctx context.Context, kind providers.Kind) Result {
	return m.run(ctx, "login_"+string(kind), false, func(o *op) (Result, error) {
		if kind == providers.Password || kind == providers.Strava {
			return Result{}, fmt.Errorf("[Manager.LoginWithProvider] %w: %s is not an identity provider", autherrors.ErrUnknownProvider, kind)
		}
		p, err := m.registry.Get(kind)
		if err != nil {
			return Result{}, err
		}
		return m.login(o, kind, func(ctx context.Context) (credentials.TokenPair, error) {
			return m.signIn(ctx, p)
		})
	})
}

// signIn drives a provider pipeline to a token pair.
func (m *Manager) signIn(ctx context.Context, p providers.Provider) (credentials.TokenPair, error) {
	res, err := p.SignIn(ctx)
	if err != nil {
		return credentials.TokenPair{}, err
	}
	switch {
	case res == nil:
		return credentials.TokenPair{}, providers.Fail(p.Kind(), providers.StageNativeSignIn, fmt.Errorf("%w: empty result", autherrors.ErrTransport))
	case res.Cancelled:
		return credentials.TokenPair{}, providers.Fail(p.Kind(), providers.StageNativeSignIn, autherrors.ErrProviderCancelled)
	case res.Tokens != nil:
		return *res.Tokens, nil
	case res.Exchange != nil:
		pair, err := m.backend.Exchange(ctx, *res.Exchange)
		if err != nil {
			return credentials.TokenPair{}, providers.Fail(p.Kind(), providers.StageExchange, err)
		}
		return pair, nil
	default:
		return credentials.TokenPair{}, providers.Fail(p.Kind(), providers.StageNativeSignIn, fmt.Errorf("%w: no credentials returned", autherrors.ErrTransport))
	}
}

// login persists the acquired pair, hydrates the user and authenticates. Any
// failure restores the durable keys to what they were before the attempt.
func (m *Manager) login(o *op, kind providers.Kind, acquire func(context.Context) (credentials.TokenPair, error)) (Result, error) {
	ctx := o.ctx

	snap, err := credentials.TakeSnapshot(ctx, m.store)
	if err != nil {
		return Result{}, err
	}

	pair, err := acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	if !pair.Valid() {
		return Result{}, fmt.Errorf("[Manager.login] %w: %w", autherrors.ErrTransport, autherrors.ErrInvalidTokenPair)
	}
	if !o.current() {
		return Result{}, fmt.Errorf("[Manager.login] %w", autherrors.ErrSuperseded)
	}

	rollback := func(cause error) (Result, error) {
		if err := credentials.Restore(context.WithoutCancel(ctx), m.store, snap); err != nil {
			o.logger.Error().Err(err).Msg("unable to restore credentials after failed login")
		}
		return Result{}, cause
	}

	if err := credentials.SaveTokens(ctx, m.store, pair); err != nil {
		return rollback(err)
	}

	user, err := m.backend.CurrentUser(ctx)
	if err != nil {
		return rollback(err)
	}
	if user.Provider == nil {
		user.Provider = utils.Ptr(string(kind))
	}
	if err := credentials.SaveProfile(ctx, m.store, user); err != nil {
		return rollback(err)
	}

	if err := o.commit(func() { m.setAuthenticated(user) }); err != nil {
		return rollback(err)
	}

	o.logger.Info().Str("provider", string(kind)).Str("user_id", user.ID).Msg("signed in")
	return Result{Success: true, User: user.Clone()}, nil
}
