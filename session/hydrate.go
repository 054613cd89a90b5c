package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-session/credentials"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/token"
)

// Hydrate resolves the session from the credential store. A usable access
// token becomes Authenticated; anything else ends Unauthenticated with the
// store cleared. Concurrent calls share one run. Hydrate never leaves the
// session Initializing, even when ctx ends before the run gets the slot.
func (m *Manager) Hydrate(ctx context.Context) Session {
	_, _, _ = m.hydrate.Do("hydrate", func() (interface{}, error) {
		res := m.run(ctx, "hydrate", false, func(o *op) (Result, error) {
			if err := m.restore(o); err != nil {
				m.teardown(o)
				return Result{}, err
			}
			return Result{Success: true}, nil
		})
		if !res.Success && m.settleStartup() {
			m.logger.Info().Str("kind", string(res.Kind)).Msg("hydration did not run, session left unauthenticated")
		}
		return res, nil
	})
	return m.Current()
}

func (m *Manager) restore(o *op) error {
	ctx := o.ctx

	pair, found, err := credentials.LoadTokens(ctx, m.store)
	if err != nil {
		return err
	}
	if !found {
		return o.commit(m.setUnauthenticated)
	}

	refreshed := false
	if expired, ok := token.Expired(pair.AccessToken, m.leeway); ok && expired {
		o.logger.Debug().Msg("stored access token has expired, refreshing")
		if err := m.rotate(o); err != nil {
			return err
		}
		refreshed = true
	}

	user, err := m.backend.CurrentUser(ctx)
	if errors.Is(err, autherrors.ErrUnauthorized) && !refreshed {
		if err := m.rotate(o); err != nil {
			return err
		}
		user, err = m.backend.CurrentUser(ctx)
	}
	if err != nil {
		return err
	}

	if user.Provider == nil {
		// The API doesn't always echo the provider; keep the one recorded at login.
		if cached, err := credentials.LoadProfile(ctx, m.store); err == nil && cached != nil {
			user.Provider = cached.Provider
		}
	}
	if err := credentials.SaveProfile(ctx, m.store, user); err != nil {
		return err
	}

	if err := o.commit(func() { m.setAuthenticated(user) }); err != nil {
		return err
	}
	o.logger.Info().Str("user_id", user.ID).Msg("session restored")
	return nil
}

// rotate exchanges the stored refresh token for a new pair and persists it.
func (m *Manager) rotate(o *op) error {
	rt, err := credentials.RefreshToken(o.ctx, m.store)
	if err != nil {
		return err
	}
	pair, err := m.backend.Refresh(o.ctx, rt)
	if err != nil {
		return err
	}
	if !o.current() {
		return fmt.Errorf("[Manager.rotate] %w", autherrors.ErrSuperseded)
	}
	return credentials.SaveTokens(o.ctx, m.store, pair)
}
