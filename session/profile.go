package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-auth-session/credentials"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/users"
)

// UpdateProfile sends a partial update for the signed-in user. On failure the
// session is left as it was, except that a rejected refresh token ends it.
func (m *Manager) UpdateProfile(ctx context.Context, update users.ProfileUpdate) Result {
	return m.run(ctx, "update_profile", false, func(o *op) (Result, error) {
		prev := m.currentUser()
		if prev == nil {
			return Result{}, fmt.Errorf("[Manager.UpdateProfile] %w", autherrors.ErrNotAuthenticated)
		}
		if update.IsEmpty() {
			return Result{Success: true, User: prev}, nil
		}

		user, err := m.backend.UpdateCurrentUser(o.ctx, update)
		if errors.Is(err, autherrors.ErrUnauthorized) {
			if rerr := m.rotate(o); rerr != nil {
				if errors.Is(rerr, autherrors.ErrRefreshExpired) {
					m.teardown(o)
				}
				return Result{}, rerr
			}
			user, err = m.backend.UpdateCurrentUser(o.ctx, update)
		}
		if err != nil {
			return Result{}, err
		}

		if user.Provider == nil {
			user.Provider = prev.Provider
		}
		if err := credentials.SaveProfile(o.ctx, m.store, user); err != nil {
			o.logger.Warn().Err(err).Msg("unable to cache updated profile")
		}
		if err := o.commit(func() { m.setAuthenticated(user) }); err != nil {
			return Result{}, err
		}
		return Result{Success: true, User: user.Clone()}, nil
	})
}

// Refresh rotates the stored token pair. A rejected refresh token ends the session.
func (m *Manager) Refresh(ctx context.Context) Result {
	return m.run(ctx, "refresh", false, func(o *op) (Result, error) {
		if err := m.rotate(o); err != nil {
			if errors.Is(err, autherrors.ErrRefreshExpired) {
				m.teardown(o)
			}
			return Result{}, err
		}
		return Result{Success: true, User: m.currentUser()}, nil
	})
}
