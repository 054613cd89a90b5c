package session

import (
	"context"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/providers"
)

// Logout ends the session. It supersedes any operation still in flight and
// always succeeds: provider and remote cleanup are best effort, and local
// credentials and state are always cleared.
func (m *Manager) Logout(ctx context.Context) Result {
	res := m.run(ctx, "logout", true, func(o *op) (Result, error) {
		// Phase 1: remote and provider cleanup. Failures are logged only.
		m.providerSignOut(o)
		m.remoteLogout(o)

		// Phase 2: local reset. Cannot fail.
		m.resetLocal(o)
		return Result{Success: true}, nil
	})
	if res.Kind == KindSuperseded {
		// A later logout owns the cleanup.
		return Result{Success: true}
	}
	return res
}

// teardown drops a session that can't be recovered, without a remote logout.
func (m *Manager) teardown(o *op) {
	if !o.current() {
		return
	}
	m.providerSignOut(o)
	m.resetLocal(o)
}

// providerSignOut ends the native session of the provider that produced the
// current one, read from the in-memory user or the cached profile.
func (m *Manager) providerSignOut(o *op) {
	kind, ok := m.sessionProvider(o)
	if !ok || kind == providers.Password {
		return
	}
	p, err := m.registry.Get(kind)
	if err != nil {
		o.logger.Debug().Str("provider", string(kind)).Msg("no provider registered for sign-out")
		return
	}
	if err := p.SignOut(o.ctx); err != nil {
		o.logger.Warn().Err(err).Str("provider", string(kind)).Msg("provider sign-out failed")
	}
}

func (m *Manager) sessionProvider(o *op) (providers.Kind, bool) {
	name := m.currentUser().ProviderName()
	if name == "" {
		cached, err := credentials.LoadProfile(o.ctx, m.store)
		if err != nil {
			o.logger.Debug().Err(err).Msg("unable to read cached profile")
		}
		name = cached.ProviderName()
	}
	if name == "" {
		return "", false
	}
	kind, err := providers.ParseKind(name)
	if err != nil {
		o.logger.Debug().Err(err).Msg("unrecognised session provider")
		return "", false
	}
	return kind, true
}

func (m *Manager) remoteLogout(o *op) {
	rt, err := credentials.RefreshToken(o.ctx, m.store)
	if err != nil {
		o.logger.Warn().Err(err).Msg("unable to read refresh token for remote logout")
		return
	}
	if err := m.backend.Logout(o.ctx, rt); err != nil {
		o.logger.Warn().Err(err).Msg("remote logout failed")
	}
}

func (m *Manager) resetLocal(o *op) {
	if err := credentials.Clear(context.WithoutCancel(o.ctx), m.store); err != nil {
		o.logger.Error().Err(err).Msg("unable to clear stored credentials")
	}
	m.setUnauthenticated()
}
