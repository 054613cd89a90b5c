package session

import (
	"context"
	"errors"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// LinkFitnessAccount completes a fitness account link from the provider's
// redirect. It needs a signed-in user but never changes the session; the
// linked account is returned for the caller to store, for example through
// UpdateProfile.
func (m *Manager) LinkFitnessAccount(ctx context.Context, callbackURL string) LinkResult {
	logger := m.logger.With().Str("op", "link_fitness_account").Logger()

	if m.linker == nil {
		err := fmt.Errorf("[Manager.LinkFitnessAccount] %w: no linker configured", autherrors.ErrLinking)
		logger.Warn().Err(err).Msg("link failed")
		return linkFailure(err)
	}
	if !m.Current().Authenticated {
		return linkFailure(fmt.Errorf("[Manager.LinkFitnessAccount] %w", autherrors.ErrNotAuthenticated))
	}

	acct, err := m.linker.Link(ctx, callbackURL)
	if err != nil {
		if !errors.Is(err, autherrors.ErrLinking) {
			err = fmt.Errorf("%w: %w", autherrors.ErrLinking, err)
		}
		logger.Warn().Err(err).Msg("link failed")
		return linkFailure(err)
	}

	logger.Info().Str("athlete_id", acct.AthleteID).Msg("fitness account linked")
	return LinkResult{Success: true, Account: acct}
}
