package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/backend/backendfake"
	"github.com/jrsteele09/go-auth-session/credentials"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seed stores a pair the fake backend accepts plus a cached profile, as a
// previous run of the app would have left them.
func (h *harness) seed(t *testing.T, provider string) credentials.TokenPair {
	t.Helper()
	pair := h.backend.Issue()
	require.NoError(t, credentials.SaveTokens(context.Background(), h.store, pair))
	require.NoError(t, credentials.SaveProfile(context.Background(), h.store, &users.UserProfile{
		ID: "1", Email: "a@b.com", Provider: utils.PtrOrNil(provider),
	}))
	return pair
}

func expiredJWT(t *testing.T) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func TestHydrateWithoutCredentials(t *testing.T) {
	h := newHarness(t)

	s := h.manager.Hydrate(context.Background())
	assert.Equal(t, session.Unauthenticated, s.Status)
	assert.False(t, s.Authenticated)
	assert.False(t, s.Loading)
	assert.Nil(t, s.User)
	assert.Equal(t, 0, h.backend.Calls(backendfake.CurrentUser))
}

func TestHydrateRestoresSession(t *testing.T) {
	h := newHarness(t)
	pair := h.seed(t, "google")

	s := h.manager.Hydrate(context.Background())
	assert.Equal(t, session.Authenticated, s.Status)
	assert.True(t, s.Authenticated)
	assert.False(t, s.Loading)
	require.NotNil(t, s.User)
	assert.Equal(t, "1", s.User.ID)
	assert.Equal(t, "google", s.User.ProviderName())

	access, _ := h.store.Value(credentials.AccessTokenKey)
	assert.Equal(t, pair.AccessToken, access)
	assert.Equal(t, 0, h.backend.Calls(backendfake.Refresh))

	// Hydrating again changes nothing.
	again := h.manager.Hydrate(context.Background())
	assert.Equal(t, s, again)
	access, _ = h.store.Value(credentials.AccessTokenKey)
	assert.Equal(t, pair.AccessToken, access)
}

func TestHydrateRefreshesRejectedAccessToken(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "")
	h.backend.ExpireAccessTokens()

	s := h.manager.Hydrate(context.Background())
	assert.True(t, s.Authenticated)
	assert.Equal(t, 1, h.backend.Calls(backendfake.Refresh))
	assert.Equal(t, 2, h.backend.Calls(backendfake.CurrentUser))

	access, _ := h.store.Value(credentials.AccessTokenKey)
	assert.Equal(t, "access-2", access)
	refresh, _ := h.store.Value(credentials.RefreshTokenKey)
	assert.Equal(t, "refresh-2", refresh)
}

func TestHydrateRefreshesExpiredJWTFirst(t *testing.T) {
	h := newHarness(t)
	pair := h.backend.Issue()
	require.NoError(t, credentials.SaveTokens(context.Background(), h.store, credentials.TokenPair{
		AccessToken:  expiredJWT(t),
		RefreshToken: pair.RefreshToken,
	}))

	s := h.manager.Hydrate(context.Background())
	assert.True(t, s.Authenticated)
	assert.Equal(t, 1, h.backend.Calls(backendfake.Refresh))
	assert.Equal(t, 1, h.backend.Calls(backendfake.CurrentUser))
}

func TestHydrateRejectedRefreshClearsEverything(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "google")
	h.backend.ExpireAccessTokens()
	h.backend.RevokeRefreshTokens()

	s := h.manager.Hydrate(context.Background())
	assert.False(t, s.Authenticated)
	assert.False(t, s.Loading)
	h.assertCleared(t)
	assert.Equal(t, 1, h.google.SignOutCalls())
	// Teardown doesn't call the remote logout.
	assert.Equal(t, 0, h.backend.Calls(backendfake.Logout))
}

func TestHydrateFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{name: "store unreadable", setup: func(h *harness) { h.store.FailGet(true) }},
		{name: "profile fetch fails", setup: func(h *harness) { h.backend.Fail(backendfake.CurrentUser, autherrors.ErrTransport) }},
		{name: "profile cache fails", setup: func(h *harness) { h.store.FailSet(true) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seed(t, "")
			tt.setup(h)

			s := h.manager.Hydrate(context.Background())
			assert.Equal(t, session.Unauthenticated, s.Status)
			assert.False(t, s.Loading)
			assert.Nil(t, s.User)

			h.store.FailGet(false)
			for _, k := range credentials.Keys {
				_, ok := h.store.Value(k)
				assert.False(t, ok, "key %s should be cleared", k)
			}
		})
	}
}

func TestHydrateConcurrentCallsAgree(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "")

	var wg sync.WaitGroup
	results := make([]session.Session, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.manager.Hydrate(context.Background())
		}(i)
	}
	wg.Wait()

	for _, s := range results {
		assert.True(t, s.Authenticated)
	}
}

func TestHydrateWithEndedContextResolves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 50; i++ {
		h := newHarness(t)
		if i%2 == 0 {
			h.seed(t, "")
		}

		s := h.manager.Hydrate(ctx)
		require.NotEqual(t, session.Initializing, s.Status, "run %d", i)
		require.False(t, s.Loading, "run %d", i)
		require.False(t, h.manager.Current().Loading, "run %d", i)
	}
}

func TestUpdateProfile(t *testing.T) {
	h := signedIn(t)

	res := h.manager.UpdateProfile(context.Background(), users.ProfileUpdate{FirstName: utils.Ptr("Ann")})
	require.True(t, res.Success, "%+v", res)
	assert.Equal(t, "Ann", utils.Value(res.User.FirstName))
	assert.Equal(t, "password", res.User.ProviderName())
	assert.Equal(t, "Ann", utils.Value(h.manager.Current().User.FirstName))

	cached, err := credentials.LoadProfile(context.Background(), h.store)
	require.NoError(t, err)
	assert.Equal(t, "Ann", utils.Value(cached.FirstName))
	assert.Equal(t, "password", cached.ProviderName())
}

func TestUpdateProfileEmpty(t *testing.T) {
	h := signedIn(t)

	res := h.manager.UpdateProfile(context.Background(), users.ProfileUpdate{})
	assert.True(t, res.Success)
	assert.Equal(t, "1", res.User.ID)
	assert.Equal(t, 0, h.backend.Calls(backendfake.Update))
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	h := newHarness(t)

	res := h.manager.UpdateProfile(context.Background(), users.ProfileUpdate{FirstName: utils.Ptr("Ann")})
	assert.False(t, res.Success)
	assert.Equal(t, session.KindNotAuthenticated, res.Kind)
	assert.Equal(t, 0, h.backend.Calls(backendfake.Update))
}

func TestUpdateProfileRefreshesOnce(t *testing.T) {
	h := signedIn(t)
	h.backend.ExpireAccessTokens()

	res := h.manager.UpdateProfile(context.Background(), users.ProfileUpdate{LastName: utils.Ptr("Lee")})
	require.True(t, res.Success, "%+v", res)
	assert.Equal(t, 2, h.backend.Calls(backendfake.Update))
	assert.Equal(t, 1, h.backend.Calls(backendfake.Refresh))
	assert.Equal(t, "Lee", utils.Value(res.User.LastName))
}

func TestUpdateProfileRefreshRejected(t *testing.T) {
	h := signedIn(t)
	h.backend.ExpireAccessTokens()
	h.backend.RevokeRefreshTokens()

	res := h.manager.UpdateProfile(context.Background(), users.ProfileUpdate{LastName: utils.Ptr("Lee")})
	assert.False(t, res.Success)
	assert.Equal(t, session.KindRefreshExpired, res.Kind)
	h.assertCleared(t)
}

func TestUpdateProfileTransportFailureKeepsSession(t *testing.T) {
	h := signedIn(t)
	h.backend.Fail(backendfake.Update, autherrors.ErrTransport)

	res := h.manager.UpdateProfile(context.Background(), users.ProfileUpdate{LastName: utils.Ptr("Lee")})
	assert.Equal(t, session.KindTransport, res.Kind)
	s := h.manager.Current()
	assert.True(t, s.Authenticated)
	assert.Nil(t, s.User.LastName)
}

func TestUpdateProfileCacheFailureStillSucceeds(t *testing.T) {
	h := signedIn(t)
	h.store.FailSet(true)

	res := h.manager.UpdateProfile(context.Background(), users.ProfileUpdate{LastName: utils.Ptr("Lee")})
	assert.True(t, res.Success)
	assert.Equal(t, "Lee", utils.Value(h.manager.Current().User.LastName))
}

func TestRefresh(t *testing.T) {
	h := signedIn(t)

	res := h.manager.Refresh(context.Background())
	assert.True(t, res.Success)
	assert.Equal(t, "1", res.User.ID)
	access, _ := h.store.Value(credentials.AccessTokenKey)
	assert.Equal(t, "access-2", access)
	assert.True(t, h.manager.Current().Authenticated)
}

func TestRefreshRejected(t *testing.T) {
	h := signedIn(t)
	h.backend.RevokeRefreshTokens()

	res := h.manager.Refresh(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, session.KindRefreshExpired, res.Kind)
	h.assertCleared(t)
}

func TestRefreshTransportFailureKeepsSession(t *testing.T) {
	h := signedIn(t)
	h.backend.Fail(backendfake.Refresh, autherrors.ErrTransport)

	res := h.manager.Refresh(context.Background())
	assert.Equal(t, session.KindTransport, res.Kind)
	assert.True(t, h.manager.Current().Authenticated)
	access, _ := h.store.Value(credentials.AccessTokenKey)
	assert.Equal(t, "access-1", access)
}
