package linking_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/linking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redirectURI = "myapp://strava-callback"

func stravaTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Bad Request","errors":[{"resource":"AuthorizationCode","field":"code","code":"invalid"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"token_type":"Bearer","expires_at":1700000000,"expires_in":21600,"refresh_token":"s-rt","access_token":"s-at","athlete":{"id":134815}}`))
		case "refresh_token":
			if r.PostForm.Get("refresh_token") != "s-rt" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"message":"Bad Request"}`))
				return
			}
			_, _ = w.Write([]byte(`{"token_type":"Bearer","expires_at":1700021600,"expires_in":21600,"refresh_token":"s-rt2","access_token":"s-at2"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLinker(t *testing.T, srv *httptest.Server, requireState bool) *linking.Linker {
	t.Helper()
	l, err := linking.New(linking.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  redirectURI,
		TokenURL:     srv.URL,
		RequireState: requireState,
		HTTPClient:   srv.Client(),
	})
	require.NoError(t, err)
	return l
}

func TestNew_Validation(t *testing.T) {
	_, err := linking.New(linking.Config{ClientID: "id", RedirectURI: redirectURI})
	require.Error(t, err)
	_, err = linking.New(linking.Config{ClientID: "id", ClientSecret: "secret"})
	require.Error(t, err)
}

func TestAuthURL(t *testing.T) {
	l := newLinker(t, stravaTokenServer(t), false)

	raw, err := l.AuthURL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.strava.com", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, redirectURI, q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, linking.DefaultScope, q.Get("scope"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestLink(t *testing.T) {
	l := newLinker(t, stravaTokenServer(t), false)

	acct, err := l.Link(context.Background(), redirectURI+"?code=good-code&scope=read")
	require.NoError(t, err)
	assert.Equal(t, "s-at", acct.AccessToken)
	assert.Equal(t, "s-rt", acct.RefreshToken)
	assert.Equal(t, int64(1700000000), acct.ExpiresAt)
	assert.Equal(t, "134815", acct.AthleteID)

	acct, err = l.Link(context.Background(), "MyApp://strava-callback/done?code=good-code")
	require.NoError(t, err)
	assert.Equal(t, "s-at", acct.AccessToken)
}

func TestLink_Failures(t *testing.T) {
	l := newLinker(t, stravaTokenServer(t), false)
	ctx := context.Background()

	tests := []struct {
		name      string
		url       string
		cancelled bool
	}{
		{"wrong prefix", "otherapp://callback?code=good-code", false},
		{"longer host", "myapp://strava-callback-evil?code=good-code", false},
		{"host with suffix", "myapp://strava-callback.evil?code=good-code", false},
		{"wrong scheme", "https://strava-callback?code=good-code", false},
		{"missing code", redirectURI + "?scope=read", false},
		{"denied", redirectURI + "?error=access_denied", true},
		{"bad code", redirectURI + "?code=bad-code", false},
		{"unknown state", redirectURI + "?code=good-code&state=forged", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Link(ctx, tt.url)
			require.ErrorIs(t, err, autherrors.ErrLinking)
			assert.Equal(t, tt.cancelled, autherrors.Is(err, autherrors.ErrProviderCancelled))
		})
	}
}

func TestLink_State(t *testing.T) {
	l := newLinker(t, stravaTokenServer(t), true)
	ctx := context.Background()

	_, err := l.Link(ctx, redirectURI+"?code=good-code")
	require.ErrorIs(t, err, autherrors.ErrLinking)

	raw, err := l.AuthURL()
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	state := u.Query().Get("state")

	_, err = l.Link(ctx, redirectURI+"?code=good-code&state="+state)
	require.NoError(t, err)

	// A state can only be used once.
	_, err = l.Link(ctx, redirectURI+"?code=good-code&state="+state)
	require.ErrorIs(t, err, autherrors.ErrLinking)
}

func TestRefresh(t *testing.T) {
	l := newLinker(t, stravaTokenServer(t), false)

	acct, err := l.Refresh(context.Background(), "s-rt")
	require.NoError(t, err)
	assert.Equal(t, "s-at2", acct.AccessToken)
	assert.Equal(t, "s-rt2", acct.RefreshToken)

	_, err = l.Refresh(context.Background(), "revoked")
	require.ErrorIs(t, err, autherrors.ErrLinking)

	_, err = l.Refresh(context.Background(), "")
	require.ErrorIs(t, err, autherrors.ErrLinking)
}

func TestCallbackHandler(t *testing.T) {
	l := newLinker(t, stravaTokenServer(t), false)

	var got *linking.Account
	var gotErr error
	h := l.CallbackHandler(func(a *linking.Account, err error) {
		got, gotErr = a, err
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/strava/callback?code=good-code", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, gotErr)
	assert.Equal(t, "s-at", got.AccessToken)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/strava/callback?error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.ErrorIs(t, gotErr, autherrors.ErrProviderCancelled)
}

func TestAccountProfileUpdate(t *testing.T) {
	acct := &linking.Account{AccessToken: "s-at", RefreshToken: "s-rt", ExpiresAt: 1700000000, AthleteID: "134815"}

	u := acct.ProfileUpdate()
	assert.Equal(t, "s-at", *u.StravaAccessToken)
	assert.Equal(t, "s-rt", *u.StravaRefreshToken)
	assert.Equal(t, int64(1700000000), *u.StravaExpiresAt)
	assert.Equal(t, "134815", *u.StravaAthleteID)
	assert.Nil(t, u.FirstName)

	empty := (&linking.Account{}).ProfileUpdate()
	assert.True(t, empty.IsEmpty())
}
