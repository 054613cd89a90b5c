package facebook_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/jrsteele09/go-auth-session/providers/facebook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSDK struct {
	login     *facebook.LoginResult
	loginErr  error
	token     string
	loggedOut bool
}

func (f *fakeSDK) LogInWithPermissions(context.Context, []string) (*facebook.LoginResult, error) {
	return f.login, f.loginErr
}

func (f *fakeSDK) CurrentAccessToken(context.Context) (string, error) {
	return f.token, nil
}

func (f *fakeSDK) LogOut() error {
	f.loggedOut = true
	return nil
}

func TestSignIn_Exchange(t *testing.T) {
	sdk := &fakeSDK{login: &facebook.LoginResult{}, token: "fb-token"}
	p := facebook.New(sdk, facebook.Config{RedirectURI: "https://api.example.com/auth/facebook"})

	res, err := p.SignIn(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Exchange)
	assert.Equal(t, providers.Facebook, res.Exchange.Provider)

	body, err := json.Marshal(res.Exchange.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"fb-token"}`, string(body))
}

func TestSignIn_Cancelled(t *testing.T) {
	p := facebook.New(&fakeSDK{login: &facebook.LoginResult{Cancelled: true}}, facebook.Config{})
	res, err := p.SignIn(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Nil(t, res.Exchange)
}

func TestSignIn_NativeError(t *testing.T) {
	p := facebook.New(&fakeSDK{loginErr: errors.New("sdk crashed")}, facebook.Config{})
	_, err := p.SignIn(context.Background())
	var stageErr *providers.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, providers.StageNativeSignIn, stageErr.Stage)

	p = facebook.New(&fakeSDK{login: &facebook.LoginResult{}}, facebook.Config{})
	_, err = p.SignIn(context.Background())
	require.Error(t, err)
}

func TestSignIn_FetchProfile(t *testing.T) {
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fb-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "id,name,email,first_name,last_name", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"id":"42","name":"Ada Lovelace","email":"ada@example.com","first_name":"Ada","last_name":"Lovelace"}`))
	}))
	defer graph.Close()

	sdk := &fakeSDK{login: &facebook.LoginResult{}, token: "fb-token"}
	p := facebook.New(sdk, facebook.Config{FetchProfile: true, GraphURL: graph.URL, HTTPClient: graph.Client()})

	res, err := p.SignIn(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Equal(t, "Ada", res.Profile.FirstName)

	body, err := json.Marshal(res.Exchange.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"fb-token","email":"ada@example.com","name":"Ada Lovelace"}`, string(body))
}

func TestSignIn_FetchProfileFailure(t *testing.T) {
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer graph.Close()

	sdk := &fakeSDK{login: &facebook.LoginResult{}, token: "fb-token"}
	p := facebook.New(sdk, facebook.Config{FetchProfile: true, GraphURL: graph.URL})

	_, err := p.SignIn(context.Background())
	require.ErrorIs(t, err, autherrors.ErrTransport)
	assert.Contains(t, err.Error(), "profile_fetch")
}

func TestSignOut(t *testing.T) {
	sdk := &fakeSDK{}
	require.NoError(t, facebook.New(sdk, facebook.Config{}).SignOut(context.Background()))
	assert.True(t, sdk.loggedOut)
}
