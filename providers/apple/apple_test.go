package apple_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/jrsteele09/go-auth-session/providers/apple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSDK struct {
	supported bool
	cred      *apple.Credential
	err       error
	scopes    []string
}

func (f *fakeSDK) Supported() bool { return f.supported }

func (f *fakeSDK) PerformRequest(_ context.Context, scopes []string) (*apple.Credential, error) {
	f.scopes = scopes
	return f.cred, f.err
}

type fakeVerifier struct {
	claims *providers.IdentityClaims
	err    error
}

func (f fakeVerifier) Verify(context.Context, string) (*providers.IdentityClaims, error) {
	return f.claims, f.err
}

func TestSignIn_Exchange(t *testing.T) {
	sdk := &fakeSDK{supported: true, cred: &apple.Credential{User: "u1", AuthorizationCode: "auth-code", Email: "a@b.com"}}
	p := apple.New(sdk, apple.Config{RedirectURI: "https://api.example.com/auth/apple"})

	res, err := p.SignIn(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Exchange)
	assert.Equal(t, providers.Apple, res.Exchange.Provider)
	assert.Equal(t, "https://api.example.com/auth/apple", res.Exchange.Endpoint)
	assert.Equal(t, []string{apple.ScopeFullName, apple.ScopeEmail}, sdk.scopes)

	body, err := json.Marshal(res.Exchange.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"auth-code"}`, string(body))
	assert.Equal(t, "a@b.com", res.Profile.Email)
}

func TestSignIn_Unavailable(t *testing.T) {
	p := apple.New(&fakeSDK{supported: false}, apple.Config{})
	assert.False(t, p.IsAvailable(context.Background()))

	_, err := p.SignIn(context.Background())
	require.ErrorIs(t, err, autherrors.ErrProviderUnavailable)

	var stageErr *providers.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, providers.StageAvailability, stageErr.Stage)
}

func TestSignIn_Cancelled(t *testing.T) {
	p := apple.New(&fakeSDK{supported: true, err: apple.ErrCanceled}, apple.Config{})
	res, err := p.SignIn(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
}

func TestSignIn_NativeFailure(t *testing.T) {
	p := apple.New(&fakeSDK{supported: true, err: errors.New("keychain locked")}, apple.Config{})
	_, err := p.SignIn(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "native_sign_in")

	p = apple.New(&fakeSDK{supported: true, cred: &apple.Credential{User: "u1"}}, apple.Config{})
	_, err = p.SignIn(context.Background())
	require.Error(t, err)
}

func TestSignIn_Verification(t *testing.T) {
	cred := &apple.Credential{User: "u1", AuthorizationCode: "code", IdentityToken: "id-token"}

	t.Run("verified", func(t *testing.T) {
		v := fakeVerifier{claims: &providers.IdentityClaims{Subject: "u1", Email: "relay@apple.com"}}
		p := apple.New(&fakeSDK{supported: true, cred: cred}, apple.Config{Verifier: v})
		res, err := p.SignIn(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "relay@apple.com", res.Profile.Email)
	})

	t.Run("subject mismatch", func(t *testing.T) {
		v := fakeVerifier{claims: &providers.IdentityClaims{Subject: "other"}}
		p := apple.New(&fakeSDK{supported: true, cred: cred}, apple.Config{Verifier: v})
		_, err := p.SignIn(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token_verify")
	})

	t.Run("invalid token", func(t *testing.T) {
		v := fakeVerifier{err: errors.New("bad signature")}
		p := apple.New(&fakeSDK{supported: true, cred: cred}, apple.Config{Verifier: v})
		_, err := p.SignIn(context.Background())
		require.Error(t, err)
	})
}

func TestSignOut_NoOp(t *testing.T) {
	assert.NoError(t, apple.New(&fakeSDK{}, apple.Config{}).SignOut(context.Background()))
}
