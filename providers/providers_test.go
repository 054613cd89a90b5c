package providers_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	kind providers.Kind
}

func (s stubProvider) Kind() providers.Kind                   { return s.kind }
func (s stubProvider) IsAvailable(context.Context) bool       { return true }
func (s stubProvider) SignOut(context.Context) error          { return nil }
func (s stubProvider) SignIn(context.Context) (*providers.Result, error) {
	return providers.CancelledResult(), nil
}

func TestParseKind(t *testing.T) {
	k, err := providers.ParseKind(" Facebook ")
	require.NoError(t, err)
	assert.Equal(t, providers.Facebook, k)

	_, err = providers.ParseKind("myspace")
	require.ErrorIs(t, err, autherrors.ErrUnknownProvider)
}

func TestRegistry(t *testing.T) {
	r := providers.NewRegistry(stubProvider{kind: providers.Google}, stubProvider{kind: providers.Apple}, nil)

	p, err := r.Get(providers.Google)
	require.NoError(t, err)
	assert.Equal(t, providers.Google, p.Kind())

	_, err = r.Get(providers.Facebook)
	require.ErrorIs(t, err, autherrors.ErrUnknownProvider)

	assert.Equal(t, []providers.Kind{providers.Apple, providers.Google}, r.Kinds())
}

func TestStageError(t *testing.T) {
	assert.NoError(t, providers.Fail(providers.Google, providers.StageExchange, nil))

	err := providers.Fail(providers.Google, providers.StageNativeSignIn, autherrors.ErrProviderCancelled)
	require.ErrorIs(t, err, autherrors.ErrProviderCancelled)

	var stageErr *providers.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, providers.StageNativeSignIn, stageErr.Stage)
	assert.Contains(t, err.Error(), "google sign-in failed at native_sign_in")
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const clientID = "com.example.app"
	v := providers.NewVerifierWithKeys(providers.AppleIssuer, clientID, key.Public())

	sign := func(claims jwtlib.MapClaims) string {
		s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	now := time.Now()

	t.Run("valid token", func(t *testing.T) {
		raw := sign(jwtlib.MapClaims{
			"iss":            providers.AppleIssuer,
			"aud":            clientID,
			"sub":            "apple-user",
			"email":          "a@privaterelay.appleid.com",
			"email_verified": "true",
			"iat":            now.Unix(),
			"exp":            now.Add(time.Hour).Unix(),
		})
		claims, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "apple-user", claims.Subject)
		assert.Equal(t, "a@privaterelay.appleid.com", claims.Email)
		assert.True(t, claims.EmailVerified)
	})

	t.Run("wrong audience", func(t *testing.T) {
		raw := sign(jwtlib.MapClaims{
			"iss": providers.AppleIssuer,
			"aud": "someone-else",
			"sub": "apple-user",
			"iat": now.Unix(),
			"exp": now.Add(time.Hour).Unix(),
		})
		_, err := v.Verify(context.Background(), raw)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		raw := sign(jwtlib.MapClaims{
			"iss": providers.AppleIssuer,
			"aud": clientID,
			"sub": "apple-user",
			"iat": now.Add(-2 * time.Hour).Unix(),
			"exp": now.Add(-time.Hour).Unix(),
		})
		_, err := v.Verify(context.Background(), raw)
		require.Error(t, err)
	})
}
