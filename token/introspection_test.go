package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-session/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := signed(t, jwtlib.MapClaims{
		"sub": "user-1",
		"iss": "directus",
		"exp": exp.Unix(),
		"iat": exp.Add(-15 * time.Minute).Unix(),
	})

	in, err := token.Inspect(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", in.Sub)
	assert.Equal(t, "directus", in.Iss)
	assert.True(t, in.Exp.Equal(exp))
	assert.True(t, in.HasExpiry())
}

func TestInspect_Opaque(t *testing.T) {
	_, err := token.Inspect("opaque-token")
	require.ErrorIs(t, err, token.ErrNotJWT)

	_, err = token.Inspect("a.b.c")
	require.ErrorIs(t, err, token.ErrNotJWT)
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orig := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return now }
	defer func() { token.NowTimeFunc = orig }()

	tests := []struct {
		name        string
		raw         string
		wantExpired bool
		wantOK      bool
	}{
		{"future", signed(t, jwtlib.MapClaims{"exp": now.Add(time.Hour).Unix()}), false, true},
		{"past", signed(t, jwtlib.MapClaims{"exp": now.Add(-time.Hour).Unix()}), true, true},
		{"within leeway", signed(t, jwtlib.MapClaims{"exp": now.Add(-5 * time.Second).Unix()}), false, true},
		{"no exp", signed(t, jwtlib.MapClaims{"sub": "x"}), false, false},
		{"opaque", "not-a-jwt", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expired, ok := token.Expired(tt.raw, token.DefaultLeeway)
			assert.Equal(t, tt.wantExpired, expired)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
