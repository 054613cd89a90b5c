package backend

import (
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/users"
)

// TokenData is the token triple issued by /auth/login and /auth/refresh.
type TokenData struct {
	// AccessToken is the short-lived JWT sent as "Authorization: Bearer <access_token>".
	AccessToken string `json:"access_token"`

	// Expires is the access token lifetime in milliseconds.
	// Example: 900000 (15 minutes)
	Expires int64 `json:"expires,omitempty"`

	// RefreshToken is the opaque token posted to /auth/refresh and /auth/logout.
	// It rotates on every refresh.
	RefreshToken string `json:"refresh_token"`
}

func (t TokenData) Pair() credentials.TokenPair {
	return credentials.TokenPair{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expires:      t.Expires,
	}
}

// TokenResponse wraps TokenData in the API's data envelope.
type TokenResponse struct {
	Data *TokenData `json:"data"`
}

// exchangeResponse accepts both the enveloped shape and the bare token
// object the provider endpoints return.
type exchangeResponse struct {
	Data *TokenData `json:"data,omitempty"`
	TokenData
}

func (r exchangeResponse) pair() credentials.TokenPair {
	if r.Data != nil && r.Data.AccessToken != "" {
		return r.Data.Pair()
	}
	return r.TokenData.Pair()
}

// UserResponse wraps the current user in the data envelope.
type UserResponse struct {
	Data *users.UserProfile `json:"data"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// apiErrors is the API's error body.
type apiErrors struct {
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}
