// Package token inspects backend-issued access tokens without verifying them.
// The backend remains the authority; inspection only lets the client skip a
// round trip that is certain to fail.
package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var NowTimeFunc = time.Now

// DefaultLeeway absorbs small clock differences between device and backend.
const DefaultLeeway = 10 * time.Second

var ErrNotJWT = errors.New("token is not a JWT")

// Introspection is the subset of claims the session cares about.
type Introspection struct {
	Sub string    `json:"sub,omitempty"`
	Exp time.Time `json:"exp,omitempty"`
	Iat time.Time `json:"iat,omitempty"`
	Iss string    `json:"iss,omitempty"`
}

// HasExpiry reports whether the token carried an exp claim.
func (i *Introspection) HasExpiry() bool {
	return !i.Exp.IsZero()
}

// Inspect decodes the claims of rawToken. Opaque tokens return ErrNotJWT.
func Inspect(rawToken string) (*Introspection, error) {
	if strings.Count(strings.TrimSpace(rawToken), ".") != 2 {
		return nil, ErrNotJWT
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	in := &Introspection{}
	in.Sub, _ = claims.GetSubject()
	in.Iss, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		in.Exp = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		in.Iat = iat.Time
	}
	return in, nil
}

// Expired reports whether rawToken's exp is before now minus leeway. ok is
// false when the expiry can't be determined, in which case the caller should
// let the backend decide.
func Expired(rawToken string, leeway time.Duration) (expired bool, ok bool) {
	in, err := Inspect(rawToken)
	if err != nil || !in.HasExpiry() {
		return false, false
	}
	return NowTimeFunc().After(in.Exp.Add(leeway)), true
}
