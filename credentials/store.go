// Package credentials defines the durable key/value store that holds the
// session's access token, refresh token and cached user profile.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/users"
)

// Durable keys
const (
	AccessTokenKey  = "auth_token"
	RefreshTokenKey = "refresh_token"
	UserDataKey     = "user_data"
)

// Keys lists every key the session owns.
var Keys = []string{AccessTokenKey, RefreshTokenKey, UserDataKey}

// Store is a scoped key/value store. Get reports found=false for absent keys;
// err is reserved for failures of the underlying storage.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Batcher is implemented by stores that can write or delete several keys
// atomically with respect to concurrent readers.
type Batcher interface {
	SetMany(ctx context.Context, values map[string]string) error
	RemoveMany(ctx context.Context, keys ...string) error
}

// TokenPair is the backend-issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires,omitempty"` // Access token lifetime in milliseconds, when reported
}

// Valid reports whether both tokens are present.
func (p TokenPair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// SaveTokens persists a valid pair. Invalid pairs are rejected without touching the store.
func SaveTokens(ctx context.Context, s Store, pair TokenPair) error {
	if !pair.Valid() {
		return autherrors.ErrInvalidTokenPair
	}
	return setMany(ctx, s, map[string]string{
		AccessTokenKey:  pair.AccessToken,
		RefreshTokenKey: pair.RefreshToken,
	})
}

// LoadTokens reads the stored pair. found is false unless the access token exists.
func LoadTokens(ctx context.Context, s Store) (TokenPair, bool, error) {
	access, found, err := s.Get(ctx, AccessTokenKey)
	if err != nil {
		return TokenPair{}, false, storeErr(err, "get %s", AccessTokenKey)
	}
	if !found || access == "" {
		return TokenPair{}, false, nil
	}
	refresh, _, err := s.Get(ctx, RefreshTokenKey)
	if err != nil {
		return TokenPair{}, false, storeErr(err, "get %s", RefreshTokenKey)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, true, nil
}

// RefreshToken returns the stored refresh token, "" when absent.
func RefreshToken(ctx context.Context, s Store) (string, error) {
	rt, _, err := s.Get(ctx, RefreshTokenKey)
	if err != nil {
		return "", storeErr(err, "get %s", RefreshTokenKey)
	}
	return rt, nil
}

// SaveProfile stores the profile as JSON under user_data.
func SaveProfile(ctx context.Context, s Store, profile *users.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("[credentials.SaveProfile] nil profile")
	}
	b, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("[credentials.SaveProfile] marshal: %w", err)
	}
	if err := s.Set(ctx, UserDataKey, string(b)); err != nil {
		return storeErr(err, "set %s", UserDataKey)
	}
	return nil
}

// LoadProfile reads the cached profile; nil when absent.
func LoadProfile(ctx context.Context, s Store) (*users.UserProfile, error) {
	raw, found, err := s.Get(ctx, UserDataKey)
	if err != nil {
		return nil, storeErr(err, "get %s", UserDataKey)
	}
	if !found || raw == "" {
		return nil, nil
	}
	var p users.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("[credentials.LoadProfile] decode: %w", err)
	}
	return &p, nil
}

// Clear removes every session key. It attempts all removals and joins failures.
func Clear(ctx context.Context, s Store) error {
	if b, ok := s.(Batcher); ok {
		if err := b.RemoveMany(ctx, Keys...); err != nil {
			return storeErr(err, "remove keys")
		}
		return nil
	}
	var errs []error
	for _, k := range Keys {
		if err := s.Remove(ctx, k); err != nil {
			errs = append(errs, storeErr(err, "remove %s", k))
		}
	}
	return autherrors.Join(errs...)
}

// Snapshot captures the current value of every session key.
type Snapshot map[string]*string

// TakeSnapshot reads all session keys so they can be restored after a failed operation.
func TakeSnapshot(ctx context.Context, s Store) (Snapshot, error) {
	snap := make(Snapshot, len(Keys))
	for _, k := range Keys {
		v, found, err := s.Get(ctx, k)
		if err != nil {
			return nil, storeErr(err, "get %s", k)
		}
		if found {
			value := v
			snap[k] = &value
		} else {
			snap[k] = nil
		}
	}
	return snap, nil
}

// Restore writes the snapshot back, deleting keys that were absent.
func Restore(ctx context.Context, s Store, snap Snapshot) error {
	set := make(map[string]string)
	var remove []string
	for _, k := range Keys {
		if v := snap[k]; v != nil {
			set[k] = *v
		} else {
			remove = append(remove, k)
		}
	}
	if len(remove) > 0 {
		if b, ok := s.(Batcher); ok {
			if err := b.RemoveMany(ctx, remove...); err != nil {
				return storeErr(err, "restore remove")
			}
		} else {
			for _, k := range remove {
				if err := s.Remove(ctx, k); err != nil {
					return storeErr(err, "restore remove %s", k)
				}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return setMany(ctx, s, set)
}

func setMany(ctx context.Context, s Store, values map[string]string) error {
	if b, ok := s.(Batcher); ok {
		if err := b.SetMany(ctx, values); err != nil {
			return storeErr(err, "set keys")
		}
		return nil
	}
	for _, k := range Keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		if err := s.Set(ctx, k, v); err != nil {
			return storeErr(err, "set %s", k)
		}
	}
	return nil
}

func storeErr(err error, format string, args ...interface{}) error {
	if autherrors.Is(err, autherrors.ErrStore) {
		return autherrors.Wrapf(err, format, args...)
	}
	return fmt.Errorf("%w: "+format+": %w", append(append([]interface{}{autherrors.ErrStore}, args...), err)...)
}
