package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-auth-session/backend"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/credentials/filestore"
	"github.com/jrsteele09/go-auth-session/credentials/redisstore"
	credentialsrepofake "github.com/jrsteele09/go-auth-session/credentials/repofake"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/linking"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/jrsteele09/go-auth-session/providers/apple"
	"github.com/jrsteele09/go-auth-session/providers/facebook"
	"github.com/jrsteele09/go-auth-session/providers/google"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog/log"
)

// app is one CLI invocation's wiring.
type app struct {
	manager *session.Manager
	linker  *linking.Linker
	closers []func() error
}

func newApp(ctx context.Context, c config.Config, creds nativeCredentials) (*app, error) {
	a := &app{}

	store, err := newStore(ctx, c, a)
	if err != nil {
		return nil, err
	}

	client, err := backend.New(c.GetAPIURL(), store,
		backend.WithTimeout(c.GetRequestTimeout()),
		backend.WithLogger(log.Logger.With().Str("component", "backend").Logger()),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	ps, err := newProviders(ctx, c, creds)
	if err != nil {
		a.Close()
		return nil, err
	}

	m, err := metrics.NewSession(nil)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []session.Option{
		session.WithProviders(ps...),
		session.WithMetrics(m),
		session.WithLogger(log.Logger.With().Str("component", "session").Logger()),
	}
	if c.GetStravaClientID() != "" {
		a.linker, err = linking.New(linking.Config{
			ClientID:     c.GetStravaClientID(),
			ClientSecret: c.GetStravaClientSecret(),
			RedirectURI:  c.GetStravaRedirectURI(),
			RequireState: c.GetStravaRequireState(),
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, session.WithLinker(a.linker))
	}

	a.manager, err = session.New(client, store, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}

func newStore(ctx context.Context, c config.Config, a *app) (credentials.Store, error) {
	switch driver := c.GetStoreDriver(); driver {
	case config.StoreMemory:
		return credentialsrepofake.NewFakeStore(), nil
	case config.StoreFile:
		path := c.GetStorePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		var opts []filestore.Option
		if pass := c.GetStorePassphrase(); pass != "" {
			opts = append(opts, filestore.WithPassphrase(pass))
		}
		return filestore.New(path, opts...)
	case config.StoreRedis:
		s, err := redisstore.Dial(ctx, c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB(),
			redisstore.WithPrefix(c.GetRedisPrefix()))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func newProviders(ctx context.Context, c config.Config, creds nativeCredentials) ([]providers.Provider, error) {
	var appleVerifier, googleVerifier providers.IdentityVerifier
	if c.GetVerifyIDTokens() {
		if id := c.GetAppleClientID(); id != "" {
			v, err := providers.NewOIDCVerifier(ctx, providers.AppleIssuer, id)
			if err != nil {
				return nil, err
			}
			appleVerifier = v
		}
		if id := c.GetGoogleClientID(); id != "" {
			v, err := providers.NewOIDCVerifier(ctx, providers.GoogleIssuer, id)
			if err != nil {
				return nil, err
			}
			googleVerifier = v
		}
	}

	return []providers.Provider{
		apple.New(&appleSDK{creds: creds}, apple.Config{
			RedirectURI: c.GetAppleRedirectURI(),
			Verifier:    appleVerifier,
		}),
		facebook.New(&facebookSDK{creds: creds}, facebook.Config{
			RedirectURI:  c.GetFacebookRedirectURI(),
			FetchProfile: c.GetFacebookFetchProfile(),
		}),
		google.New(&googleSDK{creds: creds}, google.Config{
			RedirectURI: c.GetGoogleRedirectURI(),
			Verifier:    googleVerifier,
		}),
	}, nil
}
