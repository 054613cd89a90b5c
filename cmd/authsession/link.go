package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/linking"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLinkStravaCmd(c config.Config) *cobra.Command {
	var (
		callbackURL string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "link-strava",
		Short: "Link a Strava account to the signed-in user",
		Long: `Without --callback-url, prints the Strava authorize URL and waits for the
redirect on a loopback listener at STRAVA_REDIRECT_URI. With --callback-url,
completes the link from a redirect URL captured elsewhere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, nativeCredentials{}, func(ctx context.Context, a *app) error {
				if a.linker == nil {
					return errors.New("strava linking is not configured (set STRAVA_CLIENT_ID)")
				}

				var acct *linking.Account
				if callbackURL != "" {
					res := a.manager.LinkFitnessAccount(ctx, callbackURL)
					if !res.Success {
						_ = printJSON(res)
						return resultErr(false, res.Kind, res.Error)
					}
					acct = res.Account
				} else {
					if !a.manager.Current().Authenticated {
						return errors.New("sign in before linking a fitness account")
					}
					var err error
					if acct, err = awaitCallback(ctx, a.linker, c.GetStravaRedirectURI(), timeout); err != nil {
						return err
					}
				}

				res := a.manager.UpdateProfile(ctx, acct.ProfileUpdate())
				if err := printJSON(res); err != nil {
					return err
				}
				return resultErr(res.Success, res.Kind, res.Error)
			})
		},
	}
	cmd.Flags().StringVar(&callbackURL, "callback-url", "", "Redirect URL received from Strava")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the redirect")
	return cmd
}

type linkOutcome struct {
	acct *linking.Account
	err  error
}

// awaitCallback serves the redirect URI on loopback until one callback arrives.
func awaitCallback(ctx context.Context, l *linking.Linker, redirectURI string, timeout time.Duration) (*linking.Account, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("redirect URI %q must be an http loopback URL for interactive linking; use --callback-url", redirectURI)
	}

	done := make(chan linkOutcome, 1)
	mux := http.NewServeMux()
	path := u.Path
	if path == "" {
		path = "/"
	}
	callback := l.CallbackHandler(func(acct *linking.Account, err error) {
		select {
		case done <- linkOutcome{acct: acct, err: err}:
		default:
		}
	})
	mux.Handle(path, chainMiddleware(callback,
		loggingMiddleware,
		recoverMiddleware,
		methodsMiddleware(http.MethodGet, http.MethodPost),
	))

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", u.Host, err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("callback listener stopped")
		}
	}()
	defer shutdown(server)

	authURL, err := l.AuthURL()
	if err != nil {
		return nil, err
	}
	fmt.Printf("Open this URL to authorize Strava:\n\n  %s\n\n", authURL)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out.acct, out.err
	case <-timer.C:
		return nil, errors.New("timed out waiting for the Strava redirect")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func shutdown(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("server.Shutdown")
	}
}
