package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/providers"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/spf13/cobra"
)

// withApp builds the session for one command, resolves any stored session
// and runs fn. Ctrl-C cancels the context.
func withApp(cmd *cobra.Command, c config.Config, creds nativeCredentials, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c, creds)
	if err != nil {
		return err
	}
	defer a.Close()

	a.manager.Hydrate(ctx)
	return fn(ctx, a)
}

func resultErr(success bool, kind session.ErrorKind, msg string) error {
	if success {
		return nil
	}
	return fmt.Errorf("%s (%s)", msg, kind)
}

func newLoginCmd(c config.Config) *cobra.Command {
	var (
		provider string
		password string
		creds    nativeCredentials
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a password or a provider credential",
		Example: `  authsession login --email a@b.com --password secret
  authsession login --provider google --email a@b.com --id-token eyJ...
  authsession login --provider facebook --access-token EAAB...
  authsession login --provider apple --code c123 --id-token eyJ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := providers.ParseKind(provider)
			if err != nil {
				return err
			}
			creds.AppleIDToken = creds.GoogleIDToken
			return withApp(cmd, c, creds, func(ctx context.Context, a *app) error {
				var res session.Result
				if kind == providers.Password {
					res = a.manager.LoginWithPassword(ctx, creds.Email, password)
				} else {
					res = a.manager.LoginWithProvider(ctx, kind)
				}
				if err := printJSON(res); err != nil {
					return err
				}
				return resultErr(res.Success, res.Kind, res.Error)
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", string(providers.Password), "password|apple|facebook|google")
	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", os.Getenv("AUTH_PASSWORD"), "Account password (env AUTH_PASSWORD)")
	cmd.Flags().StringVar(&creds.Name, "name", "", "Display name for provider sign-in")
	cmd.Flags().StringVar(&creds.GoogleIDToken, "id-token", "", "Google or Apple ID token")
	cmd.Flags().StringVar(&creds.FacebookToken, "access-token", "", "Facebook access token")
	cmd.Flags().StringVar(&creds.AppleCode, "code", "", "Apple authorization code")
	cmd.Flags().StringVar(&creds.AppleUser, "apple-user", "", "Apple user identifier")
	return cmd
}

func newLogoutCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, nativeCredentials{}, func(ctx context.Context, a *app) error {
				res := a.manager.Logout(ctx)
				if err := printJSON(res); err != nil {
					return err
				}
				return resultErr(res.Success, res.Kind, res.Error)
			})
		},
	}
}

func newWhoamiCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, nativeCredentials{}, func(ctx context.Context, a *app) error {
				s := a.manager.Current()
				if err := printJSON(s); err != nil {
					return err
				}
				if !s.Authenticated {
					return errors.New("not signed in")
				}
				fmt.Printf("Signed in as %s\n", s.User.DisplayName())
				if avatar := s.User.AvatarURL(c.GetAPIURL()); avatar != "" {
					fmt.Printf("Avatar: %s\n", avatar)
				}
				return nil
			})
		},
	}
}

func newRefreshCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, c, nativeCredentials{}, func(ctx context.Context, a *app) error {
				res := a.manager.Refresh(ctx)
				if err := printJSON(res); err != nil {
					return err
				}
				return resultErr(res.Success, res.Kind, res.Error)
			})
		},
	}
}

func newUpdateProfileCmd(c config.Config) *cobra.Command {
	var firstName, lastName, avatar string

	cmd := &cobra.Command{
		Use:   "update-profile",
		Short: "Change profile fields of the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update users.ProfileUpdate
			if cmd.Flags().Changed("first-name") {
				update.FirstName = &firstName
			}
			if cmd.Flags().Changed("last-name") {
				update.LastName = &lastName
			}
			if cmd.Flags().Changed("avatar") {
				update.Avatar = &avatar
			}
			if update.IsEmpty() {
				return errors.New("nothing to update")
			}
			return withApp(cmd, c, nativeCredentials{}, func(ctx context.Context, a *app) error {
				res := a.manager.UpdateProfile(ctx, update)
				if err := printJSON(res); err != nil {
					return err
				}
				return resultErr(res.Success, res.Kind, res.Error)
			})
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar asset ID or URL")
	return cmd
}
