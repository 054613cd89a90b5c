package main

import (
	"context"

	"github.com/jrsteele09/go-auth-session/providers/apple"
	"github.com/jrsteele09/go-auth-session/providers/facebook"
	"github.com/jrsteele09/go-auth-session/providers/google"
)

// nativeCredentials are what a device SDK would hand back after its own UI.
// The CLI takes them from flags instead.
type nativeCredentials struct {
	AppleCode     string
	AppleIDToken  string
	AppleUser     string
	FacebookToken string
	GoogleIDToken string
	Email         string
	Name          string
}

var (
	_ apple.SDK    = (*appleSDK)(nil)
	_ facebook.SDK = (*facebookSDK)(nil)
	_ google.SDK   = (*googleSDK)(nil)
)

type appleSDK struct {
	creds nativeCredentials
}

func (s *appleSDK) Supported() bool {
	return s.creds.AppleCode != ""
}

func (s *appleSDK) PerformRequest(_ context.Context, _ []string) (*apple.Credential, error) {
	if s.creds.AppleCode == "" {
		return nil, apple.ErrCanceled
	}
	return &apple.Credential{
		User:              s.creds.AppleUser,
		AuthorizationCode: s.creds.AppleCode,
		IdentityToken:     s.creds.AppleIDToken,
		Email:             s.creds.Email,
	}, nil
}

type facebookSDK struct {
	creds nativeCredentials
}

func (s *facebookSDK) LogInWithPermissions(_ context.Context, permissions []string) (*facebook.LoginResult, error) {
	if s.creds.FacebookToken == "" {
		return &facebook.LoginResult{Cancelled: true}, nil
	}
	return &facebook.LoginResult{GrantedPermissions: permissions}, nil
}

func (s *facebookSDK) CurrentAccessToken(context.Context) (string, error) {
	return s.creds.FacebookToken, nil
}

func (s *facebookSDK) LogOut() error {
	return nil
}

type googleSDK struct {
	creds nativeCredentials
}

func (s *googleSDK) HasPlayServices(context.Context) error {
	if s.creds.GoogleIDToken == "" && s.creds.Email == "" {
		return google.ErrPlayServicesNotAvailable
	}
	return nil
}

func (s *googleSDK) SignIn(context.Context) (*google.SignInData, error) {
	if s.creds.Email == "" {
		return nil, google.ErrSignInCancelled
	}
	return &google.SignInData{
		IDToken: s.creds.GoogleIDToken,
		User: &google.User{
			Email: s.creds.Email,
			Name:  s.creds.Name,
		},
	}, nil
}

func (s *googleSDK) SignOut(context.Context) error {
	return nil
}
