package config

type ProviderConfig interface {
	GetAppleClientID() string
	GetAppleRedirectURI() string
	GetFacebookAppID() string
	GetFacebookClientToken() string
	GetFacebookRedirectURI() string
	GetFacebookFetchProfile() bool
	GetGoogleClientID() string
	GetGoogleAndroidClientID() string
	GetGoogleIOSClientID() string
	GetGoogleRedirectURI() string
	GetVerifyIDTokens() bool
}

type Providers struct{}

var _ ProviderConfig = Providers{}

func (Providers) GetAppleClientID() string {
	return GetEnv("APPLE_CLIENT_ID", "")
}

func (Providers) GetAppleRedirectURI() string {
	return GetEnv("APPLE_REDIRECT_URI", "")
}

func (Providers) GetFacebookAppID() string {
	return GetEnv("FACEBOOK_APP_ID", "")
}

func (Providers) GetFacebookClientToken() string {
	return GetEnv("FACEBOOK_CLIENT_TOKEN", "")
}

func (Providers) GetFacebookRedirectURI() string {
	return GetEnv("FACEBOOK_REDIRECT_URI", "")
}

func (Providers) GetFacebookFetchProfile() bool {
	return GetBool("FACEBOOK_FETCH_PROFILE", false)
}

// GetGoogleClientID is the web client ID; ID tokens are issued for this audience.
func (Providers) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (Providers) GetGoogleAndroidClientID() string {
	return GetEnv("GOOGLE_ANDROID_CLIENT_ID", "")
}

func (Providers) GetGoogleIOSClientID() string {
	return GetEnv("GOOGLE_IOS_CLIENT_ID", "")
}

func (Providers) GetGoogleRedirectURI() string {
	return GetEnv("GOOGLE_REDIRECT_URI", "")
}

// GetVerifyIDTokens turns on Apple/Google ID token verification.
func (Providers) GetVerifyIDTokens() bool {
	return GetBool("VERIFY_ID_TOKENS", false)
}
