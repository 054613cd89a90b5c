package config

type LinkingConfig interface {
	GetStravaClientID() string
	GetStravaClientSecret() string
	GetStravaRedirectURI() string
	GetStravaRequireState() bool
}

type Linking struct{}

var _ LinkingConfig = Linking{}

func (Linking) GetStravaClientID() string {
	return GetEnv("STRAVA_CLIENT_ID", "")
}

func (Linking) GetStravaClientSecret() string {
	return GetEnv("STRAVA_CLIENT_SECRET", "")
}

func (Linking) GetStravaRedirectURI() string {
	return GetEnv("STRAVA_REDIRECT_URI", "")
}

func (Linking) GetStravaRequireState() bool {
	return GetBool("STRAVA_REQUIRE_STATE", false)
}
