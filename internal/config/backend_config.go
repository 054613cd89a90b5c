package config

import "time"

type BackendConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
}

type Backend struct{}

var _ BackendConfig = Backend{}

// GetAPIURL returns the content API base URL (e.g. "https://cms.example.com")
func (Backend) GetAPIURL() string {
	return GetEnv("API_URL", "http://localhost:8055")
}

func (Backend) GetRequestTimeout() time.Duration {
	return GetDuration("REQUEST_TIMEOUT", 15*time.Second)
}
