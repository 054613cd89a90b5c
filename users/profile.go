package users

import (
	"strings"

	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// UserProfile is the current-user snapshot returned by the backend's /users/me endpoint.
type UserProfile struct {
	ID        string  `json:"id"`                   // Unique identifier for the user
	Email     string  `json:"email"`                // User's email address
	FirstName *string `json:"first_name,omitempty"` // First name of the user
	LastName  *string `json:"last_name,omitempty"`  // Last name of the user
	Avatar    *string `json:"avatar,omitempty"`     // Absolute URL or backend asset ID
	Role      *string `json:"role,omitempty"`       // Backend role ID
	Provider  *string `json:"provider,omitempty"`   // Identity provider that produced the session

	// Linked fitness account
	StravaAccessToken  *string `json:"strava_access_token,omitempty"`
	StravaRefreshToken *string `json:"strava_refresh_token,omitempty"`
	StravaExpiresAt    *int64  `json:"strava_expires_at,omitempty"`
	StravaAthleteID    *string `json:"strava_athlete_id,omitempty"`
}

// ProfileUpdate is a partial update for /users/me. Nil fields are omitted from
// the request and left unchanged server-side.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`

	StravaAccessToken  *string `json:"strava_access_token,omitempty"`
	StravaRefreshToken *string `json:"strava_refresh_token,omitempty"`
	StravaExpiresAt    *int64  `json:"strava_expires_at,omitempty"`
	StravaAthleteID    *string `json:"strava_athlete_id,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (u ProfileUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Avatar == nil &&
		u.StravaAccessToken == nil && u.StravaRefreshToken == nil &&
		u.StravaExpiresAt == nil && u.StravaAthleteID == nil
}

// Clone returns a deep copy so snapshots handed to observers can't be mutated.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.FirstName = utils.Clone(p.FirstName)
	c.LastName = utils.Clone(p.LastName)
	c.Avatar = utils.Clone(p.Avatar)
	c.Role = utils.Clone(p.Role)
	c.Provider = utils.Clone(p.Provider)
	c.StravaAccessToken = utils.Clone(p.StravaAccessToken)
	c.StravaRefreshToken = utils.Clone(p.StravaRefreshToken)
	c.StravaAthleteID = utils.Clone(p.StravaAthleteID)
	c.StravaExpiresAt = utils.Clone(p.StravaExpiresAt)
	return &c
}

// ProviderName returns the recorded provider or "" when none is set.
func (p *UserProfile) ProviderName() string {
	if p == nil {
		return ""
	}
	return utils.Value(p.Provider)
}

// DisplayName picks the friendliest available name: "first last", first name,
// the local part of the email, or "User".
func (p *UserProfile) DisplayName() string {
	if p == nil {
		return "User"
	}
	first := utils.Value(p.FirstName)
	last := utils.Value(p.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case p.Email != "":
		local, _, _ := strings.Cut(p.Email, "@")
		return local
	}
	return "User"
}

// AvatarURL resolves the avatar to an absolute URL. Backend file IDs are served
// from <apiURL>/assets/<id>.
func (p *UserProfile) AvatarURL(apiURL string) string {
	if p == nil || utils.Value(p.Avatar) == "" {
		return ""
	}
	avatar := *p.Avatar
	if strings.HasPrefix(avatar, "http") {
		return avatar
	}
	return strings.TrimRight(apiURL, "/") + "/assets/" + avatar
}
