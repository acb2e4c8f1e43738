package models

import (
	"time"

	"github.com/google/uuid"
)

// Provider is the sign-in surface a profile came from. None of them are
// verified against the provider; the profile is whatever the client claims.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderGuest    Provider = "guest"
)

func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderFacebook || p == ProviderGuest
}

// GuestName is used when a login carries no display name.
const GuestName = "Guest User"

type UserProfile struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       *string    `json:"email,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Provider    Provider   `json:"provider"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type LoginRequest struct {
	Provider  Provider  `json:"provider"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	Language  *Language `json:"language"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}

type AuthTokens struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         *UserProfile `json:"user,omitempty"`
	Settings     *AppSettings `json:"settings,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
