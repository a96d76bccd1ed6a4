package models

import "time"

// Roles assignable to accounts. Role checks are string comparisons; there is
// no permission graph beyond admin/user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User captures application-facing fields for an identity. The password hash
// never serializes.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	Metadata     map[string]any `json:"user_metadata"`
	AvatarURL    string         `json:"avatar_url,omitempty"`
	PasswordHash string         `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Name returns the display name from metadata, falling back to the email.
func (u User) Name() string {
	if u.Metadata != nil {
		if name, ok := u.Metadata["full_name"].(string); ok && name != "" {
			return name
		}
		if name, ok := u.Metadata["name"].(string); ok && name != "" {
			return name
		}
	}
	return u.Email
}

// Session is the token pair returned by login, register, and refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}
