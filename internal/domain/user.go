package domain

import (
	"time"
)

// AuthProvider names the sign-in method that created a user.
type AuthProvider string

const (
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
)

// User represents an authenticated account.
type User struct {
	UserID       string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	AvatarURL    string       `json:"avatar,omitempty"`
	Provider     AuthProvider `json:"provider"`
	PasswordHash string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// DisplayName returns the name shown in the header and sidebar, falling back
// to the local part of the email address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}

// Session binds an opaque cookie token to a user until it expires.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
