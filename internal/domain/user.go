package domain

import "time"

// AuthMethod identifies how a user account authenticates.
type AuthMethod string

const (
	// AuthMethodPassword indicates email/password authentication.
	AuthMethodPassword AuthMethod = "password"
	// AuthMethodGoogle indicates a federated Google sign-in account.
	AuthMethodGoogle AuthMethod = "google"
)

// User represents an authenticated account in the system.
type User struct {
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  time.Time  `json:"last_login_at"`
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	AuthMethod   AuthMethod `json:"auth_method"`

	// IsSubscriber is the entitlement flag sourced from the external
	// subscription system. This server treats it as read-only state.
	IsSubscriber bool `json:"is_subscriber"`
}

// Name returns the best available name to display for the user.
// Prefers DisplayName, falls back to the email address.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Session represents an active user session with refresh token.
// Each device gets its own session.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	DeviceID         string    `json:"device_id,omitempty"` // Client-generated device identity
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"` // Stored hashed, filter from API responses
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IsExpired checks if the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
