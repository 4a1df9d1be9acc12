package session

import (
	"time"

	id "compass/pkg/domain"
)

// Session is a server-side login session. Access tokens are only honored
// while their session exists, so deleting sessions is how the platform cuts
// access immediately, token expiry notwithstanding.
type Session struct {
	ID         id.SessionID `json:"id"`
	UserID     id.UserID    `json:"user_id"`
	DeviceName string       `json:"device_name"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// TTL is the remaining lifetime relative to now. Zero or negative means
// the session is already expired.
func (s *Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}
