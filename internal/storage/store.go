// Package storage persists the session (token and user profile) for the
// lifetime of a browser or terminal session.
//
// Token and user are written as two independent entries with the same expiry
// and are always cleared together. Implementations never return errors:
// failed writes are logged and dropped, failed reads report absence.
package storage

import (
	"time"

	"github.com/calendrier-dev/calendrier/internal/models"
)

// TTL is how long both session entries live
const TTL = 7 * 24 * time.Hour

const (
	// TokenKey names the token entry
	TokenKey = "auth-token"
	// UserKey names the user entry
	UserKey = "auth-user"
)

// Store defines the session storage operations
type Store interface {
	SetToken(token string)
	GetToken() (string, bool)
	SetUser(user models.User)
	GetUser() (*models.User, bool)
	// RemoveToken clears both the token and the user entries
	RemoveToken()
}
