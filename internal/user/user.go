// Package user contains the user identity record.
package user

import (
	"strings"
	"time"
)

// AnonymousName is the display-name fallback for users without one.
const AnonymousName = "Anonymous"

// User mirrors the identity fields kept in the document store. The
// password hash lives next to it in storage but never leaves the store
// boundary.
type User struct {
	ID          string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	LastLogin   time.Time `json:"lastLogin"`
}

// Name returns the display name, falling back to AnonymousName.
func (u *User) Name() string {
	if strings.TrimSpace(u.DisplayName) == "" {
		return AnonymousName
	}
	return u.DisplayName
}
