// Package models contains the server-side domain types.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AvatarPathPrefix is where avatar blobs are served from.
const AvatarPathPrefix = "/avatars/"

// User is a stored identity. HashedPassword never leaves the server; use
// Public to build outbound representations.
type User struct {
	ID             uuid.UUID
	Login          string
	Name           string
	Email          string
	HashedPassword string `json:"-"`
	IsAdmin        bool
	Avatar         string
	CreatedAt      time.Time
}

// NewUser carries the fields a registration supplies. ID, IsAdmin and
// CreatedAt are assigned on insert.
type NewUser struct {
	ID             uuid.UUID
	Login          string
	Name           string
	Email          string
	HashedPassword string
}

// PublicUser is the JSON shape of a user returned to clients.
type PublicUser struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// Public converts u for output. Email is only included when withEmail is set.
func (u *User) Public(withEmail bool) PublicUser {
	p := PublicUser{
		ID:        u.ID.String(),
		Login:     u.Login,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
	if withEmail {
		p.Email = u.Email
	}
	if u.Avatar != "" {
		p.Avatar = AvatarPathPrefix + u.Avatar
	}
	return p
}

// CanSeeEmailOf reports whether viewer may see target's email address:
// the owner and administrators can, anonymous viewers cannot.
func CanSeeEmailOf(viewer, target *User) bool {
	if viewer == nil || target == nil {
		return false
	}
	return viewer.IsAdmin || viewer.ID == target.ID
}
