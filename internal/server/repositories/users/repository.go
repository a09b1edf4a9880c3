// Package users is the identity store: lookup and mutation of user records.
// The PostgreSQL implementation runs every call through dbx.Execute; the
// in-memory one backs tests and local tooling.
package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/elnafo/internal/server/models"
)

// Repository is the identity store used by services and middleware.
//
// Find returns (nil, nil) when nothing matches. Create fails with a
// *ConflictError (matching common.ErrExists) when login or email is taken;
// the first user ever created becomes an administrator. Mutations of a
// missing user fail with common.ErrNotFound.
type Repository interface {
	Find(ctx context.Context, q Query) (*models.User, error)
	Create(ctx context.Context, u *models.NewUser) (*models.User, error)
	Remove(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.User, error)
	UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) (previous string, err error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
}

// Query selects a single user.
type Query struct {
	where string
	args  []any
	match func(*models.User) bool
}

func ByID(id uuid.UUID) Query {
	return Query{
		where: "id = $1",
		args:  []any{id},
		match: func(u *models.User) bool { return u.ID == id },
	}
}

func ByLogin(login string) Query {
	return Query{
		where: "login = $1",
		args:  []any{login},
		match: func(u *models.User) bool { return u.Login == login },
	}
}

func ByEmail(email string) Query {
	return Query{
		where: "email = $1",
		args:  []any{email},
		match: func(u *models.User) bool { return u.Email == email },
	}
}

// ByLoginOrEmail matches a user holding either value.
func ByLoginOrEmail(login, email string) Query {
	return Query{
		where: "login = $1 OR email = $2",
		args:  []any{login, email},
		match: func(u *models.User) bool { return u.Login == login || u.Email == email },
	}
}
