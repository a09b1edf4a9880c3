package auth

import (
	"context"

	"github.com/dmitrijs2005/elnafo/internal/server/models"
)

type ctxKey struct{}

// ContextWithUser attaches the resolved identity to ctx.
func ContextWithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the identity attached by the session middleware.
// ok is false for anonymous requests.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok && u != nil
}
