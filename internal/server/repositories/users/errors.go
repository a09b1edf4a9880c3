package users

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

// ConflictError reports a uniqueness violation on Field ("login" or "email").
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "user already exists"
	}
	return "user with this " + e.Field + " already exists"
}

func (e *ConflictError) Unwrap() error { return common.ErrExists }

const pgUniqueViolation = "23505"

// classifyUniqueViolation maps a postgres unique violation to the
// conflicting column.
func classifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return "", false
	}

	c := strings.ToLower(pgErr.ConstraintName)
	switch {
	case strings.Contains(c, "login"):
		return "login", true
	case strings.Contains(c, "email"):
		return "email", true
	default:
		return "", true
	}
}
