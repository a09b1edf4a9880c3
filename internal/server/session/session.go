// Package session resolves a presented token into a stored identity. The
// HTTP middleware and the gRPC interceptors share this pipeline and differ
// only in what they do with a non-authorized outcome.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/models"
	"github.com/dmitrijs2005/elnafo/internal/server/repositories/users"
)

// Outcome is the terminal state of a resolution.
type Outcome int

const (
	MissingToken Outcome = iota
	InvalidToken
	MissingUser
	Authorized
	// Failed means the identity store could not answer.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case MissingToken:
		return "missing_token"
	case InvalidToken:
		return "invalid_token"
	case MissingUser:
		return "missing_user"
	case Authorized:
		return "authorized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Resolution is the result of one pass. User is set only when Authorized;
// Err carries the cause for InvalidToken and Failed.
type Resolution struct {
	Outcome Outcome
	User    *models.User
	Err     error
}

// Error maps a non-authorized outcome to its credential sentinel.
func (r Resolution) Error() error {
	switch r.Outcome {
	case Authorized:
		return nil
	case MissingToken:
		return common.ErrMissingToken
	case InvalidToken:
		return fmt.Errorf("%w: %w", common.ErrInvalidToken, r.Err)
	case MissingUser:
		return common.ErrMissingUser
	default:
		return r.Err
	}
}

// Policy selects how a transport reacts to a non-authorized outcome.
type Policy int

const (
	// Enforce rejects the request.
	Enforce Policy = iota
	// Optional continues anonymously.
	Optional
)

func (p Policy) String() string {
	if p == Optional {
		return "optional"
	}
	return "enforcing"
}

// UserFinder is the identity store lookup the pipeline depends on.
type UserFinder interface {
	Find(ctx context.Context, q users.Query) (*models.User, error)
}

// Authenticator runs extract → validate → lookup.
type Authenticator struct {
	codec *auth.Codec
	users UserFinder
}

func NewAuthenticator(codec *auth.Codec, users UserFinder) *Authenticator {
	return &Authenticator{codec: codec, users: users}
}

// Resolve validates token (present reports whether one was supplied at
// all) and loads the identity it names. An empty token counts as invalid.
func (a *Authenticator) Resolve(ctx context.Context, token string, present bool) Resolution {
	if !present {
		return Resolution{Outcome: MissingToken}
	}

	claims, err := a.codec.Validate(token)
	if err != nil {
		return Resolution{Outcome: InvalidToken, Err: err}
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Resolution{Outcome: InvalidToken, Err: fmt.Errorf("%w: subject: %w", common.ErrMalformedToken, err)}
	}

	user, err := a.users.Find(ctx, users.ByID(id))
	if err != nil {
		return Resolution{Outcome: Failed, Err: err}
	}
	if user == nil {
		return Resolution{Outcome: MissingUser}
	}
	return Resolution{Outcome: Authorized, User: user}
}
