// Package auth holds the credential primitives of the session layer:
// Argon2id password hashing, HS256 session tokens, token extraction from
// HTTP requests and gRPC metadata, and the request-context identity slot.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

// Claims is the token payload: subject, issued-at and expiry, in whole seconds.
type Claims struct {
	jwt.RegisteredClaims
}

// CreateToken signs a token for subject that expires after lifetime.
func CreateToken(subject string, secret []byte, lifetime time.Duration) (string, error) {
	return createToken(subject, secret, lifetime, time.Now())
}

// ValidateToken checks the signature first and the claims second.
// Failures wrap common.ErrBadSignature, common.ErrTokenExpired or
// common.ErrMalformedToken.
func ValidateToken(token string, secret []byte) (*Claims, error) {
	return validateToken(token, secret, time.Now)
}

func createToken(subject string, secret []byte, lifetime time.Duration, now time.Time) (string, error) {
	now = now.Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	})

	s, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrSigning, err)
	}
	return s, nil
}

func validateToken(token string, secret []byte, now func() time.Time) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %w", common.ErrBadSignature, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", common.ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %w", common.ErrMalformedToken, err)
		}
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrMalformedToken
	}
	return claims, nil
}

// Codec binds the signing secret and token lifetime from configuration.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewCodec(secret string, lifetime time.Duration) *Codec {
	return &Codec{secret: []byte(secret), lifetime: lifetime, now: time.Now}
}

// Create issues a token for subject valid for the configured lifetime.
func (c *Codec) Create(subject string) (string, error) {
	return createToken(subject, c.secret, c.lifetime, c.now())
}

func (c *Codec) Validate(token string) (*Claims, error) {
	return validateToken(token, c.secret, c.now)
}

func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}
