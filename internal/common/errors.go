// Package common defines sentinel errors and shared constants used across
// the Elnafo server and CLI. Callers should use errors.Is to match these
// values; lower layers wrap them with %w to add context.
package common

import "errors"

var (
	// Credential and session errors.
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingUser        = errors.New("missing user")

	// Storage gateway errors.
	ErrConnectionExhausted = errors.New("connection unavailable")
	ErrExecutionFailed     = errors.New("execution failed")
	ErrQueryFailed         = errors.New("query failed")
	ErrExists              = errors.New("already exists")
	ErrNotFound            = errors.New("not found")

	// Hashing.
	ErrHashFailure = errors.New("hash failure")

	// Token codec errors.
	ErrSigning        = errors.New("token signing failed")
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature mismatch")
	ErrMalformedToken = errors.New("malformed token")

	// Request content errors.
	ErrInvalidInput     = errors.New("invalid input")
	ErrReadContent      = errors.New("failed to read content")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrContentTooLarge  = errors.New("content too large")

	// Generic service error; the cause is logged, never returned to clients.
	ErrInternal = errors.New("internal error")
)
