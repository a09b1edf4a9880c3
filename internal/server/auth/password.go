package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/elnafo/internal/common"
)

const argon2Version = argon2.Version

// Ceilings on the work factor accepted from stored hashes and from
// configuration.
const (
	MaxHashMemoryKiB   = 1 << 20
	MaxHashIterations  = 16
	MaxHashParallelism = 64
)

// HashParams is the Argon2id work factor.
type HashParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams follows the OWASP baseline for argon2id.
var DefaultHashParams = HashParams{
	MemoryKiB:   64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// Hasher produces and checks self-describing Argon2id hashes:
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<parallelism>$<salt>$<key>
//
// Salt and key use unpadded standard base64. Verification takes its
// parameters from the encoded string, so hashes made with older settings
// keep working after the work factor changes.
type Hasher struct {
	params HashParams
	rand   func([]byte) (int, error)
}

func NewHasher(p HashParams) *Hasher {
	if p.SaltLength == 0 {
		p.SaltLength = DefaultHashParams.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = DefaultHashParams.KeyLength
	}
	return &Hasher{params: p, rand: rand.Read}
}

// Hash derives a key from password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := h.rand(salt); err != nil {
		return "", fmt.Errorf("%w: salt: %w", common.ErrHashFailure, err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Any malformed,
// unsupported or oversized hash yields false.
func (h *Hasher) Verify(password, encoded string) bool {
	params, salt, expected, ok := decodeHash(encoded)
	if !ok || !withinBounds(params) {
		return false
	}

	key := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLength)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// withinBounds refuses hashes whose cost exceeds the package ceilings, so
// a tampered row cannot stall the process. The configured work factor is
// not consulted.
func withinBounds(got HashParams) bool {
	switch {
	case got.MemoryKiB > MaxHashMemoryKiB:
		return false
	case got.Iterations > MaxHashIterations:
		return false
	case got.Parallelism > MaxHashParallelism:
		return false
	case got.SaltLength < 8 || got.SaltLength > 64:
		return false
	case got.KeyLength < 16 || got.KeyLength > 128:
		return false
	}
	return true
}

func decodeHash(encoded string) (HashParams, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return HashParams{}, nil, nil, false
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return HashParams{}, nil, nil, false
	}

	var mem, it, par uint32
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil || n != 3 {
		return HashParams{}, nil, nil, false
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return HashParams{}, nil, nil, false
	}

	b64 := base64.RawStdEncoding.Strict()
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return HashParams{}, nil, nil, false
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return HashParams{}, nil, nil, false
	}

	return HashParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}, salt, key, true
}
