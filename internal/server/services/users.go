// Package services contains server-side business logic. UserService handles
// registration, login, profile lookup, avatars and password changes.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/blobstore"
	"github.com/dmitrijs2005/elnafo/internal/server/config"
	"github.com/dmitrijs2005/elnafo/internal/server/models"
	"github.com/dmitrijs2005/elnafo/internal/server/repositories/users"
)

// dummyPassword is hashed once at startup; logins for unknown users verify
// against it so both paths cost one Argon2 run.
const dummyPassword = "elnafo-timing-equaliser"

var allowedAvatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Login    string
	Password string
	Email    string
	Name     string
}

// LoginInput identifies the account by login or, when login is empty, by email.
type LoginInput struct {
	Login    string
	Email    string
	Password string
}

type UserService struct {
	users  users.Repository
	blobs  blobstore.Store
	hasher *auth.Hasher
	codec  *auth.Codec
	sem    *semaphore.Weighted
	logger logging.Logger

	avatarMaxBytes int64
	dummyHash      string
}

// NewUserService wires the service. Hashing cost and concurrency come from cfg.
func NewUserService(repo users.Repository, blobs blobstore.Store, codec *auth.Codec, cfg *config.Config, logger logging.Logger) (*UserService, error) {
	hasher := auth.NewHasher(auth.HashParams{
		MemoryKiB:   cfg.HashMemoryKiB,
		Iterations:  cfg.HashIterations,
		Parallelism: cfg.HashParallelism,
	})
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	return &UserService{
		users:          repo,
		blobs:          blobs,
		hasher:         hasher,
		codec:          codec,
		sem:            semaphore.NewWeighted(cfg.HashConcurrency),
		logger:         logger.With("module", "user_service"),
		avatarMaxBytes: cfg.AvatarMaxBytes,
		dummyHash:      dummy,
	}, nil
}

// TokenLifetime is the validity of tokens issued by Login.
func (s *UserService) TokenLifetime() time.Duration {
	return s.codec.Lifetime()
}

// Register creates an account. The login/email check is an early exit;
// the unique constraints decide races, with the same ErrExists result.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Login = strings.TrimSpace(in.Login)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Login == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: login, email and password are required", common.ErrInvalidInput)
	}
	if in.Name == "" {
		in.Name = in.Login
	}

	existing, err := s.users.Find(ctx, users.ByLoginOrEmail(in.Login, in.Email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		field := "email"
		if existing.Login == in.Login {
			field = "login"
		}
		return nil, &users.ConflictError{Field: field}
	}

	hashed, err := s.hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, &models.NewUser{
		ID:             uuid.New(),
		Login:          in.Login,
		Name:           in.Name,
		Email:          in.Email,
		HashedPassword: hashed,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "id", u.ID, "login", u.Login, "admin", u.IsAdmin)
	return u, nil
}

// Login checks credentials and issues a session token. Unknown accounts
// and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	var q users.Query
	switch {
	case in.Login != "":
		q = users.ByLogin(in.Login)
	case in.Email != "":
		q = users.ByEmail(in.Email)
	default:
		return nil, "", common.ErrMissingCredentials
	}

	user, err := s.users.Find(ctx, q)
	if err != nil {
		return nil, "", err
	}

	stored := s.dummyHash
	if user != nil {
		stored = user.HashedPassword
	}
	ok, err := s.verify(ctx, in.Password, stored)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !ok {
		return nil, "", common.ErrInvalidCredentials
	}

	token, err := s.codec.Create(user.ID.String())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Remove deletes the account with id and its avatar blob.
func (s *UserService) Remove(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.Find(ctx, users.ByID(id))
	if err != nil {
		return err
	}
	if user == nil {
		return common.ErrNotFound
	}

	if err := s.users.Remove(ctx, id); err != nil {
		return err
	}
	s.dropBlob(ctx, user.Avatar)

	s.logger.Info(ctx, "user removed", "id", id, "login", user.Login)
	return nil
}

// Profile looks up a user by login.
func (s *UserService) Profile(ctx context.Context, login string) (*models.User, error) {
	user, err := s.users.Find(ctx, users.ByLogin(login))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, common.ErrNotFound
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// SetAvatar stores data as the new avatar of user and drops the old blob.
// Only PNG, JPEG, GIF and WebP images up to the configured size are accepted.
func (s *UserService) SetAvatar(ctx context.Context, user *models.User, data []byte) (*models.User, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", common.ErrReadContent)
	}
	if int64(len(data)) > s.avatarMaxBytes {
		return nil, common.ErrContentTooLarge
	}
	contentType := http.DetectContentType(data)
	if !allowedAvatarTypes[contentType] {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedMedia, contentType)
	}

	key := blobstore.NewKey()
	if err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}

	previous, err := s.users.UpdateAvatar(ctx, user.ID, key)
	if err != nil {
		s.dropBlob(ctx, key)
		return nil, err
	}
	s.dropBlob(ctx, previous)

	updated := *user
	updated.Avatar = key
	return &updated, nil
}

// ClearAvatar removes the avatar of user, if any.
func (s *UserService) ClearAvatar(ctx context.Context, user *models.User) (*models.User, error) {
	previous, err := s.users.UpdateAvatar(ctx, user.ID, "")
	if err != nil {
		return nil, err
	}
	s.dropBlob(ctx, previous)

	updated := *user
	updated.Avatar = ""
	return &updated, nil
}

// Avatar returns the stored image for key.
func (s *UserService) Avatar(ctx context.Context, key string) ([]byte, error) {
	if !blobstore.ValidKey(key) {
		return nil, common.ErrNotFound
	}
	return s.blobs.Get(ctx, key)
}

// ChangePassword replaces the password of user after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, user *models.User, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", common.ErrInvalidInput)
	}

	ok, err := s.verify(ctx, oldPassword, user.HashedPassword)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInvalidCredentials
	}

	hashed, err := s.hash(ctx, newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "id", user.ID)
	return nil
}

// hash and verify bound concurrent Argon2 work by HashConcurrency.
func (s *UserService) hash(ctx context.Context, password string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	return s.hasher.Hash(password)
}

func (s *UserService) verify(ctx context.Context, password, encoded string) (bool, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.sem.Release(1)

	return s.hasher.Verify(password, encoded), nil
}

func (s *UserService) dropBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrNotFound) {
		s.logger.Warn(ctx, "failed to delete avatar blob", "key", key, "error", err)
	}
}
