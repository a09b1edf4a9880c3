package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/server/models"
)

// MemoryRepository keeps users in process memory with the same contract
// as PostgresRepository. Returned users are copies.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[uuid.UUID]models.User), now: time.Now}
}

func (r *MemoryRepository) Find(ctx context.Context, q Query) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if q.match(&u) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, nu *models.NewUser) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Login == nu.Login {
			return nil, &ConflictError{Field: "login"}
		}
		if u.Email == nu.Email {
			return nil, &ConflictError{Field: "email"}
		}
	}

	id := nu.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	u := models.User{
		ID:             id,
		Login:          nu.Login,
		Name:           nu.Name,
		Email:          nu.Email,
		HashedPassword: nu.HashedPassword,
		IsAdmin:        len(r.users) == 0,
		CreatedAt:      r.now(),
	}
	r.users[id] = u
	return &u, nil
}

func (r *MemoryRepository) Remove(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		list = append(list, &u)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].Login < list[j].Login
	})
	return list, nil
}

func (r *MemoryRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, avatar string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return "", common.ErrNotFound
	}
	previous := u.Avatar
	u.Avatar = avatar
	r.users[id] = u
	return previous, nil
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.HashedPassword = hashedPassword
	r.users[id] = u
	return nil
}
