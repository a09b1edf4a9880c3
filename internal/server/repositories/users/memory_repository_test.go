package users

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/server/models"
)

func TestMemoryRepository_FirstUserIsAdmin(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.Create(ctx, &models.NewUser{Login: "alice", Email: "a@x"})
	require.NoError(t, err)
	second, err := repo.Create(ctx, &models.NewUser{Login: "bob", Email: "b@x"})
	require.NoError(t, err)

	assert.True(t, first.IsAdmin)
	assert.False(t, second.IsAdmin)
}

func TestMemoryRepository_Conflicts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	_, err := repo.Create(ctx, &models.NewUser{Login: "alice", Email: "a@x"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.NewUser{Login: "alice", Email: "other@x"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "login", conflict.Field)

	_, err = repo.Create(ctx, &models.NewUser{Login: "other", Email: "a@x"})
	assert.ErrorIs(t, err, common.ErrExists)
}

func TestMemoryRepository_ConcurrentCreateSameLogin(t *testing.T) {
	repo := NewMemoryRepository()

	var wg sync.WaitGroup
	results := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(context.Background(), &models.NewUser{Login: "same", Email: uuid.NewString()})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, common.ErrExists)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestMemoryRepository_FindAndMutate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	u, err := repo.Create(ctx, &models.NewUser{Login: "alice", Email: "a@x", HashedPassword: "h1"})
	require.NoError(t, err)

	got, err := repo.Find(ctx, ByLoginOrEmail("nobody", "a@x"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	none, err := repo.Find(ctx, ByLogin("nobody"))
	require.NoError(t, err)
	assert.Nil(t, none)

	prev, err := repo.UpdateAvatar(ctx, u.ID, "k1")
	require.NoError(t, err)
	assert.Empty(t, prev)
	prev, err = repo.UpdateAvatar(ctx, u.ID, "k2")
	require.NoError(t, err)
	assert.Equal(t, "k1", prev)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "h2"))
	got, err = repo.Find(ctx, ByID(u.ID))
	require.NoError(t, err)
	assert.Equal(t, "h2", got.HashedPassword)
	assert.Equal(t, "k2", got.Avatar)

	require.NoError(t, repo.Remove(ctx, u.ID))
	assert.ErrorIs(t, repo.Remove(ctx, u.ID), common.ErrNotFound)
	_, err = repo.UpdateAvatar(ctx, u.ID, "k3")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Find(ctx, ByLogin("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
