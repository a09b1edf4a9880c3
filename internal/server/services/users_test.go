package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/elnafo/internal/common"
	"github.com/dmitrijs2005/elnafo/internal/logging"
	"github.com/dmitrijs2005/elnafo/internal/server/auth"
	"github.com/dmitrijs2005/elnafo/internal/server/blobstore"
	"github.com/dmitrijs2005/elnafo/internal/server/config"
	"github.com/dmitrijs2005/elnafo/internal/server/repositories/users"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type failingBlobs struct {
	blobstore.Store
	putErr error
}

func (f *failingBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Store.Put(ctx, key, data, contentType)
}

func testConfig() *config.Config {
	return &config.Config{
		HashMemoryKiB:   64,
		HashIterations:  1,
		HashParallelism: 1,
		HashConcurrency: 2,
		AvatarMaxBytes:  1024,
	}
}

type fixture struct {
	svc   *UserService
	repo  *users.MemoryRepository
	blobs *blobstore.FSStore
	codec *auth.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	blobs, err := blobstore.NewFSStore(t.TempDir())
	require.NoError(t, err)

	repo := users.NewMemoryRepository()
	codec := auth.NewCodec("secret", time.Hour)
	svc, err := NewUserService(repo, blobs, codec, testConfig(), logging.Nop{})
	require.NoError(t, err)

	return &fixture{svc: svc, repo: repo, blobs: blobs, codec: codec}
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)
	assert.Equal(t, "alice", first.Name, "name defaults to login")
	assert.True(t, first.IsAdmin)
	assert.NotEqual(t, "pw", first.HashedPassword)

	second, err := f.svc.Register(ctx, RegisterInput{Login: "bob", Password: "pw", Email: "b@x.io", Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Bob", second.Name)
	assert.False(t, second.IsAdmin)
}

func TestRegister_Conflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"login", RegisterInput{Login: "alice", Password: "pw", Email: "other@x.io"}, "login"},
		{"email", RegisterInput{Login: "other", Password: "pw", Email: "a@x.io"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tt.in)
			require.ErrorIs(t, err, common.ErrExists)

			var conflict *users.ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, tt.field, conflict.Field)
		})
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)

	for _, in := range []RegisterInput{
		{Password: "pw", Email: "a@x.io"},
		{Login: "alice", Email: "a@x.io"},
		{Login: "alice", Password: "pw"},
		{Login: "   ", Password: "pw", Email: "a@x.io"},
	} {
		_, err := f.svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)

	t.Run("by login", func(t *testing.T) {
		u, token, err := f.svc.Login(ctx, LoginInput{Login: "alice", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, registered.ID, u.ID)

		claims, err := f.codec.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID.String(), claims.Subject)
	})

	t.Run("by email", func(t *testing.T) {
		u, _, err := f.svc.Login(ctx, LoginInput{Email: "a@x.io", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, registered.ID, u.ID)
	})

	t.Run("login takes precedence over email", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Login: "nobody", Email: "a@x.io", Password: "pw"})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Login: "alice", Password: "nope"})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Login: "mallory", Password: "pw"})
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("no identifier", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, LoginInput{Password: "pw"})
		assert.ErrorIs(t, err, common.ErrMissingCredentials)
	})
}

func TestLogin_CancelledWhileWaitingForHasher(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.svc.sem.TryAcquire(2))
	defer f.svc.sem.Release(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.svc.Login(ctx, LoginInput{Login: "alice", Password: "pw"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)
	u, err = f.svc.SetAvatar(ctx, u, pngHeader)
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, u.ID))

	_, err = f.svc.Profile(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = f.blobs.Get(ctx, u.Avatar)
	assert.ErrorIs(t, err, common.ErrNotFound, "avatar blob is dropped with the account")

	assert.ErrorIs(t, f.svc.Remove(ctx, uuid.New()), common.ErrNotFound)
}

func TestProfileAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, login := range []string{"alice", "bob"} {
		_, err := f.svc.Register(ctx, RegisterInput{Login: login, Password: "pw", Email: login + "@x.io"})
		require.NoError(t, err)
	}

	u, err := f.svc.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@x.io", u.Email)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)

	first, err := f.svc.SetAvatar(ctx, u, pngHeader)
	require.NoError(t, err)
	require.NotEmpty(t, first.Avatar)

	data, err := f.svc.Avatar(ctx, first.Avatar)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	second, err := f.svc.SetAvatar(ctx, first, pngHeader)
	require.NoError(t, err)
	assert.NotEqual(t, first.Avatar, second.Avatar)

	_, err = f.svc.Avatar(ctx, first.Avatar)
	assert.ErrorIs(t, err, common.ErrNotFound, "replaced avatar is deleted")

	stored, err := f.repo.Find(ctx, users.ByID(u.ID))
	require.NoError(t, err)
	assert.Equal(t, second.Avatar, stored.Avatar)
}

func TestSetAvatar_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, common.ErrReadContent},
		{"too large", append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...), common.ErrContentTooLarge},
		{"not an image", []byte("plain text body"), common.ErrUnsupportedMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SetAvatar(ctx, u, tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSetAvatar_StoreFailureLeavesUserUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)

	f.svc.blobs = &failingBlobs{Store: f.blobs, putErr: errors.New("disk full")}
	_, err = f.svc.SetAvatar(ctx, u, pngHeader)
	require.Error(t, err)

	stored, err := f.repo.Find(ctx, users.ByID(u.ID))
	require.NoError(t, err)
	assert.Empty(t, stored.Avatar)
}

func TestSetAvatar_UnknownUserDropsUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ghost, err := f.svc.Register(ctx, RegisterInput{Login: "ghost", Password: "pw", Email: "g@x.io"})
	require.NoError(t, err)
	require.NoError(t, f.repo.Remove(ctx, ghost.ID))

	_, err = f.svc.SetAvatar(ctx, ghost, pngHeader)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClearAvatar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "pw", Email: "a@x.io"})
	require.NoError(t, err)
	u, err = f.svc.SetAvatar(ctx, u, pngHeader)
	require.NoError(t, err)
	key := u.Avatar

	cleared, err := f.svc.ClearAvatar(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, cleared.Avatar)

	_, err = f.svc.Avatar(ctx, key)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.svc.ClearAvatar(ctx, cleared)
	assert.NoError(t, err, "clearing twice is fine")
}

func TestAvatar_InvalidKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Avatar(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, RegisterInput{Login: "alice", Password: "old", Email: "a@x.io"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, u, "wrong", "new"), common.ErrInvalidCredentials)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, u, "old", ""), common.ErrInvalidInput)

	require.NoError(t, f.svc.ChangePassword(ctx, u, "old", "new"))

	_, _, err = f.svc.Login(ctx, LoginInput{Login: "alice", Password: "old"})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, LoginInput{Login: "alice", Password: "new"})
	assert.NoError(t, err)
}

func TestTokenLifetime(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, time.Hour, f.svc.TokenLifetime())
}
