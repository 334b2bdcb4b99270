package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

func TestProvider_GetOrCreate_Idempotent(t *testing.T) {
	provider := session.NewProvider(session.NewMemoryStore())

	first, err := provider.GetOrCreate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := provider.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProvider_Clear_MintsFreshIdentifier(t *testing.T) {
	provider := session.NewProvider(session.NewMemoryStore())
	ctx := context.Background()

	first, err := provider.GetOrCreate(ctx)
	require.NoError(t, err)

	require.NoError(t, provider.Clear(ctx))

	second, err := provider.GetOrCreate(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestProvider_FileStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := session.NewFileStore(dir)
	require.NoError(t, err)

	first, err := session.NewProvider(store).GetOrCreate(ctx)
	require.NoError(t, err)

	// A new provider over a new store instance stands in for a process
	// restart.
	reopened, err := session.NewFileStore(dir)
	require.NoError(t, err)

	second, err := session.NewProvider(reopened).GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProvider_IdentifierShape(t *testing.T) {
	provider := session.NewProvider(session.NewMemoryStore())

	id, err := provider.GetOrCreate(context.Background())
	require.NoError(t, err)

	// Two concatenated base-36 fragments: lowercase alphanumeric, long
	// enough that collisions are negligible.
	assert.Regexp(t, `^[0-9a-z]{16,}$`, id)
}

func TestMemoryStore_GetMissingKey(t *testing.T) {
	store := session.NewMemoryStore()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestFileStore_DeleteIsIdempotent(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, session.SessionKey, "abc"))
	require.NoError(t, store.Delete(ctx, session.SessionKey))
	require.NoError(t, store.Delete(ctx, session.SessionKey))

	_, err = store.Get(ctx, session.SessionKey)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestNewStore_FallsBackToMemory(t *testing.T) {
	// An unreachable redis and no file dir must still produce a working
	// store.
	store := session.NewStore(session.StoreConfig{
		Redis: session.RedisConfig{Addr: "127.0.0.1:1"},
	})

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "v"))

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
