package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Set(ctx, "a", []byte(`{"x":1}`)))
	val, found, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte(`{"x":1}`), val)

	require.NoError(t, store.Set(ctx, "a", []byte("overwritten")))
	val, found, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("overwritten"), val)

	require.NoError(t, store.Delete(ctx, "a"))
	_, found, err = store.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)

	// deleting a missing key is a no-op
	require.NoError(t, store.Delete(ctx, "a"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	testStoreContract(t, store)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messenger.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	testStoreContract(t, store)
}

func TestFileStoreReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "messenger.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "messenger:ttsMuted", []byte("true")))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	val, found, err := reopened.Get(ctx, "messenger:ttsMuted")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "true", string(val))
}

func TestMemoryStoreCopySemantics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	src := []byte("payload")
	require.NoError(t, store.Set(ctx, "k", src))
	src[0] = 'X'

	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "payload", string(val))

	val[0] = 'Y'
	again, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "payload", string(again))
}

func TestManagerUnsupportedType(t *testing.T) {
	_, err := NewManager(Config{Type: "bolt"}, logrus.New())
	require.Error(t, err)
}

func TestManagerMemory(t *testing.T) {
	m, err := NewManager(Config{Type: "memory"}, logrus.New())
	require.NoError(t, err)
	testStoreContract(t, m)
}
