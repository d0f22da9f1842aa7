package middleware

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-home/messenger-go/pkg/kvstore"
)

func TestInstrumentedStorePassesThrough(t *testing.T) {
	store := NewInstrumentedStore(kvstore.NewMemoryStore(), NewMetrics())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Close())
}

func TestInstrumentedStoreRecordsOperations(t *testing.T) {
	store := NewInstrumentedStore(kvstore.NewMemoryStore(), NewMetrics())
	ctx := context.Background()

	setsBefore := testutil.ToFloat64(storageOperations.WithLabelValues("set", "ok"))
	getsBefore := testutil.ToFloat64(storageOperations.WithLabelValues("get", "ok"))

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	_, _, err := store.Get(ctx, "k")
	require.NoError(t, err)

	assert.Equal(t, setsBefore+1, testutil.ToFloat64(storageOperations.WithLabelValues("set", "ok")))
	assert.Equal(t, getsBefore+1, testutil.ToFloat64(storageOperations.WithLabelValues("get", "ok")))
}
