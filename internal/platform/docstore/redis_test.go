package docstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "hisabtest"), mr
}

func TestRedisStorePutFetchDelete(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Suppliers, "s1", []byte(`{"id":"s1","name":"Al Noor Trading"}`)))
	require.NoError(t, store.Put(ctx, Products, "p1", []byte(`{"id":"p1","name":"Flour 25kg"}`)))

	// Documents land under the configured prefix.
	raw := mr.HGet("hisabtest:suppliers", "s1")
	require.JSONEq(t, `{"id":"s1","name":"Al Noor Trading"}`, raw)

	all, err := store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all[Suppliers], 1)
	require.Len(t, all[Products], 1)
	require.Empty(t, all[Payments])

	require.NoError(t, store.Delete(ctx, Suppliers, "s1"))
	all, err = store.FetchAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all[Suppliers])
}

func TestRedisStoreDeleteMissingIsNoop(t *testing.T) {
	store, _ := newTestRedisStore(t)
	require.NoError(t, store.Delete(context.Background(), Payments, "nope"))
}

func TestRedisStoreBatchUpdate(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.BatchUpdate(ctx, Products, map[string][]byte{
		"p1": []byte(`{"id":"p1","quantityInStock":10}`),
		"p2": []byte(`{"id":"p2","quantityInStock":3}`),
	}))

	require.JSONEq(t, `{"id":"p1","quantityInStock":10}`, mr.HGet("hisabtest:products", "p1"))
	require.JSONEq(t, `{"id":"p2","quantityInStock":3}`, mr.HGet("hisabtest:products", "p2"))

	// Empty batches never touch the wire.
	require.NoError(t, store.BatchUpdate(ctx, Products, nil))
}

func TestRedisStoreFetchAllCollections(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for _, c := range Collections() {
		require.NoError(t, store.Put(ctx, c, "x1", []byte(`{"id":"x1"}`)))
	}

	all, err := store.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for _, c := range Collections() {
		require.Len(t, all[c], 1, "collection %s", c)
	}
}

func TestRedisStoreFetchAllConnectionError(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, err := store.FetchAll(context.Background())
	require.Error(t, err)
}

func TestRedisStoreDefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "")
	require.NoError(t, store.Put(context.Background(), Suppliers, "s1", []byte(`{}`)))
	require.True(t, mr.Exists("hisab:suppliers"))
}
