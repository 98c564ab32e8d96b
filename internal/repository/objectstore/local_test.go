package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	err := store.Put(ctx, "conversations/abc.json", []byte(`[{"role":"user"}]`))
	require.NoError(t, err)

	data, err := store.Get(ctx, "conversations/abc.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"role":"user"}]`, string(data))

	exists, err := store.Exists(ctx, "conversations/abc.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalStore_NotFound(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	_, err := store.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := store.Exists(ctx, "missing.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStore_DeleteAbsentKey(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	assert.NoError(t, store.Delete(ctx, "never-written.json"))

	require.NoError(t, store.Put(ctx, "doc.txt", []byte("hello")))
	require.NoError(t, store.Delete(ctx, "doc.txt"))

	_, err := store.Get(ctx, "doc.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_Label(t *testing.T) {
	assert.Equal(t, "local", NewLocalStore(t.TempDir()).Label())
}
