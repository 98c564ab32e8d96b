package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profile-twin/chatbot/internal/domain"
	"github.com/profile-twin/chatbot/internal/repository/objectstore"
)

func TestStore_RoundTrip(t *testing.T) {
	store := NewStore(objectstore.NewLocalStore(t.TempDir()))
	ctx := context.Background()

	turns := []domain.Turn{
		{Role: domain.RoleUser, Content: "What are your skills?", Timestamp: time.Now().UTC().Truncate(time.Second)},
		{Role: domain.RoleAssistant, Content: "Go, mostly.", Timestamp: time.Now().UTC().Truncate(time.Second)},
	}

	store.Save(ctx, "session-1", turns)
	got := store.Load(ctx, "session-1")

	require.Len(t, got, 2)
	assert.Equal(t, turns[0].Content, got[0].Content)
	assert.Equal(t, domain.RoleAssistant, got[1].Role)
}

func TestStore_LoadMissingReturnsEmpty(t *testing.T) {
	store := NewStore(objectstore.NewLocalStore(t.TempDir()))

	got := store.Load(context.Background(), "never-seen")
	assert.Empty(t, got)
}

func TestStore_SaveTruncatesToNewest100(t *testing.T) {
	store := NewStore(objectstore.NewLocalStore(t.TempDir()))
	ctx := context.Background()

	turns := make([]domain.Turn, 0, 130)
	for i := 0; i < 130; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		turns = append(turns, domain.Turn{Role: role, Content: fmt.Sprintf("turn %d", i), Timestamp: time.Now()})
	}

	store.Save(ctx, "long-session", turns)
	got := store.Load(ctx, "long-session")

	require.Len(t, got, domain.MaxStoredTurns)
	assert.Equal(t, "turn 30", got[0].Content)
	assert.Equal(t, "turn 129", got[len(got)-1].Content)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(objectstore.NewLocalStore(t.TempDir()))
	ctx := context.Background()

	store.Save(ctx, "s", []domain.Turn{{Role: domain.RoleUser, Content: "hi", Timestamp: time.Now()}})
	store.Delete(ctx, "s")

	assert.Empty(t, store.Load(ctx, "s"))

	// Deleting an absent session must not panic or error
	store.Delete(ctx, "absent")
}

func TestStore_CorruptBlobStartsFresh(t *testing.T) {
	backend := objectstore.NewLocalStore(t.TempDir())
	store := NewStore(backend)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, Key("bad"), []byte("{not json")))
	assert.Empty(t, store.Load(ctx, "bad"))
}
