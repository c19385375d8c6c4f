package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-core/internal/matching"
)

func TestStore_SaveAndLoadSnapshot(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	s := runSession(t, "ABC-2024")

	none, err := store.LoadSnapshot(ctx, s.bookID)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, store.SaveSnapshot(ctx, s.states[2]))
	require.NoError(t, store.SaveSnapshot(ctx, s.states[3]))

	snapshot, err := store.LoadSnapshot(ctx, s.bookID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, s.states[3].LastEventID(), snapshot.LastEventID)
	assert.Equal(t, s.states[3], snapshot.Books)

	list, err := store.ListSnapshots(ctx, s.bookID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, s.states[3].LastEventID(), list[0].LastEventID)
	assert.Equal(t, s.states[2].LastEventID(), list[1].LastEventID)
}

func TestStore_SnapshotRequiresCreatedBooks(t *testing.T) {
	store := openStore(t)
	err := store.SaveSnapshot(context.Background(), matching.NewBooks("ABC-2024"))
	assert.Error(t, err)
}

func TestStore_InMemory(t *testing.T) {
	store, err := OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	s := runSession(t, "ABC-2024")
	journal(t, store, s)
	require.NoError(t, store.SaveSnapshot(ctx, s.final()))

	snapshot, err := store.LoadSnapshot(ctx, s.bookID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, s.final(), snapshot.Books)
}
