package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

func TestStore_AppendAndRead(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	s := runSession(t, "ABC-2024")
	journal(t, store, s)

	events, err := store.ReadFrom(ctx, s.bookID, 0)
	require.NoError(t, err)
	assert.Equal(t, s.events(), events)

	tail, err := store.ReadFrom(ctx, s.bookID, 3)
	require.NoError(t, err)
	require.NotEmpty(t, tail)
	assert.Equal(t, cqrs.EventID(3), tail[0].EventID())
	assert.Len(t, tail, len(events)-3)

	last, ok, err := store.LastEventID(ctx, s.bookID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, s.final().LastEventID(), last)
}

func TestStore_UnknownBook(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	events, err := store.ReadFrom(ctx, "NOPE", 0)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, ok, err := store.LastEventID(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestStore_BookPrefixes tests that a book id which prefixes another keeps its own journal
func TestStore_BookPrefixes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	short := runSession(t, "AB")
	long := runSession(t, "AB-2")
	journal(t, store, short)
	journal(t, store, long)

	events, err := store.ReadFrom(ctx, "AB", 0)
	require.NoError(t, err)
	assert.Len(t, events, len(short.events()))

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []matching.BookID{"AB", "AB-2"}, books)
}

func TestStore_AppendRejectsDuplicate(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	s := runSession(t, "ABC-2024")
	journal(t, store, s)

	err := store.Append(ctx, s.bookID, s.batches[1])
	assert.Error(t, err)

	events, err := store.ReadFrom(ctx, s.bookID, 0)
	require.NoError(t, err)
	assert.Len(t, events, len(s.events()))
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := runSession(t, "ABC-2024")

	store, err := Open(dir)
	require.NoError(t, err)
	journal(t, store, s)
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	events, err := store.ReadFrom(ctx, s.bookID, 0)
	require.NoError(t, err)
	assert.Equal(t, s.events(), events)
}

func TestCodec_RejectsUnknownRecords(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"version":1,"type":"Nope","event_id":1,"payload":{}}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"version":2,"type":"OrderPlaced","event_id":1,"payload":{}}`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"version":1,"type":"OrderPlaced","event_id":1,"payload":{"event_id":2}}`))
	assert.Error(t, err)
}
