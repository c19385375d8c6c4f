package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

// SaveSnapshot saves a snapshot keyed by the last event id of the books
func (s *Store) SaveSnapshot(ctx context.Context, books matching.Books) error {
	if !books.IsCreated() {
		return fmt.Errorf("cannot snapshot %s before creation", books.BookID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(Snapshot{
		Version:     recordVersion,
		BookID:      books.BookID,
		LastEventID: books.LastEventID(),
		CapturedAt:  time.Now().UTC(),
		Books:       books,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.db.Set(snapshotKey(books.BookID, books.LastEventID()), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot loads the latest snapshot of a book; nil when none exists
func (s *Store) LoadSnapshot(ctx context.Context, bookID matching.BookID) (*Snapshot, error) {
	prefix := snapshotPrefix(bookID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	if !iter.Last() {
		return nil, iter.Error()
	}

	var snapshot Snapshot
	if err := json.Unmarshal(iter.Value(), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", iter.Key(), err)
	}
	if snapshot.Books.LastEventID() != snapshot.LastEventID {
		return nil, fmt.Errorf("snapshot %s holds books at event %d", iter.Key(), snapshot.Books.LastEventID())
	}
	return &snapshot, nil
}

// ListSnapshots lists the snapshots of a book, latest first
func (s *Store) ListSnapshots(ctx context.Context, bookID matching.BookID) ([]SnapshotMetadata, error) {
	prefix := snapshotPrefix(bookID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []SnapshotMetadata
	for iter.Last(); iter.Valid(); iter.Prev() {
		var meta SnapshotMetadata
		if err := json.Unmarshal(iter.Value(), &meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", iter.Key(), err)
		}
		out = append(out, meta)
	}
	return out, iter.Error()
}

func snapshotPrefix(bookID matching.BookID) []byte {
	return []byte("snap/" + string(bookID) + "/")
}

func snapshotKey(bookID matching.BookID, id cqrs.EventID) []byte {
	return []byte(fmt.Sprintf("snap/%s/%020d", bookID, id))
}
