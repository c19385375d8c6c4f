package persistence

import (
	"context"
	"fmt"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

// RecoveryService rebuilds books from the latest snapshot and the journal tail
type RecoveryService struct {
	eventStore    EventStore
	snapshotStore SnapshotStore
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(eventStore EventStore, snapshotStore SnapshotStore) *RecoveryService {
	return &RecoveryService{
		eventStore:    eventStore,
		snapshotStore: snapshotStore,
	}
}

// Recover rebuilds the books of one book id.
// Returns ErrNoHistory when nothing was ever journaled for it.
func (s *RecoveryService) Recover(ctx context.Context, bookID matching.BookID) (matching.Books, error) {
	snapshot, err := s.snapshotStore.LoadSnapshot(ctx, bookID)
	if err != nil {
		return matching.Books{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	books := matching.NewBooks(bookID)
	if snapshot != nil {
		books = snapshot.Books
	}

	from := books.LastEventID().Next()
	events, err := s.eventStore.ReadFrom(ctx, bookID, from)
	if err != nil {
		return matching.Books{}, fmt.Errorf("failed to read events: %w", err)
	}
	if snapshot == nil && len(events) == 0 {
		return matching.Books{}, fmt.Errorf("%w: %s", ErrNoHistory, bookID)
	}

	if err := s.ValidateSequence(from, events); err != nil {
		return matching.Books{}, fmt.Errorf("sequence validation failed: %w", err)
	}

	recovered, err := cqrs.Replay(books, events)
	if err != nil {
		return matching.Books{}, fmt.Errorf("failed to replay %s: %w", bookID, err)
	}
	return recovered, nil
}

// RecoverAll rebuilds every book that has a journal
func (s *RecoveryService) RecoverAll(ctx context.Context) ([]matching.Books, error) {
	ids, err := s.eventStore.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	out := make([]matching.Books, 0, len(ids))
	for _, id := range ids {
		books, err := s.Recover(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, books)
	}
	return out, nil
}

// ValidateSequence checks that events start at from and have no gaps
func (s *RecoveryService) ValidateSequence(from cqrs.EventID, events []matching.Event) error {
	expected := from
	for _, evt := range events {
		if evt.EventID() != expected {
			return fmt.Errorf("sequence gap detected: expected %d, got %d", expected, evt.EventID())
		}
		expected = expected.Next()
	}
	return nil
}
