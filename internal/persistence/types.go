package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

// ErrNoHistory is returned when a book has neither a snapshot nor events
var ErrNoHistory = errors.New("no history for book")

// EventRecord represents a persisted event record
type EventRecord struct {
	Version int             `json:"version"`
	BookID  matching.BookID `json:"book_id"`
	EventID cqrs.EventID    `json:"event_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Snapshot represents a point-in-time copy of one book
type Snapshot struct {
	Version     int             `json:"version"`
	BookID      matching.BookID `json:"book_id"`
	LastEventID cqrs.EventID    `json:"last_event_id"`
	CapturedAt  time.Time       `json:"captured_at"`
	Books       matching.Books  `json:"books"`
}

// SnapshotMetadata represents snapshot metadata
type SnapshotMetadata struct {
	BookID      matching.BookID `json:"book_id"`
	LastEventID cqrs.EventID    `json:"last_event_id"`
	CapturedAt  time.Time       `json:"captured_at"`
}

// EventStore defines the interface for event log persistence
type EventStore interface {
	// Append writes the events of one cascade atomically
	Append(ctx context.Context, bookID matching.BookID, events []matching.Event) error

	// ReadFrom reads events from a specific event id (inclusive)
	ReadFrom(ctx context.Context, bookID matching.BookID, from cqrs.EventID) ([]matching.Event, error)

	// LastEventID returns the last journaled event id; false when the book has no events
	LastEventID(ctx context.Context, bookID matching.BookID) (cqrs.EventID, bool, error)

	// ListBooks lists all books that have an event log
	ListBooks(ctx context.Context) ([]matching.BookID, error)
}

// SnapshotStore defines the interface for snapshot persistence
type SnapshotStore interface {
	// SaveSnapshot saves a snapshot of the books
	SaveSnapshot(ctx context.Context, books matching.Books) error

	// LoadSnapshot loads the latest snapshot; nil when none exists
	LoadSnapshot(ctx context.Context, bookID matching.BookID) (*Snapshot, error)

	// ListSnapshots lists snapshots of a book, latest first
	ListSnapshots(ctx context.Context, bookID matching.BookID) ([]SnapshotMetadata, error)
}
