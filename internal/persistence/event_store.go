package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

// Store keeps the event journal and the snapshots of every book in one pebble
// database. Keys sort by book then event id:
//
//	evt/<book>/<event id, 20 digits>   event record
//	snap/<book>/<event id, 20 digits>  snapshot taken after that event
type Store struct {
	db *pebble.DB
}

// Open opens or creates a store in dir
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives in memory only
func OpenInMemory() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory pebble: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes the events of one cascade in a single synced batch
func (s *Store) Append(ctx context.Context, bookID matching.BookID, events []matching.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	first := eventKey(bookID, events[0].EventID())
	if _, closer, err := s.db.Get(first); err == nil {
		closer.Close()
		return fmt.Errorf("event %d of %s already journaled", events[0].EventID(), bookID)
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("failed to check journal: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	for _, evt := range events {
		data, err := EncodeEvent(bookID, evt)
		if err != nil {
			return err
		}
		if err := batch.Set(eventKey(bookID, evt.EventID()), data, nil); err != nil {
			return fmt.Errorf("failed to stage event %d: %w", evt.EventID(), err)
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// ReadFrom reads events from a specific event id (inclusive)
func (s *Store) ReadFrom(ctx context.Context, bookID matching.BookID, from cqrs.EventID) ([]matching.Event, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(bookID, from),
		UpperBound: upperBound(eventPrefix(bookID)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var events []matching.Event
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		evt, err := DecodeEvent(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize event at %s: %w", iter.Key(), err)
		}
		events = append(events, evt)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan events: %w", err)
	}
	return events, nil
}

// LastEventID returns the last journaled event id of a book
func (s *Store) LastEventID(ctx context.Context, bookID matching.BookID) (cqrs.EventID, bool, error) {
	prefix := eventPrefix(bookID)
	return s.lastID(prefix)
}

func (s *Store) lastID(prefix []byte) (cqrs.EventID, bool, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return 0, false, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, false, iter.Error()
	}
	id, err := parseID(iter.Key(), prefix)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ListBooks lists all books that have an event log
func (s *Store) ListBooks(ctx context.Context) ([]matching.BookID, error) {
	root := []byte("evt/")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: root,
		UpperBound: upperBound(root),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var books []matching.BookID
	for valid := iter.First(); valid; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rest := bytes.TrimPrefix(iter.Key(), root)
		end := bytes.IndexByte(rest, '/')
		if end < 0 {
			return nil, fmt.Errorf("malformed event key %q", iter.Key())
		}
		bookID := matching.BookID(rest[:end])
		books = append(books, bookID)
		valid = iter.SeekGE(upperBound(eventPrefix(bookID)))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to scan books: %w", err)
	}
	return books, nil
}

func eventPrefix(bookID matching.BookID) []byte {
	return []byte("evt/" + string(bookID) + "/")
}

func eventKey(bookID matching.BookID, id cqrs.EventID) []byte {
	return []byte(fmt.Sprintf("evt/%s/%020d", bookID, id))
}

func parseID(key, prefix []byte) (cqrs.EventID, error) {
	v, err := strconv.ParseInt(string(bytes.TrimPrefix(key, prefix)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed key %q: %w", key, err)
	}
	return cqrs.EventID(v), nil
}

// upperBound returns the smallest key greater than every key with prefix
func upperBound(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
