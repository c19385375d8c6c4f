package matching

import (
	"encoding/json"
	"fmt"
	"slices"
)

// LimitBook holds the resting entries of one side in matching priority order.
// It is a value: Add, Replace and Remove return a new book and leave the
// receiver untouched.
type LimitBook struct {
	side    Side
	entries []BookEntry
}

// NewLimitBook creates an empty book for side
func NewLimitBook(side Side) LimitBook {
	return LimitBook{side: side}
}

// Side returns the side of the book
func (b LimitBook) Side() Side {
	return b.side
}

// Len returns the number of resting entries
func (b LimitBook) Len() int {
	return len(b.entries)
}

// Entries returns the entries from best to worst priority
func (b LimitBook) Entries() []BookEntry {
	return slices.Clone(b.entries)
}

// Best returns the highest priority entry
func (b LimitBook) Best() (BookEntry, bool) {
	if len(b.entries) == 0 {
		return BookEntry{}, false
	}
	return b.entries[0], true
}

// Get returns the entry stored under key
func (b LimitBook) Get(key BookEntryKey) (BookEntry, bool) {
	i, found := b.search(key)
	if !found {
		return BookEntry{}, false
	}
	return b.entries[i], true
}

// Find returns the first entry, in priority order, accepted by match
func (b LimitBook) Find(match func(BookEntry) bool) (BookEntry, bool) {
	for _, e := range b.entries {
		if match(e) {
			return e, true
		}
	}
	return BookEntry{}, false
}

// Filter returns the entries, in priority order, accepted by match
func (b LimitBook) Filter(match func(BookEntry) bool) []BookEntry {
	var out []BookEntry
	for _, e := range b.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Add inserts an entry at its priority position
func (b LimitBook) Add(entry BookEntry) (LimitBook, error) {
	if entry.Side != b.side {
		return b, fmt.Errorf("%s entry %s added to %s book", entry.Side, entry.RequestID, b.side)
	}
	i, found := b.search(entry.Key)
	if found {
		return b, fmt.Errorf("duplicate key for entry %s at event %d", entry.RequestID, entry.Key.EventID)
	}
	return LimitBook{side: b.side, entries: slices.Insert(slices.Clone(b.entries), i, entry)}, nil
}

// Replace swaps the entry stored under entry.Key
func (b LimitBook) Replace(entry BookEntry) (LimitBook, error) {
	i, found := b.search(entry.Key)
	if !found {
		return b, fmt.Errorf("no entry at event %d to replace", entry.Key.EventID)
	}
	entries := slices.Clone(b.entries)
	entries[i] = entry
	return LimitBook{side: b.side, entries: entries}, nil
}

// Remove deletes the entry stored under key
func (b LimitBook) Remove(key BookEntryKey) (LimitBook, bool) {
	i, found := b.search(key)
	if !found {
		return b, false
	}
	entries := slices.Delete(slices.Clone(b.entries), i, i+1)
	if len(entries) == 0 {
		entries = nil
	}
	return LimitBook{side: b.side, entries: entries}, true
}

func (b LimitBook) search(key BookEntryKey) (int, bool) {
	priority := PriorityFor(b.side)
	return slices.BinarySearchFunc(b.entries, key, func(e BookEntry, k BookEntryKey) int {
		return priority(e.Key, k)
	})
}

type limitBookJSON struct {
	Side    Side        `json:"side"`
	Entries []BookEntry `json:"entries"`
}

func (b LimitBook) MarshalJSON() ([]byte, error) {
	entries := b.entries
	if entries == nil {
		entries = []BookEntry{}
	}
	return json.Marshal(limitBookJSON{Side: b.side, Entries: entries})
}

// UnmarshalJSON restores a book and re-sorts it, so snapshots written in any
// order come back in priority order.
func (b *LimitBook) UnmarshalJSON(data []byte) error {
	var raw limitBookJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	book := NewLimitBook(raw.Side)
	for _, e := range raw.Entries {
		var err error
		if book, err = book.Add(e); err != nil {
			return err
		}
	}
	*b = book
	return nil
}
