package matching

import (
	"time"

	"matching-core/internal/cqrs"
)

// EntrySizes tracks where an entry's original size went. The sum of the three
// parts never changes during the entry's lifetime.
type EntrySizes struct {
	Available int64 `json:"available"`
	Traded    int64 `json:"traded"`
	Cancelled int64 `json:"cancelled"`
}

// NewEntrySizes returns the sizes of a fresh entry of the given size
func NewEntrySizes(size int64) EntrySizes {
	return EntrySizes{Available: size}
}

// Total returns the original size
func (s EntrySizes) Total() int64 {
	return s.Available + s.Traded + s.Cancelled
}

func (s EntrySizes) validate() error {
	if s.Available < 0 || s.Traded < 0 || s.Cancelled < 0 {
		return cqrs.Violation("negative sizes %+v", s)
	}
	return nil
}

func (s EntrySizes) traded(amount int64) (EntrySizes, error) {
	if amount <= 0 || amount > s.Available {
		return s, cqrs.Violation("trade of %d against available %d", amount, s.Available)
	}
	return EntrySizes{
		Available: s.Available - amount,
		Traded:    s.Traded + amount,
		Cancelled: s.Cancelled,
	}, nil
}

func (s EntrySizes) cancelled() EntrySizes {
	return EntrySizes{
		Available: 0,
		Traded:    s.Traded,
		Cancelled: s.Cancelled + s.Available,
	}
}

// BookEntryKey orders entries within a limit book and identifies them
type BookEntryKey struct {
	Price         Price        `json:"price"`          // Absent for market entries
	WhenSubmitted time.Time    `json:"when_submitted"` // Time priority
	EventID       cqrs.EventID `json:"event_id"`       // Tie break, unique per book
}

// BookEntry is a value: every change returns a new BookEntry
type BookEntry struct {
	Key         BookEntryKey    `json:"key"`
	RequestID   ClientRequestID `json:"request_id"`
	Client      Client          `json:"client"`
	EntryType   EntryType       `json:"entry_type"`
	Side        Side            `json:"side"`
	TimeInForce TimeInForce     `json:"time_in_force"`
	IsQuote     bool            `json:"is_quote"`
	Sizes       EntrySizes      `json:"sizes"`
	Status      EntryStatus     `json:"status"`
}

// Traded moves amount from available to traded
func (e BookEntry) Traded(amount int64) (BookEntry, error) {
	sizes, err := e.Sizes.traded(amount)
	if err != nil {
		return e, err
	}
	e.Sizes = sizes
	if sizes.Available == 0 {
		e.Status = EntryStatusFilled
	} else {
		e.Status = EntryStatusPartialFill
	}
	return e, nil
}

// Cancelled moves everything still available to cancelled
func (e BookEntry) Cancelled() (BookEntry, error) {
	if e.Sizes.Available <= 0 {
		return e, cqrs.Violation("cancel of %s with nothing available", e.RequestID)
	}
	e.Sizes = e.Sizes.cancelled()
	e.Status = EntryStatusCancelled
	return e, nil
}

// WithKey replaces the key, used when the entry starts resting in a book
func (e BookEntry) WithKey(price Price, whenSubmitted time.Time, eventID cqrs.EventID) BookEntry {
	e.Key = BookEntryKey{Price: price, WhenSubmitted: whenSubmitted, EventID: eventID}
	return e
}

// IsActive reports whether the entry may still trade
func (e BookEntry) IsActive() bool {
	return !e.Status.IsFinal() && e.Sizes.Available > 0
}

// ToTradeSideEntry projects the entry into the view recorded on a trade
func (e BookEntry) ToTradeSideEntry() TradeSideEntry {
	return TradeSideEntry{
		RequestID:     e.RequestID,
		Client:        e.Client,
		IsQuote:       e.IsQuote,
		EntryType:     e.EntryType,
		Side:          e.Side,
		Sizes:         e.Sizes,
		Price:         e.Key.Price,
		TimeInForce:   e.TimeInForce,
		WhenSubmitted: e.Key.WhenSubmitted,
		EventID:       e.Key.EventID,
		Status:        e.Status,
	}
}

// ToOrderCancelledEvent builds the event cancelling what is still available.
// The payload carries the sizes as they are after the cancellation.
func (e BookEntry) ToOrderCancelledEvent(eventID cqrs.EventID, bookID BookID, whenHappened time.Time, reason CancelReason) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		EventIDValue: eventID,
		BookID:       bookID,
		RequestID:    e.RequestID,
		Client:       e.Client,
		EntryType:    e.EntryType,
		Side:         e.Side,
		IsQuote:      e.IsQuote,
		Key:          e.Key,
		TimeInForce:  e.TimeInForce,
		Sizes:        e.Sizes.cancelled(),
		Status:       EntryStatusCancelled,
		Reason:       reason,
		WhenHappened: whenHappened,
	}
}

// TradeSideEntry is one side of a trade as it stood right after the trade
type TradeSideEntry struct {
	RequestID     ClientRequestID `json:"request_id"`
	Client        Client          `json:"client"`
	IsQuote       bool            `json:"is_quote"`
	EntryType     EntryType       `json:"entry_type"`
	Side          Side            `json:"side"`
	Sizes         EntrySizes      `json:"sizes"`
	Price         Price           `json:"price"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
	WhenSubmitted time.Time       `json:"when_submitted"`
	EventID       cqrs.EventID    `json:"event_id"`
	Status        EntryStatus     `json:"status"`
}

// Key returns the book key of the entry the side was taken from
func (t TradeSideEntry) Key() BookEntryKey {
	return BookEntryKey{Price: t.Price, WhenSubmitted: t.WhenSubmitted, EventID: t.EventID}
}
