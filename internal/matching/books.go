package matching

import (
	"time"

	"matching-core/internal/cqrs"
)

// Event is an event played against Books
type Event = cqrs.Event[Books]

// Books is the aggregate root of one instrument: both limit books, the trading
// statuses and the id of the last event applied.
type Books struct {
	BookID           BookID          `json:"book_id"`
	BusinessDate     time.Time       `json:"business_date"`
	TradingStatuses  TradingStatuses `json:"trading_statuses"`
	BuyLimitBook     LimitBook       `json:"buy_limit_book"`
	SellLimitBook    LimitBook       `json:"sell_limit_book"`
	LastEventIDValue cqrs.EventID    `json:"last_event_id"`
}

// NewBooks returns the aggregate of a book that has not been created yet. Its
// creation event is expected to carry event id 0.
func NewBooks(bookID BookID) Books {
	return Books{
		BookID:           bookID,
		BuyLimitBook:     NewLimitBook(SideBuy),
		SellLimitBook:    NewLimitBook(SideSell),
		LastEventIDValue: -1,
	}
}

// LastEventID implements cqrs.Aggregate
func (b Books) LastEventID() cqrs.EventID {
	return b.LastEventIDValue
}

// IsCreated reports whether the creation event has been applied
func (b Books) IsCreated() bool {
	return b.LastEventIDValue >= 0
}

// LimitBook returns the book of the given side
func (b Books) LimitBook(side Side) LimitBook {
	if side == SideBuy {
		return b.BuyLimitBook
	}
	return b.SellLimitBook
}

func (b Books) withLimitBook(book LimitBook) Books {
	if book.Side() == SideBuy {
		b.BuyLimitBook = book
	} else {
		b.SellLimitBook = book
	}
	return b
}

func (b Books) withLastEventID(id cqrs.EventID) Books {
	b.LastEventIDValue = id
	return b
}

// ActiveOrder returns the resting order the client placed under requestID
func (b Books) ActiveOrder(client Client, requestID ClientRequestID) (BookEntry, bool) {
	match := func(e BookEntry) bool {
		return !e.IsQuote && e.Client == client && e.RequestID == requestID
	}
	if e, ok := b.BuyLimitBook.Find(match); ok {
		return e, true
	}
	return b.SellLimitBook.Find(match)
}

// Quotes returns the client's resting quote entries, BUY side first
func (b Books) Quotes(client Client) []BookEntry {
	match := func(e BookEntry) bool {
		return e.IsQuote && e.Client == client
	}
	return append(b.BuyLimitBook.Filter(match), b.SellLimitBook.Filter(match)...)
}

// checkTarget verifies a command is aimed at these books
func (b Books) checkTarget(bookID BookID) error {
	if !b.IsCreated() {
		return invalid("book_id", "books not created")
	}
	if b.BookID != bookID {
		return invalid("book_id", "does not match "+string(b.BookID))
	}
	return nil
}

// removeEntry removes the entry under key and checks its sizes end where the
// event says they do.
func (b Books) removeEntry(side Side, key BookEntryKey) (Books, BookEntry, error) {
	book := b.LimitBook(side)
	current, ok := book.Get(key)
	if !ok {
		return b, BookEntry{}, cqrs.Violation("no %s entry at event %d", side, key.EventID)
	}
	book, _ = book.Remove(key)
	return b.withLimitBook(book), current, nil
}
