package matching

import (
	"time"

	"matching-core/internal/cqrs"
)

// Event types as they appear in the journal and on the wire
const (
	EventTypeBooksCreated           = "BooksCreated"
	EventTypeTradingStatusesUpdated = "TradingStatusesUpdated"
	EventTypeOrderPlaced            = "OrderPlaced"
	EventTypeOrderCancelled         = "OrderCancelled"
	EventTypeEntryAddedToBook       = "EntryAddedToBook"
	EventTypeTrade                  = "Trade"
	EventTypeMassQuotePlaced        = "MassQuotePlaced"
	EventTypeMassQuoteCancelled     = "MassQuoteCancelled"
)

// followOn is an event manufactured while matching. apply is its whole effect,
// so the matcher can run it on a working copy before the kernel plays it.
type followOn interface {
	Event
	apply(books Books) (Books, error)
}

func transition(books Books, events ...Event) cqrs.Transition[Books] {
	return cqrs.Transition[Books]{Aggregate: books, Events: events}
}

// BooksCreatedEvent opens a book. It always carries event id 0.
type BooksCreatedEvent struct {
	EventIDValue    cqrs.EventID    `json:"event_id"`
	BookID          BookID          `json:"book_id"`
	BusinessDate    time.Time       `json:"business_date"`
	TradingStatuses TradingStatuses `json:"trading_statuses"`
	WhenHappened    time.Time       `json:"when_happened"`
}

func (e *BooksCreatedEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *BooksCreatedEvent) EventType() string     { return EventTypeBooksCreated }

func (e *BooksCreatedEvent) Play(books Books, _ *cqrs.Sequence) (cqrs.Transition[Books], error) {
	if books.IsCreated() {
		return cqrs.Transition[Books]{}, cqrs.Violation("book %s created twice", e.BookID)
	}
	if books.BookID != "" && books.BookID != e.BookID {
		return cqrs.Transition[Books]{}, cqrs.Violation("creation of %s played on %s", e.BookID, books.BookID)
	}
	return transition(CreateBooks(e)), nil
}

// CreateBooks builds the initial snapshot described by a creation event
func CreateBooks(e *BooksCreatedEvent) Books {
	return Books{
		BookID:           e.BookID,
		BusinessDate:     e.BusinessDate,
		TradingStatuses:  e.TradingStatuses,
		BuyLimitBook:     NewLimitBook(SideBuy),
		SellLimitBook:    NewLimitBook(SideSell),
		LastEventIDValue: e.EventIDValue,
	}
}

// TradingStatusesUpdatedEvent replaces every status layer of a book
type TradingStatusesUpdatedEvent struct {
	EventIDValue    cqrs.EventID    `json:"event_id"`
	BookID          BookID          `json:"book_id"`
	TradingStatuses TradingStatuses `json:"trading_statuses"`
	WhenHappened    time.Time       `json:"when_happened"`
}

func (e *TradingStatusesUpdatedEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *TradingStatusesUpdatedEvent) EventType() string     { return EventTypeTradingStatusesUpdated }

func (e *TradingStatusesUpdatedEvent) Play(books Books, _ *cqrs.Sequence) (cqrs.Transition[Books], error) {
	books.TradingStatuses = e.TradingStatuses
	return transition(books.withLastEventID(e.EventIDValue)), nil
}

// OrderPlacedEvent accepts an order. Playing it runs the matching algorithm.
type OrderPlacedEvent struct {
	EventIDValue cqrs.EventID    `json:"event_id"`
	BookID       BookID          `json:"book_id"`
	RequestID    ClientRequestID `json:"request_id"`
	Client       Client          `json:"client"`
	EntryType    EntryType       `json:"entry_type"`
	Side         Side            `json:"side"`
	Price        Price           `json:"price"`
	TimeInForce  TimeInForce     `json:"time_in_force"`
	Size         int64           `json:"size"`
	WhenHappened time.Time       `json:"when_happened"`
}

func (e *OrderPlacedEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *OrderPlacedEvent) EventType() string     { return EventTypeOrderPlaced }

// Entry returns the aggressor entry the order starts as
func (e *OrderPlacedEvent) Entry() BookEntry {
	return BookEntry{
		Key:         BookEntryKey{Price: e.Price, WhenSubmitted: e.WhenHappened, EventID: e.EventIDValue},
		RequestID:   e.RequestID,
		Client:      e.Client,
		EntryType:   e.EntryType,
		Side:        e.Side,
		TimeInForce: e.TimeInForce,
		Sizes:       NewEntrySizes(e.Size),
		Status:      EntryStatusNew,
	}
}

func (e *OrderPlacedEvent) Play(books Books, ids *cqrs.Sequence) (cqrs.Transition[Books], error) {
	books = books.withLastEventID(e.EventIDValue)
	m := newMatcher(e.BookID, e.WhenHappened, ids)
	if _, err := m.resolve(books, e.Entry()); err != nil {
		return cqrs.Transition[Books]{}, err
	}
	return transition(books, m.events...), nil
}

// EntryAddedToBookEvent rests an entry. The entry key carries this event's id.
type EntryAddedToBookEvent struct {
	EventIDValue cqrs.EventID `json:"event_id"`
	BookID       BookID       `json:"book_id"`
	Entry        BookEntry    `json:"entry"`
	WhenHappened time.Time    `json:"when_happened"`
}

func (e *EntryAddedToBookEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *EntryAddedToBookEvent) EventType() string     { return EventTypeEntryAddedToBook }

func (e *EntryAddedToBookEvent) Play(books Books, _ *cqrs.Sequence) (cqrs.Transition[Books], error) {
	next, err := e.apply(books)
	if err != nil {
		return cqrs.Transition[Books]{}, err
	}
	return transition(next), nil
}

func (e *EntryAddedToBookEvent) apply(books Books) (Books, error) {
	entry := e.Entry
	switch {
	case entry.Key.EventID != e.EventIDValue:
		return books, cqrs.Violation("resting key id %d on event %d", entry.Key.EventID, e.EventIDValue)
	case !entry.Key.Price.IsSet():
		return books, cqrs.Violation("entry %s rests without a price", entry.RequestID)
	case !entry.IsActive():
		return books, cqrs.Violation("entry %s rests with status %s", entry.RequestID, entry.Status)
	}
	if err := entry.Sizes.validate(); err != nil {
		return books, err
	}
	book, err := books.LimitBook(entry.Side).Add(entry)
	if err != nil {
		return books, cqrs.Violation("%v", err)
	}
	return books.withLimitBook(book).withLastEventID(e.EventIDValue), nil
}

// TradeEvent records one match. Both sides are the post-trade views.
type TradeEvent struct {
	EventIDValue cqrs.EventID   `json:"event_id"`
	BookID       BookID         `json:"book_id"`
	Size         int64          `json:"size"`
	Price        int64          `json:"price"`
	Aggressor    TradeSideEntry `json:"aggressor"`
	Passive      TradeSideEntry `json:"passive"`
	WhenHappened time.Time      `json:"when_happened"`
}

func (e *TradeEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *TradeEvent) EventType() string     { return EventTypeTrade }

func (e *TradeEvent) Play(books Books, _ *cqrs.Sequence) (cqrs.Transition[Books], error) {
	next, err := e.apply(books)
	if err != nil {
		return cqrs.Transition[Books]{}, err
	}
	return transition(next), nil
}

// apply trades the passive entry and drops it from the book once it is filled.
// The aggressor never rests before its trades, so only the passive side changes.
func (e *TradeEvent) apply(books Books) (Books, error) {
	book := books.LimitBook(e.Passive.Side)
	current, ok := book.Get(e.Passive.Key())
	if !ok {
		return books, cqrs.Violation("trade %d against missing %s entry %s", e.EventIDValue, e.Passive.Side, e.Passive.RequestID)
	}
	if price, _ := current.Key.Price.Value(); price != e.Price {
		return books, cqrs.Violation("trade %d at %d against passive price %d", e.EventIDValue, e.Price, price)
	}
	traded, err := current.Traded(e.Size)
	if err != nil {
		return books, err
	}
	if traded.Sizes != e.Passive.Sizes || traded.Status != e.Passive.Status {
		return books, cqrs.Violation("trade %d passive sizes %+v, book says %+v", e.EventIDValue, e.Passive.Sizes, traded.Sizes)
	}
	if traded.Status.IsFinal() {
		book, _ = book.Remove(traded.Key)
	} else if book, err = book.Replace(traded); err != nil {
		return books, cqrs.Violation("%v", err)
	}
	return books.withLimitBook(book).withLastEventID(e.EventIDValue), nil
}

// OrderCancelledEvent cancels what is left of an order or quote leg. Sizes are
// the sizes after cancellation.
type OrderCancelledEvent struct {
	EventIDValue cqrs.EventID    `json:"event_id"`
	BookID       BookID          `json:"book_id"`
	RequestID    ClientRequestID `json:"request_id"`
	Client       Client          `json:"client"`
	EntryType    EntryType       `json:"entry_type"`
	Side         Side            `json:"side"`
	IsQuote      bool            `json:"is_quote"`
	Key          BookEntryKey    `json:"key"`
	TimeInForce  TimeInForce     `json:"time_in_force"`
	Sizes        EntrySizes      `json:"sizes"`
	Status       EntryStatus     `json:"status"`
	Reason       CancelReason    `json:"reason"`
	WhenHappened time.Time       `json:"when_happened"`
}

func (e *OrderCancelledEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *OrderCancelledEvent) EventType() string     { return EventTypeOrderCancelled }

func (e *OrderCancelledEvent) Play(books Books, _ *cqrs.Sequence) (cqrs.Transition[Books], error) {
	next, err := e.apply(books)
	if err != nil {
		return cqrs.Transition[Books]{}, err
	}
	return transition(next), nil
}

// apply removes the entry if it rests. An unmatched IOC remainder was never in
// the book, so only NO_MORE_MATCH may find nothing to remove.
func (e *OrderCancelledEvent) apply(books Books) (Books, error) {
	if err := e.Sizes.validate(); err != nil {
		return books, err
	}
	if _, ok := books.LimitBook(e.Side).Get(e.Key); !ok {
		if e.Reason == CancelReasonNoMoreMatch {
			return books.withLastEventID(e.EventIDValue), nil
		}
		return books, cqrs.Violation("cancel of missing %s entry %s", e.Side, e.RequestID)
	}
	next, current, err := books.removeEntry(e.Side, e.Key)
	if err != nil {
		return books, err
	}
	cancelled, err := current.Cancelled()
	if err != nil {
		return books, err
	}
	if cancelled.Sizes != e.Sizes {
		return books, cqrs.Violation("cancel of %s sizes %+v, book says %+v", e.RequestID, e.Sizes, cancelled.Sizes)
	}
	return next.withLastEventID(e.EventIDValue), nil
}

// MassQuotePlacedEvent accepts a mass quote. Playing it replaces the client's
// resting quote entries and matches every leg in order.
type MassQuotePlacedEvent struct {
	EventIDValue cqrs.EventID `json:"event_id"`
	BookID       BookID       `json:"book_id"`
	QuoteID      string       `json:"quote_id"`
	Client       Client       `json:"client"`
	TimeInForce  TimeInForce  `json:"time_in_force"`
	Entries      []QuoteEntry `json:"entries"`
	WhenHappened time.Time    `json:"when_happened"`
}

func (e *MassQuotePlacedEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *MassQuotePlacedEvent) EventType() string     { return EventTypeMassQuotePlaced }

// Legs returns the aggressor entries of the quote in resolution order
func (e *MassQuotePlacedEvent) Legs() []BookEntry {
	legs := make([]BookEntry, 0, 2*len(e.Entries))
	for _, q := range e.Entries {
		if q.Bid != nil {
			legs = append(legs, e.leg(q, SideBuy, *q.Bid))
		}
		if q.Offer != nil {
			legs = append(legs, e.leg(q, SideSell, *q.Offer))
		}
	}
	return legs
}

func (e *MassQuotePlacedEvent) leg(q QuoteEntry, side Side, ps PriceWithSize) BookEntry {
	return BookEntry{
		Key:         BookEntryKey{Price: NewPrice(ps.Price), WhenSubmitted: e.WhenHappened, EventID: e.EventIDValue},
		RequestID:   QuoteLegRequestID(e.QuoteID, q.ID, side),
		Client:      e.Client,
		EntryType:   EntryTypeLimit,
		Side:        side,
		TimeInForce: e.TimeInForce,
		IsQuote:     true,
		Sizes:       NewEntrySizes(ps.Size),
		Status:      EntryStatusNew,
	}
}

func (e *MassQuotePlacedEvent) Play(books Books, ids *cqrs.Sequence) (cqrs.Transition[Books], error) {
	books = books.withLastEventID(e.EventIDValue)
	m := newMatcher(e.BookID, e.WhenHappened, ids)

	working := books
	if resting := books.Quotes(e.Client); len(resting) > 0 {
		cancel := newMassQuoteCancelledEvent(ids.Next(), e.BookID, e.Client, resting, CancelReasonReplacedByNewQuote, e.WhenHappened)
		var err error
		if working, err = m.emit(working, cancel); err != nil {
			return cqrs.Transition[Books]{}, err
		}
	}
	for _, leg := range e.Legs() {
		var err error
		if working, err = m.resolve(working, leg); err != nil {
			return cqrs.Transition[Books]{}, err
		}
	}
	return transition(books, m.events...), nil
}

// MassQuoteCancelledEvent cancels every resting quote entry of a client.
// Entries are the post-cancellation views.
type MassQuoteCancelledEvent struct {
	EventIDValue cqrs.EventID     `json:"event_id"`
	BookID       BookID           `json:"book_id"`
	Client       Client           `json:"client"`
	Entries      []TradeSideEntry `json:"entries"`
	Reason       CancelReason     `json:"reason"`
	WhenHappened time.Time        `json:"when_happened"`
}

func newMassQuoteCancelledEvent(id cqrs.EventID, bookID BookID, client Client, resting []BookEntry, reason CancelReason, when time.Time) *MassQuoteCancelledEvent {
	entries := make([]TradeSideEntry, 0, len(resting))
	for _, r := range resting {
		view := r.ToTradeSideEntry()
		view.Sizes = r.Sizes.cancelled()
		view.Status = EntryStatusCancelled
		entries = append(entries, view)
	}
	return &MassQuoteCancelledEvent{
		EventIDValue: id,
		BookID:       bookID,
		Client:       client,
		Entries:      entries,
		Reason:       reason,
		WhenHappened: when,
	}
}

func (e *MassQuoteCancelledEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e *MassQuoteCancelledEvent) EventType() string     { return EventTypeMassQuoteCancelled }

func (e *MassQuoteCancelledEvent) Play(books Books, _ *cqrs.Sequence) (cqrs.Transition[Books], error) {
	next, err := e.apply(books)
	if err != nil {
		return cqrs.Transition[Books]{}, err
	}
	return transition(next), nil
}

func (e *MassQuoteCancelledEvent) apply(books Books) (Books, error) {
	next := books
	for _, view := range e.Entries {
		var (
			current BookEntry
			err     error
		)
		next, current, err = next.removeEntry(view.Side, view.Key())
		if err != nil {
			return books, err
		}
		if !current.IsQuote || current.Client != e.Client {
			return books, cqrs.Violation("entry %s is not a quote of %s", current.RequestID, e.Client.FirmID)
		}
		cancelled, err := current.Cancelled()
		if err != nil {
			return books, err
		}
		if cancelled.Sizes != view.Sizes {
			return books, cqrs.Violation("quote cancel of %s sizes %+v, book says %+v", view.RequestID, view.Sizes, cancelled.Sizes)
		}
	}
	return next.withLastEventID(e.EventIDValue), nil
}
