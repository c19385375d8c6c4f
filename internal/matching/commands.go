package matching

import (
	"fmt"
	"time"

	"matching-core/internal/cqrs"
)

// Command is a command decided against Books
type Command = cqrs.Command[Books]

// CreateBooksCommand opens a book for trading
type CreateBooksCommand struct {
	BookID          BookID
	BusinessDate    time.Time
	TradingStatuses TradingStatuses
	WhenRequested   time.Time
}

func (c CreateBooksCommand) Decide(books Books) (Event, error) {
	if books.IsCreated() {
		return nil, invalid("book_id", "already created")
	}
	if !c.BookID.IsValid() {
		return nil, invalid("book_id", "must be non-empty without '/' or spaces")
	}
	if books.BookID != "" && books.BookID != c.BookID {
		return nil, invalid("book_id", "does not match "+string(books.BookID))
	}
	if err := c.TradingStatuses.Validate(); err != nil {
		return nil, err
	}
	return &BooksCreatedEvent{
		EventIDValue:    books.LastEventID().Next(),
		BookID:          c.BookID,
		BusinessDate:    c.BusinessDate,
		TradingStatuses: c.TradingStatuses,
		WhenHappened:    c.WhenRequested,
	}, nil
}

// UpdateTradingStatusesCommand replaces the status layers of a book. It is an
// operator command and bypasses the gate.
type UpdateTradingStatusesCommand struct {
	BookID          BookID
	TradingStatuses TradingStatuses
	WhenRequested   time.Time
}

func (c UpdateTradingStatusesCommand) Decide(books Books) (Event, error) {
	if err := books.checkTarget(c.BookID); err != nil {
		return nil, err
	}
	if err := c.TradingStatuses.Validate(); err != nil {
		return nil, err
	}
	return &TradingStatusesUpdatedEvent{
		EventIDValue:    books.LastEventID().Next(),
		BookID:          c.BookID,
		TradingStatuses: c.TradingStatuses,
		WhenHappened:    c.WhenRequested,
	}, nil
}

// PlaceOrderCommand places a limit or market order
type PlaceOrderCommand struct {
	BookID        BookID
	RequestID     ClientRequestID
	Client        Client
	EntryType     EntryType
	Side          Side
	Price         Price // Required for LIMIT, absent for MARKET
	TimeInForce   TimeInForce
	Size          int64
	WhenRequested time.Time
}

func (c PlaceOrderCommand) Decide(books Books) (Event, error) {
	if err := books.checkTarget(c.BookID); err != nil {
		return nil, err
	}
	if err := books.TradingStatuses.gate(CommandKindPlaceOrder); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if _, ok := books.ActiveOrder(c.Client, c.RequestID); ok {
		return nil, invalid("request_id", "already resting: "+string(c.RequestID))
	}
	return &OrderPlacedEvent{
		EventIDValue: books.LastEventID().Next(),
		BookID:       c.BookID,
		RequestID:    c.RequestID,
		Client:       c.Client,
		EntryType:    c.EntryType,
		Side:         c.Side,
		Price:        c.Price,
		TimeInForce:  c.TimeInForce,
		Size:         c.Size,
		WhenHappened: c.WhenRequested,
	}, nil
}

// Validate checks the order parameters without looking at the books
func (c PlaceOrderCommand) Validate() error {
	switch {
	case c.RequestID == "":
		return invalid("request_id", "required")
	case c.Client.FirmID == "":
		return invalid("client.firm_id", "required")
	case !c.Side.IsValid():
		return invalid("side", "unknown side "+string(c.Side))
	case !c.EntryType.IsValid():
		return invalid("entry_type", "unknown type "+string(c.EntryType))
	case !c.TimeInForce.IsValid():
		return invalid("time_in_force", "unknown time in force "+string(c.TimeInForce))
	case c.Size <= 0:
		return invalid("size", "must be positive")
	}

	switch c.EntryType {
	case EntryTypeLimit:
		if !c.Price.IsSet() {
			return invalid("price", "required for LIMIT")
		}
		if c.Price.Int64() <= 0 {
			return invalid("price", "must be positive")
		}
	case EntryTypeMarket:
		if c.Price.IsSet() {
			return invalid("price", "not allowed for MARKET")
		}
		if c.TimeInForce == TimeInForceGoodTillCancel {
			return invalid("time_in_force", "MARKET orders cannot rest")
		}
	}
	return nil
}

// CancelOrderCommand cancels the resting order placed under OriginalRequestID
type CancelOrderCommand struct {
	BookID            BookID
	RequestID         ClientRequestID // Id of the cancel request itself
	OriginalRequestID ClientRequestID
	Client            Client
	WhenRequested     time.Time
}

func (c CancelOrderCommand) Decide(books Books) (Event, error) {
	if err := books.checkTarget(c.BookID); err != nil {
		return nil, err
	}
	if err := books.TradingStatuses.gate(CommandKindCancelOrder); err != nil {
		return nil, err
	}
	if c.OriginalRequestID == "" {
		return nil, invalid("original_request_id", "required")
	}
	if c.Client.FirmID == "" {
		return nil, invalid("client.firm_id", "required")
	}
	entry, ok := books.ActiveOrder(c.Client, c.OriginalRequestID)
	if !ok || !entry.IsActive() {
		return nil, fmt.Errorf("%w: order %s", ErrEntryNotFound, c.OriginalRequestID)
	}
	return entry.ToOrderCancelledEvent(books.LastEventID().Next(), c.BookID, c.WhenRequested, CancelReasonUponRequest), nil
}
