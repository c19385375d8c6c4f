package projection

import (
	"context"
	"errors"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSequenceRegression = errors.New("sequence regression")
	ErrSequenceGap        = errors.New("sequence gap")
	ErrTradeConflict      = errors.New("trade conflict")
)

// OrderRepository defines the interface for order read model storage
type OrderRepository interface {
	// Save creates or updates an order view
	Save(ctx context.Context, order *OrderView) error

	// Get retrieves an order by book, client and request id
	Get(ctx context.Context, key OrderKey) (*OrderView, error)

	// ListByBook retrieves the orders of a book in placement order
	ListByBook(ctx context.Context, bookID matching.BookID, limit int) ([]*OrderView, error)

	// LastEventID returns the last projected event id of a book.
	// ok is false when nothing was projected yet.
	LastEventID(ctx context.Context, bookID matching.BookID) (id cqrs.EventID, ok bool, err error)

	// SetLastEventID advances the cursor of a book
	SetLastEventID(ctx context.Context, bookID matching.BookID, id cqrs.EventID) error
}

// TradeRepository defines the interface for trade read model storage
type TradeRepository interface {
	// Save records a trade. Saving the same trade twice is a no-op.
	Save(ctx context.Context, trade *TradeView) error

	// ListByBook retrieves the trades of a book with event id >= from
	ListByBook(ctx context.Context, bookID matching.BookID, from cqrs.EventID, limit int) ([]*TradeView, error)

	// ListByOrder retrieves the trades an order took part in with event id >= from
	ListByOrder(ctx context.Context, key OrderKey, from cqrs.EventID, limit int) ([]*TradeView, error)
}
