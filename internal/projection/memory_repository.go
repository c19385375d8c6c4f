package projection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository
type MemoryOrderRepository struct {
	mu sync.RWMutex

	orders map[OrderKey]*OrderView
	byBook map[matching.BookID][]OrderKey // placement order

	// Last projected event id per book
	cursors map[matching.BookID]cqrs.EventID
}

// NewMemoryOrderRepository creates a new in-memory order repository
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:  make(map[OrderKey]*OrderView),
		byBook:  make(map[matching.BookID][]OrderKey),
		cursors: make(map[matching.BookID]cqrs.EventID),
	}
}

// Save creates or updates an order view
func (r *MemoryOrderRepository) Save(ctx context.Context, order *OrderView) error {
	if order == nil {
		return ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := order.Key()
	if _, exists := r.orders[key]; !exists {
		r.byBook[key.BookID] = append(r.byBook[key.BookID], key)
	}
	r.orders[key] = cloneOrderView(order)
	return nil
}

// Get retrieves an order by key
func (r *MemoryOrderRepository) Get(ctx context.Context, key OrderKey) (*OrderView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[key]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return cloneOrderView(order), nil
}

// ListByBook retrieves the orders of a book
func (r *MemoryOrderRepository) ListByBook(ctx context.Context, bookID matching.BookID, limit int) ([]*OrderView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := r.byBook[bookID]
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]*OrderView, 0, len(keys))
	for _, key := range keys {
		out = append(out, cloneOrderView(r.orders[key]))
	}
	return out, nil
}

// LastEventID returns the cursor of a book
func (r *MemoryOrderRepository) LastEventID(ctx context.Context, bookID matching.BookID) (cqrs.EventID, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.cursors[bookID]
	return id, ok, nil
}

// SetLastEventID advances the cursor of a book
func (r *MemoryOrderRepository) SetLastEventID(ctx context.Context, bookID matching.BookID, id cqrs.EventID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.cursors[bookID]; ok && id < last {
		return fmt.Errorf("%w: book=%s last=%d new=%d", ErrSequenceRegression, bookID, last, id)
	}
	r.cursors[bookID] = id
	return nil
}

// MemoryTradeRepository is an in-memory implementation of TradeRepository
type MemoryTradeRepository struct {
	mu sync.RWMutex

	// Trades per book sorted by event id
	byBook map[matching.BookID][]*TradeView
}

// NewMemoryTradeRepository creates a new in-memory trade repository
func NewMemoryTradeRepository() *MemoryTradeRepository {
	return &MemoryTradeRepository{
		byBook: make(map[matching.BookID][]*TradeView),
	}
}

// Save records a trade
func (r *MemoryTradeRepository) Save(ctx context.Context, trade *TradeView) error {
	if trade == nil {
		return ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	trades := r.byBook[trade.BookID]
	i := sort.Search(len(trades), func(i int) bool { return trades[i].EventID >= trade.EventID })
	if i < len(trades) && trades[i].EventID == trade.EventID {
		if *trades[i] != *trade {
			return fmt.Errorf("%w: book=%s event=%d", ErrTradeConflict, trade.BookID, trade.EventID)
		}
		return nil
	}

	trades = append(trades, nil)
	copy(trades[i+1:], trades[i:])
	trades[i] = cloneTradeView(trade)
	r.byBook[trade.BookID] = trades
	return nil
}

// ListByBook retrieves the trades of a book from an event id on
func (r *MemoryTradeRepository) ListByBook(ctx context.Context, bookID matching.BookID, from cqrs.EventID, limit int) ([]*TradeView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trades := r.byBook[bookID]
	i := sort.Search(len(trades), func(i int) bool { return trades[i].EventID >= from })
	trades = trades[i:]
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return cloneTradeViews(trades), nil
}

// ListByOrder retrieves the trades of one order from an event id on
func (r *MemoryTradeRepository) ListByOrder(ctx context.Context, key OrderKey, from cqrs.EventID, limit int) ([]*TradeView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trades := r.byBook[key.BookID]
	i := sort.Search(len(trades), func(i int) bool { return trades[i].EventID >= from })

	out := []*TradeView{}
	for _, trade := range trades[i:] {
		if !trade.Involves(key) {
			continue
		}
		out = append(out, cloneTradeView(trade))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
