// Package projection maintains query-side views of orders and trades built
// from committed book events.
package projection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"matching-core/internal/cqrs"
	"matching-core/internal/logging"
	"matching-core/internal/matching"
)

// EventSource is a journal the projector can be rebuilt from
type EventSource interface {
	ListBooks(ctx context.Context) ([]matching.BookID, error)
	ReadFrom(ctx context.Context, bookID matching.BookID, from cqrs.EventID) ([]matching.Event, error)
}

// Projector projects committed events into the order and trade views.
// Events of a book must arrive in id order starting with the creation event.
// A batch is applied whole or not at all.
type Projector struct {
	mu        sync.Mutex
	orderRepo OrderRepository
	tradeRepo TradeRepository
	journal   EventSource // Optional, fills gaps left by failed batches
	logger    *zap.Logger
}

// NewProjector creates a new projector
func NewProjector(orderRepo OrderRepository, tradeRepo TradeRepository, logger *zap.Logger) *Projector {
	return &Projector{
		orderRepo: orderRepo,
		tradeRepo: tradeRepo,
		logger:    logging.OrNop(logger),
	}
}

// WithJournal lets the projector read missed events back from journal when a
// batch arrives ahead of its cursor
func (p *Projector) WithJournal(journal EventSource) *Projector {
	p.journal = journal
	return p
}

// Publish projects the committed events of one command
func (p *Projector) Publish(ctx context.Context, bookID matching.BookID, events []matching.Event) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.projectBatch(ctx, bookID, events); err != nil {
		p.logger.Error("projection failed",
			zap.String("book_id", string(bookID)),
			zap.Int64("first_event_id", int64(events[0].EventID())),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close is a no-op; the views live as long as their repositories
func (p *Projector) Close() error {
	return nil
}

// Rebuild projects every journaled event the views have not seen yet
func (p *Projector) Rebuild(ctx context.Context, source EventSource) error {
	ids, err := source.ListBooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}

	for _, bookID := range ids {
		from, err := p.nextEventID(ctx, bookID)
		if err != nil {
			return err
		}
		events, err := source.ReadFrom(ctx, bookID, from)
		if err != nil {
			return fmt.Errorf("failed to read events of %s: %w", bookID, err)
		}
		if err := p.Publish(ctx, bookID, events); err != nil {
			return err
		}
		p.logger.Info("projection rebuilt",
			zap.String("book_id", string(bookID)),
			zap.Int("events", len(events)),
		)
	}
	return nil
}

// Order returns the view of one order or quote leg
func (p *Projector) Order(ctx context.Context, key OrderKey) (*OrderView, error) {
	return p.orderRepo.Get(ctx, key)
}

// OrderTrades returns the trades the current order under key took part in.
// Trades of an earlier order that used the same request id are left out.
func (p *Projector) OrderTrades(ctx context.Context, key OrderKey, limit int) ([]*TradeView, error) {
	order, err := p.orderRepo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return p.tradeRepo.ListByOrder(ctx, key, order.PlacedEventID, limit)
}

// Trades returns the trades of a book from an event id on
func (p *Projector) Trades(ctx context.Context, bookID matching.BookID, from cqrs.EventID, limit int) ([]*TradeView, error) {
	return p.tradeRepo.ListByBook(ctx, bookID, from, limit)
}

func (p *Projector) nextEventID(ctx context.Context, bookID matching.BookID) (cqrs.EventID, error) {
	last, ok, err := p.orderRepo.LastEventID(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("failed to get cursor: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return last.Next(), nil
}

func (p *Projector) projectBatch(ctx context.Context, bookID matching.BookID, events []matching.Event) error {
	next, err := p.nextEventID(ctx, bookID)
	if err != nil {
		return err
	}

	if events[0].EventID() > next && p.journal != nil {
		upTo := events[len(events)-1].EventID()
		if events, err = p.readMissed(ctx, bookID, next, upTo); err != nil {
			return err
		}
		p.logger.Warn("projection caught up from journal",
			zap.String("book_id", string(bookID)),
			zap.Int64("from", int64(next)),
			zap.Int64("to", int64(upTo)),
		)
	}

	b := newBatch(p.orderRepo, bookID, next)
	for _, evt := range events {
		if err := b.project(ctx, evt); err != nil {
			return fmt.Errorf("event %d (%s): %w", evt.EventID(), evt.EventType(), err)
		}
	}
	return p.commit(ctx, b)
}

func (p *Projector) readMissed(ctx context.Context, bookID matching.BookID, from, upTo cqrs.EventID) ([]matching.Event, error) {
	journaled, err := p.journal.ReadFrom(ctx, bookID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to read missed events of %s: %w", bookID, err)
	}
	out := journaled[:0]
	for _, evt := range journaled {
		if evt.EventID() > upTo {
			break
		}
		out = append(out, evt)
	}
	return out, nil
}

// commit writes the staged views and only then advances the cursor, so a
// failed commit is re-projected in full by the next batch.
func (p *Projector) commit(ctx context.Context, b *batch) error {
	b.flushPending()
	for _, key := range b.staged {
		if err := p.orderRepo.Save(ctx, b.orders[key]); err != nil {
			return fmt.Errorf("failed to save order %s: %w", key.RequestID, err)
		}
	}
	for _, trade := range b.trades {
		if err := p.tradeRepo.Save(ctx, trade); err != nil {
			return fmt.Errorf("failed to save trade %d: %w", trade.EventID, err)
		}
	}
	if !b.projected {
		return nil
	}
	if err := p.orderRepo.SetLastEventID(ctx, b.bookID, b.next-1); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return nil
}

// batch stages the effects of a run of events of one book
type batch struct {
	repo      OrderRepository
	bookID    matching.BookID
	next      cqrs.EventID
	projected bool

	orders map[OrderKey]*OrderView
	staged []OrderKey // first-write order
	trades []*TradeView

	// Legs of the latest mass quote. A replacing quote may reuse the leg ids
	// of the one it replaces, so new legs stay here until their own events
	// arrive.
	pending map[OrderKey]*OrderView
}

func newBatch(repo OrderRepository, bookID matching.BookID, next cqrs.EventID) *batch {
	return &batch{
		repo:    repo,
		bookID:  bookID,
		next:    next,
		orders:  make(map[OrderKey]*OrderView),
		pending: make(map[OrderKey]*OrderView),
	}
}

func (b *batch) project(ctx context.Context, evt matching.Event) error {
	switch id := evt.EventID(); {
	case id < b.next:
		return fmt.Errorf("%w: book=%s expected=%d event=%d", ErrSequenceRegression, b.bookID, b.next, id)
	case id > b.next:
		return fmt.Errorf("%w: book=%s expected=%d event=%d", ErrSequenceGap, b.bookID, b.next, id)
	}

	var err error
	switch e := evt.(type) {
	case *matching.BooksCreatedEvent, *matching.TradingStatusesUpdatedEvent:
		// No order or trade state
	case *matching.OrderPlacedEvent:
		b.orderPlaced(e)
	case *matching.MassQuotePlacedEvent:
		b.massQuotePlaced(e)
	case *matching.EntryAddedToBookEvent:
		err = b.entryAdded(ctx, e)
	case *matching.TradeEvent:
		err = b.trade(ctx, e)
	case *matching.OrderCancelledEvent:
		err = b.orderCancelled(ctx, e)
	case *matching.MassQuoteCancelledEvent:
		err = b.massQuoteCancelled(ctx, e)
	default:
		err = fmt.Errorf("unknown event type %T", evt)
	}
	if err != nil {
		return err
	}

	b.next = b.next.Next()
	b.projected = true
	return nil
}

func (b *batch) stage(order *OrderView) {
	key := order.Key()
	if _, ok := b.orders[key]; !ok {
		b.staged = append(b.staged, key)
	}
	b.orders[key] = order
}

func (b *batch) flushPending() {
	for key, leg := range b.pending {
		b.stage(leg)
		delete(b.pending, key)
	}
}

// load returns the view to update under key. Pending quote legs shadow
// earlier views only when withPending is set.
func (b *batch) load(ctx context.Context, key OrderKey, withPending bool) (*OrderView, error) {
	if withPending {
		if leg, ok := b.pending[key]; ok {
			delete(b.pending, key)
			return leg, nil
		}
	}
	if order, ok := b.orders[key]; ok {
		return order, nil
	}
	order, err := b.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", key.RequestID, err)
	}
	return order, nil
}

func (b *batch) update(ctx context.Context, key OrderKey, withPending bool, id cqrs.EventID, at time.Time, apply func(*OrderView)) error {
	order, err := b.load(ctx, key, withPending)
	if err != nil {
		return err
	}
	apply(order)
	order.UpdatedAt = at
	order.LastEventID = id
	b.stage(order)
	return nil
}

func (b *batch) orderPlaced(e *matching.OrderPlacedEvent) {
	b.stage(&OrderView{
		BookID:        e.BookID,
		RequestID:     e.RequestID,
		Client:        e.Client,
		EntryType:     e.EntryType,
		Side:          e.Side,
		Price:         e.Price,
		TimeInForce:   e.TimeInForce,
		Sizes:         matching.NewEntrySizes(e.Size),
		Status:        matching.EntryStatusNew,
		PlacedAt:      e.WhenHappened,
		PlacedEventID: e.EventIDValue,
		UpdatedAt:     e.WhenHappened,
		LastEventID:   e.EventIDValue,
	})
}

func (b *batch) massQuotePlaced(e *matching.MassQuotePlacedEvent) {
	b.flushPending()
	for _, leg := range e.Legs() {
		view := &OrderView{
			BookID:        e.BookID,
			RequestID:     leg.RequestID,
			Client:        leg.Client,
			IsQuote:       true,
			EntryType:     leg.EntryType,
			Side:          leg.Side,
			Price:         leg.Key.Price,
			TimeInForce:   leg.TimeInForce,
			Sizes:         leg.Sizes,
			Status:        leg.Status,
			PlacedAt:      e.WhenHappened,
			PlacedEventID: e.EventIDValue,
			UpdatedAt:     e.WhenHappened,
			LastEventID:   e.EventIDValue,
		}
		b.pending[view.Key()] = view
	}
}

func (b *batch) entryAdded(ctx context.Context, e *matching.EntryAddedToBookEvent) error {
	entry := e.Entry
	key := OrderKey{BookID: e.BookID, Client: entry.Client, RequestID: entry.RequestID, IsQuote: entry.IsQuote}
	return b.update(ctx, key, entry.IsQuote, e.EventIDValue, e.WhenHappened, func(o *OrderView) {
		o.Price = entry.Key.Price
		o.Sizes = entry.Sizes
		o.Status = entry.Status
		o.Resting = true
	})
}

func (b *batch) trade(ctx context.Context, e *matching.TradeEvent) error {
	for _, side := range []matching.TradeSideEntry{e.Aggressor, e.Passive} {
		key := OrderKey{BookID: e.BookID, Client: side.Client, RequestID: side.RequestID, IsQuote: side.IsQuote}
		err := b.update(ctx, key, side.IsQuote, e.EventIDValue, e.WhenHappened, func(o *OrderView) {
			o.Sizes = side.Sizes
			o.Status = side.Status
			if side.Status.IsFinal() {
				o.Resting = false
			}
		})
		if err != nil {
			return err
		}
	}

	b.trades = append(b.trades, &TradeView{
		BookID:             e.BookID,
		EventID:            e.EventIDValue,
		Price:              e.Price,
		Size:               e.Size,
		AggressorRequestID: e.Aggressor.RequestID,
		AggressorClient:    e.Aggressor.Client,
		AggressorSide:      e.Aggressor.Side,
		AggressorIsQuote:   e.Aggressor.IsQuote,
		PassiveRequestID:   e.Passive.RequestID,
		PassiveClient:      e.Passive.Client,
		PassiveIsQuote:     e.Passive.IsQuote,
		OccurredAt:         e.WhenHappened,
	})
	return nil
}

func (b *batch) orderCancelled(ctx context.Context, e *matching.OrderCancelledEvent) error {
	key := OrderKey{BookID: e.BookID, Client: e.Client, RequestID: e.RequestID, IsQuote: e.IsQuote}
	return b.update(ctx, key, e.IsQuote, e.EventIDValue, e.WhenHappened, func(o *OrderView) {
		o.Sizes = e.Sizes
		o.Status = e.Status
		o.CancelReason = e.Reason
		o.Resting = false
	})
}

// massQuoteCancelled never touches pending legs: it cancels the legs of the
// quote being replaced, or of the last committed one.
func (b *batch) massQuoteCancelled(ctx context.Context, e *matching.MassQuoteCancelledEvent) error {
	for _, leg := range e.Entries {
		key := OrderKey{BookID: e.BookID, Client: leg.Client, RequestID: leg.RequestID, IsQuote: true}
		err := b.update(ctx, key, false, e.EventIDValue, e.WhenHappened, func(o *OrderView) {
			o.Sizes = leg.Sizes
			o.Status = leg.Status
			o.CancelReason = e.Reason
			o.Resting = false
		})
		if err != nil {
			return err
		}
	}
	return nil
}
