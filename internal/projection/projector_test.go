package projection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

const bookID = matching.BookID("ABC-2024")

var (
	seller = matching.Client{FirmID: "firm1", FirmClientID: "c1"}
	buyer  = matching.Client{FirmID: "firm2", FirmClientID: "c2"}
	maker  = matching.Client{FirmID: "mm"}
)

// driver executes commands against one book and keeps every committed batch
type driver struct {
	t       *testing.T
	books   matching.Books
	when    time.Time
	batches [][]matching.Event
}

func newDriver(t *testing.T) *driver {
	d := &driver{
		t:     t,
		books: matching.NewBooks(bookID),
		when:  time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
	}
	d.run(matching.CreateBooksCommand{
		BookID:          bookID,
		BusinessDate:    time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		TradingStatuses: matching.TradingStatuses{Default: matching.TradingStatusOpenForTrading},
		WhenRequested:   d.when,
	})
	return d
}

func (d *driver) tick() time.Time {
	d.when = d.when.Add(time.Millisecond)
	return d.when
}

func (d *driver) run(cmd matching.Command) []matching.Event {
	d.t.Helper()
	result, err := cqrs.Execute[matching.Books](cmd, d.books)
	require.NoError(d.t, err)
	d.books = result.Aggregate
	d.batches = append(d.batches, result.Events)
	return result.Events
}

func (d *driver) limit(requestID string, client matching.Client, side matching.Side, size, price int64, tif matching.TimeInForce) []matching.Event {
	return d.run(matching.PlaceOrderCommand{
		BookID:        bookID,
		RequestID:     matching.ClientRequestID(requestID),
		Client:        client,
		EntryType:     matching.EntryTypeLimit,
		Side:          side,
		Price:         matching.NewPrice(price),
		TimeInForce:   tif,
		Size:          size,
		WhenRequested: d.tick(),
	})
}

func (d *driver) quote(bid, offer int64) []matching.Event {
	return d.run(matching.PlaceMassQuoteCommand{
		BookID:      bookID,
		QuoteID:     "q1",
		Client:      maker,
		TimeInForce: matching.TimeInForceGoodTillCancel,
		Entries: []matching.QuoteEntry{{
			ID:    "e1",
			Bid:   &matching.PriceWithSize{Price: bid, Size: 5},
			Offer: &matching.PriceWithSize{Price: offer, Size: 5},
		}},
		WhenRequested: d.tick(),
	})
}

func newTestProjector() *Projector {
	return NewProjector(NewMemoryOrderRepository(), NewMemoryTradeRepository(), nil)
}

func publishAll(t *testing.T, p *Projector, batches [][]matching.Event) {
	t.Helper()
	for _, batch := range batches {
		require.NoError(t, p.Publish(context.Background(), bookID, batch))
	}
}

func key(client matching.Client, requestID string) OrderKey {
	return OrderKey{BookID: bookID, Client: client, RequestID: matching.ClientRequestID(requestID)}
}

func legKey(client matching.Client, quoteID, entryID string, side matching.Side) OrderKey {
	return OrderKey{BookID: bookID, Client: client, RequestID: matching.QuoteLegRequestID(quoteID, entryID, side), IsQuote: true}
}

func TestProjector_OrdersAndTrades(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.limit("s1", seller, matching.SideSell, 6, 12, matching.TimeInForceGoodTillCancel)
	d.limit("s2", seller, matching.SideSell, 7, 13, matching.TimeInForceGoodTillCancel)
	d.limit("b1", buyer, matching.SideBuy, 10, 13, matching.TimeInForceGoodTillCancel)

	p := newTestProjector()
	publishAll(t, p, d.batches)

	b1, err := p.Order(ctx, key(buyer, "b1"))
	require.NoError(t, err)
	assert.Equal(t, matching.EntryStatusFilled, b1.Status)
	assert.Equal(t, matching.EntrySizes{Traded: 10}, b1.Sizes)
	assert.False(t, b1.Resting)

	s1, err := p.Order(ctx, key(seller, "s1"))
	require.NoError(t, err)
	assert.Equal(t, matching.EntryStatusFilled, s1.Status)
	assert.False(t, s1.Resting)

	s2, err := p.Order(ctx, key(seller, "s2"))
	require.NoError(t, err)
	assert.Equal(t, matching.EntryStatusPartialFill, s2.Status)
	assert.Equal(t, matching.EntrySizes{Available: 3, Traded: 4}, s2.Sizes)
	assert.True(t, s2.Resting)

	trades, err := p.Trades(ctx, bookID, 0, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, int64(12), trades[0].Price)
	assert.Equal(t, int64(6), trades[0].Size)
	assert.Equal(t, matching.ClientRequestID("s1"), trades[0].PassiveRequestID)
	assert.Equal(t, int64(13), trades[1].Price)
	assert.Equal(t, int64(4), trades[1].Size)
	assert.Equal(t, matching.SideBuy, trades[1].AggressorSide)

	tail, err := p.Trades(ctx, bookID, trades[1].EventID, 0)
	require.NoError(t, err)
	assert.Len(t, tail, 1)

	own, err := p.OrderTrades(ctx, key(seller, "s2"), 0)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, trades[1].EventID, own[0].EventID)
}

func TestProjector_Cancellations(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.limit("s1", seller, matching.SideSell, 3, 12, matching.TimeInForceGoodTillCancel)
	d.limit("b1", buyer, matching.SideBuy, 5, 12, matching.TimeInForceImmediateOrCancel)
	d.limit("b2", buyer, matching.SideBuy, 4, 10, matching.TimeInForceGoodTillCancel)
	d.run(matching.CancelOrderCommand{
		BookID:            bookID,
		RequestID:         "x1",
		OriginalRequestID: "b2",
		Client:            buyer,
		WhenRequested:     d.tick(),
	})

	p := newTestProjector()
	publishAll(t, p, d.batches)

	b1, err := p.Order(ctx, key(buyer, "b1"))
	require.NoError(t, err)
	assert.Equal(t, matching.EntryStatusCancelled, b1.Status)
	assert.Equal(t, matching.CancelReasonNoMoreMatch, b1.CancelReason)
	assert.Equal(t, matching.EntrySizes{Traded: 3, Cancelled: 2}, b1.Sizes)

	b2, err := p.Order(ctx, key(buyer, "b2"))
	require.NoError(t, err)
	assert.Equal(t, matching.EntryStatusCancelled, b2.Status)
	assert.Equal(t, matching.CancelReasonUponRequest, b2.CancelReason)
	assert.Equal(t, matching.EntrySizes{Cancelled: 4}, b2.Sizes)
	assert.False(t, b2.Resting)
}

// TestProjector_QuoteReplacement tests that a replacing quote reusing leg ids
// leaves the new legs resting
func TestProjector_QuoteReplacement(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.quote(10, 15)

	p := newTestProjector()
	publishAll(t, p, d.batches)

	bidKey := legKey(maker, "q1", "e1", matching.SideBuy)
	bid, err := p.Order(ctx, bidKey)
	require.NoError(t, err)
	assert.True(t, bid.IsQuote)
	assert.True(t, bid.Resting)
	assert.Equal(t, matching.NewPrice(10), bid.Price)

	events := d.quote(11, 14)
	require.NoError(t, p.Publish(ctx, bookID, events))

	bid, err = p.Order(ctx, bidKey)
	require.NoError(t, err)
	assert.Equal(t, matching.EntryStatusNew, bid.Status)
	assert.True(t, bid.Resting)
	assert.Equal(t, matching.NewPrice(11), bid.Price)
	assert.Empty(t, bid.CancelReason)

	d.run(matching.CancelMassQuoteCommand{
		BookID:        bookID,
		Client:        maker,
		WhenRequested: d.tick(),
	})
	require.NoError(t, p.Publish(ctx, bookID, d.batches[len(d.batches)-1]))

	bid, err = p.Order(ctx, bidKey)
	require.NoError(t, err)
	assert.Equal(t, matching.EntryStatusCancelled, bid.Status)
	assert.Equal(t, matching.CancelReasonUponRequest, bid.CancelReason)
	assert.False(t, bid.Resting)
}

func TestProjector_SequenceValidation(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.limit("s1", seller, matching.SideSell, 6, 12, matching.TimeInForceGoodTillCancel)
	d.limit("s2", seller, matching.SideSell, 7, 13, matching.TimeInForceGoodTillCancel)

	t.Run("first event must be the creation", func(t *testing.T) {
		p := newTestProjector()
		err := p.Publish(ctx, bookID, d.batches[1])
		assert.ErrorIs(t, err, ErrSequenceGap)
	})

	t.Run("gap is rejected", func(t *testing.T) {
		p := newTestProjector()
		require.NoError(t, p.Publish(ctx, bookID, d.batches[0]))
		err := p.Publish(ctx, bookID, d.batches[2])
		assert.ErrorIs(t, err, ErrSequenceGap)
	})

	t.Run("redelivery is rejected", func(t *testing.T) {
		p := newTestProjector()
		publishAll(t, p, d.batches)
		err := p.Publish(ctx, bookID, d.batches[1])
		assert.ErrorIs(t, err, ErrSequenceRegression)
	})
}

type fakeSource struct {
	batches [][]matching.Event
}

func (s *fakeSource) ListBooks(context.Context) ([]matching.BookID, error) {
	return []matching.BookID{bookID}, nil
}

func (s *fakeSource) ReadFrom(_ context.Context, _ matching.BookID, from cqrs.EventID) ([]matching.Event, error) {
	var out []matching.Event
	for _, batch := range s.batches {
		for _, evt := range batch {
			if evt.EventID() >= from {
				out = append(out, evt)
			}
		}
	}
	return out, nil
}

func TestProjector_Rebuild(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.limit("s1", seller, matching.SideSell, 6, 12, matching.TimeInForceGoodTillCancel)
	d.limit("b1", buyer, matching.SideBuy, 4, 12, matching.TimeInForceGoodTillCancel)

	p := newTestProjector()
	require.NoError(t, p.Publish(ctx, bookID, d.batches[0]))
	require.NoError(t, p.Rebuild(ctx, &fakeSource{batches: d.batches}))

	s1, err := p.Order(ctx, key(seller, "s1"))
	require.NoError(t, err)
	assert.Equal(t, matching.EntrySizes{Available: 2, Traded: 4}, s1.Sizes)

	// Rebuilding again finds nothing new
	require.NoError(t, p.Rebuild(ctx, &fakeSource{batches: d.batches}))
	trades, err := p.Trades(ctx, bookID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

// TestProjector_QuoteLegsKeptApart tests that a plain order reusing the
// request id of a resting quote leg keeps its own view
func TestProjector_QuoteLegsKeptApart(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.run(matching.PlaceMassQuoteCommand{
		BookID:        bookID,
		QuoteID:       "q1",
		Client:        maker,
		TimeInForce:   matching.TimeInForceGoodTillCancel,
		Entries:       []matching.QuoteEntry{{ID: "e1", Bid: &matching.PriceWithSize{Price: 8, Size: 3}}},
		WhenRequested: d.tick(),
	})
	legID := string(matching.QuoteLegRequestID("q1", "e1", matching.SideBuy))
	d.limit(legID, maker, matching.SideBuy, 5, 7, matching.TimeInForceGoodTillCancel)
	d.run(matching.CancelMassQuoteCommand{
		BookID:        bookID,
		Client:        maker,
		WhenRequested: d.tick(),
	})

	p := newTestProjector()
	publishAll(t, p, d.batches)

	order, err := p.Order(ctx, key(maker, legID))
	require.NoError(t, err)
	assert.False(t, order.IsQuote)
	assert.True(t, order.Resting)
	assert.Equal(t, matching.EntryStatusNew, order.Status)
	assert.Equal(t, matching.EntrySizes{Available: 5}, order.Sizes)
	assert.Equal(t, matching.NewPrice(7), order.Price)

	leg, err := p.Order(ctx, legKey(maker, "q1", "e1", matching.SideBuy))
	require.NoError(t, err)
	assert.True(t, leg.IsQuote)
	assert.False(t, leg.Resting)
	assert.Equal(t, matching.EntryStatusCancelled, leg.Status)
	assert.Equal(t, matching.EntrySizes{Cancelled: 3}, leg.Sizes)
}

// TestProjector_ReusedRequestID tests that the trades of an order exclude
// those of an earlier filled order placed under the same request id
func TestProjector_ReusedRequestID(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.limit("s1", seller, matching.SideSell, 2, 12, matching.TimeInForceGoodTillCancel)
	d.limit("b1", buyer, matching.SideBuy, 2, 12, matching.TimeInForceGoodTillCancel)

	p := newTestProjector()
	publishAll(t, p, d.batches)

	own, err := p.OrderTrades(ctx, key(buyer, "b1"), 0)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	events := d.limit("b1", buyer, matching.SideBuy, 3, 10, matching.TimeInForceGoodTillCancel)
	require.NoError(t, p.Publish(ctx, bookID, events))

	b1, err := p.Order(ctx, key(buyer, "b1"))
	require.NoError(t, err)
	assert.Equal(t, events[0].EventID(), b1.PlacedEventID)
	assert.Equal(t, matching.EntryStatusNew, b1.Status)
	assert.True(t, b1.Resting)

	own, err = p.OrderTrades(ctx, key(buyer, "b1"), 0)
	require.NoError(t, err)
	assert.Empty(t, own)

	_, err = p.OrderTrades(ctx, key(buyer, "b9"), 0)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

// failingOrderRepository fails every save while fail is set
type failingOrderRepository struct {
	OrderRepository
	fail bool
}

func (r *failingOrderRepository) Save(ctx context.Context, order *OrderView) error {
	if r.fail {
		return errors.New("disk full")
	}
	return r.OrderRepository.Save(ctx, order)
}

func TestProjector_FailedBatch(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	d.limit("s1", seller, matching.SideSell, 6, 12, matching.TimeInForceGoodTillCancel)
	d.limit("b1", buyer, matching.SideBuy, 4, 12, matching.TimeInForceGoodTillCancel)

	setup := func(t *testing.T) (*Projector, *failingOrderRepository) {
		orders := &failingOrderRepository{OrderRepository: NewMemoryOrderRepository()}
		p := NewProjector(orders, NewMemoryTradeRepository(), nil)
		publishAll(t, p, d.batches[:2])

		orders.fail = true
		require.Error(t, p.Publish(ctx, bookID, d.batches[2]))
		orders.fail = false
		return p, orders
	}

	t.Run("nothing of the batch is kept", func(t *testing.T) {
		p, orders := setup(t)

		last, ok, err := orders.LastEventID(ctx, bookID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, d.batches[1][len(d.batches[1])-1].EventID(), last)

		s1, err := p.Order(ctx, key(seller, "s1"))
		require.NoError(t, err)
		assert.Equal(t, matching.EntrySizes{Available: 6}, s1.Sizes)

		_, err = p.Order(ctx, key(buyer, "b1"))
		assert.ErrorIs(t, err, ErrOrderNotFound)

		trades, err := p.Trades(ctx, bookID, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, trades)

		// The same batch projects once the store recovers
		require.NoError(t, p.Publish(ctx, bookID, d.batches[2]))
		trades, err = p.Trades(ctx, bookID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, trades, 1)
	})

	t.Run("later batch without journal is a gap", func(t *testing.T) {
		p, _ := setup(t)
		events := newDriverFrom(t, d).limit("b2", buyer, matching.SideBuy, 1, 12, matching.TimeInForceGoodTillCancel)
		assert.ErrorIs(t, p.Publish(ctx, bookID, events), ErrSequenceGap)
	})

	t.Run("later batch catches up from the journal", func(t *testing.T) {
		p, _ := setup(t)
		next := newDriverFrom(t, d)
		events := next.limit("b2", buyer, matching.SideBuy, 1, 12, matching.TimeInForceGoodTillCancel)
		p.WithJournal(&fakeSource{batches: next.batches})

		require.NoError(t, p.Publish(ctx, bookID, events))

		s1, err := p.Order(ctx, key(seller, "s1"))
		require.NoError(t, err)
		assert.Equal(t, matching.EntrySizes{Available: 1, Traded: 5}, s1.Sizes)

		b1, err := p.Order(ctx, key(buyer, "b1"))
		require.NoError(t, err)
		assert.Equal(t, matching.EntryStatusFilled, b1.Status)

		trades, err := p.Trades(ctx, bookID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, trades, 2)
	})
}

// newDriverFrom continues from the state of d without sharing its batches
func newDriverFrom(t *testing.T, d *driver) *driver {
	return &driver{
		t:       t,
		books:   d.books,
		when:    d.when,
		batches: append([][]matching.Event(nil), d.batches...),
	}
}
