package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-core/internal/cqrs"
)

func quote(quoteID string, client Client, entries ...QuoteEntry) PlaceMassQuoteCommand {
	return PlaceMassQuoteCommand{
		BookID:        testBookID,
		QuoteID:       quoteID,
		Client:        client,
		TimeInForce:   TimeInForceGoodTillCancel,
		Entries:       entries,
		WhenRequested: testStart.Add(1e9),
	}
}

func twoSided(id string, bid, bidSize, offer, offerSize int64) QuoteEntry {
	return QuoteEntry{
		ID:    id,
		Bid:   &PriceWithSize{Price: bid, Size: bidSize},
		Offer: &PriceWithSize{Price: offer, Size: offerSize},
	}
}

// TestMassQuote_Rests tests that non-crossing legs rest as quote entries
func TestMassQuote_Rests(t *testing.T) {
	books := openBooks(t)
	result := mustExecute(t, books, quote("q1", firm1, twoSided("e1", 10, 5, 12, 5), twoSided("e2", 9, 7, 13, 7)))

	types := make([]string, 0, len(result.Events))
	for _, evt := range result.Events {
		types = append(types, evt.EventType())
	}
	assert.Equal(t, []string{
		EventTypeMassQuotePlaced,
		EventTypeEntryAddedToBook, EventTypeEntryAddedToBook,
		EventTypeEntryAddedToBook, EventTypeEntryAddedToBook,
	}, types)

	bids := result.Aggregate.BuyLimitBook.Entries()
	require.Len(t, bids, 2)
	assert.Equal(t, QuoteLegRequestID("q1", "e1", SideBuy), bids[0].RequestID)
	assert.True(t, bids[0].IsQuote)
	assert.Equal(t, EntryTypeLimit, bids[0].EntryType)
	assert.Len(t, result.Aggregate.Quotes(firm1), 4)
	requireConsistent(t, result.Aggregate)
}

// TestMassQuote_LegsMatch tests each leg resolves against the book left by the previous one
func TestMassQuote_LegsMatch(t *testing.T) {
	c := newClock()
	books, keys := placePassives(t, c, []passiveOrder{{SideSell, 4, 20}})

	cmd := quote("q1", firm2,
		QuoteEntry{ID: "e1", Bid: &PriceWithSize{Price: 21, Size: 2}},
		QuoteEntry{ID: "e2", Bid: &PriceWithSize{Price: 20, Size: 3}},
	)
	result := mustExecute(t, books, cmd)

	require.Len(t, result.Events, 4)
	trade1 := result.Events[1].(*TradeEvent)
	assert.Equal(t, keys[0], trade1.Passive.Key())
	assert.Equal(t, int64(2), trade1.Size)
	assert.Equal(t, int64(20), trade1.Price)
	assert.True(t, trade1.Aggressor.IsQuote)
	assert.Equal(t, EntryStatusFilled, trade1.Aggressor.Status)
	assert.Equal(t, EntryStatusPartialFill, trade1.Passive.Status)

	// The second leg only finds what the first one left.
	trade2 := result.Events[2].(*TradeEvent)
	assert.Equal(t, keys[0], trade2.Passive.Key())
	assert.Equal(t, int64(2), trade2.Size)
	assert.Equal(t, EntryStatusFilled, trade2.Passive.Status)
	assert.Equal(t, QuoteLegRequestID("q1", "e2", SideBuy), trade2.Aggressor.RequestID)

	rested := result.Events[3].(*EntryAddedToBookEvent)
	assert.Equal(t, EntrySizes{Available: 1, Traded: 2}, rested.Entry.Sizes)
	assert.True(t, rested.Entry.IsQuote)

	assert.Equal(t, 1, result.Aggregate.BuyLimitBook.Len())
	assert.Zero(t, result.Aggregate.SellLimitBook.Len())
	for i, evt := range result.Events {
		assert.Equal(t, result.Events[0].EventID()+cqrs.EventID(i), evt.EventID())
	}
	requireConsistent(t, result.Aggregate)
}

// TestMassQuote_Replaces tests a new quote cancels the client's previous quote entries first
func TestMassQuote_Replaces(t *testing.T) {
	books := openBooks(t)
	books = mustExecute(t, books, quote("q1", firm1, twoSided("e1", 10, 5, 12, 5))).Aggregate
	books = mustExecute(t, books, quote("f2", firm2, twoSided("e1", 9, 1, 14, 1))).Aggregate

	next := quote("q2", firm1, twoSided("e1", 11, 2, 13, 2))
	next.WhenRequested = next.WhenRequested.Add(1e9)
	result := mustExecute(t, books, next)

	require.GreaterOrEqual(t, len(result.Events), 2)
	replaced, ok := result.Events[1].(*MassQuoteCancelledEvent)
	require.True(t, ok)
	assert.Equal(t, CancelReasonReplacedByNewQuote, replaced.Reason)
	require.Len(t, replaced.Entries, 2)
	for _, e := range replaced.Entries {
		assert.Equal(t, EntryStatusCancelled, e.Status)
		assert.Equal(t, EntrySizes{Cancelled: 5}, e.Sizes)
	}

	quotes := result.Aggregate.Quotes(firm1)
	require.Len(t, quotes, 2)
	for _, q := range quotes {
		assert.Contains(t, []ClientRequestID{
			QuoteLegRequestID("q2", "e1", SideBuy),
			QuoteLegRequestID("q2", "e1", SideSell),
		}, q.RequestID)
	}
	assert.Len(t, result.Aggregate.Quotes(firm2), 2)
}

func TestCancelMassQuote(t *testing.T) {
	books := openBooks(t)
	books = mustExecute(t, books, quote("q1", firm1, twoSided("e1", 10, 5, 12, 5))).Aggregate

	cancel := CancelMassQuoteCommand{BookID: testBookID, RequestID: "c1", Client: firm1, WhenRequested: testStart.Add(2e9)}
	result := mustExecute(t, books, cancel)
	require.Len(t, result.Events, 1)
	evt := result.Events[0].(*MassQuoteCancelledEvent)
	assert.Equal(t, CancelReasonUponRequest, evt.Reason)
	assert.Len(t, evt.Entries, 2)
	assert.Empty(t, result.Aggregate.Quotes(firm1))

	_, err := cqrs.Execute[Books](cancel, result.Aggregate)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestMassQuote_Validation(t *testing.T) {
	books := openBooks(t)
	tests := []struct {
		name  string
		cmd   PlaceMassQuoteCommand
		field string
	}{
		{"missing quote id", quote("", firm1, twoSided("e1", 10, 1, 12, 1)), "quote_id"},
		{"no entries", quote("q1", firm1), "entries"},
		{"empty entry", quote("q1", firm1, QuoteEntry{ID: "e1"}), "entries[0]"},
		{"duplicate entry id", quote("q1", firm1, twoSided("e1", 10, 1, 12, 1), twoSided("e1", 9, 1, 13, 1)), "entries[1].id"},
		{"zero size", quote("q1", firm1, twoSided("e1", 10, 0, 12, 1)), "entries[0].bid.size"},
		{"zero price", quote("q1", firm1, twoSided("e1", 10, 1, 0, 1)), "entries[0].offer.price"},
		{"self crossing", quote("q1", firm1, twoSided("e1", 10, 1, 12, 1), twoSided("e2", 12, 1, 14, 1)), "entries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := cqrs.Execute[Books](tt.cmd, books)
			var invalidErr *InvalidCommandError
			require.ErrorAs(t, err, &invalidErr)
			assert.Equal(t, tt.field, invalidErr.Field)
			assert.Equal(t, books, result.Aggregate)
		})
	}
}
