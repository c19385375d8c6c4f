package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

var (
	testDate  = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	testStart = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	seller    = matching.Client{FirmID: "firm1", FirmClientID: "c1"}
	buyer     = matching.Client{FirmID: "firm2", FirmClientID: "c2"}
)

// session is one book driven through a short trading session. batches holds
// the committed events of each command, creation included.
type session struct {
	bookID  matching.BookID
	batches [][]matching.Event
	states  []matching.Books
}

func (s session) events() []matching.Event {
	var out []matching.Event
	for _, batch := range s.batches {
		out = append(out, batch...)
	}
	return out
}

func (s session) final() matching.Books {
	return s.states[len(s.states)-1]
}

func runSession(t *testing.T, bookID matching.BookID) session {
	t.Helper()
	when := testStart
	tick := func() time.Time {
		when = when.Add(time.Millisecond)
		return when
	}
	limit := func(requestID string, client matching.Client, side matching.Side, size, price int64) matching.Command {
		return matching.PlaceOrderCommand{
			BookID:        bookID,
			RequestID:     matching.ClientRequestID(requestID),
			Client:        client,
			EntryType:     matching.EntryTypeLimit,
			Side:          side,
			Price:         matching.NewPrice(price),
			TimeInForce:   matching.TimeInForceGoodTillCancel,
			Size:          size,
			WhenRequested: tick(),
		}
	}

	commands := []matching.Command{
		matching.CreateBooksCommand{
			BookID:          bookID,
			BusinessDate:    testDate,
			TradingStatuses: matching.TradingStatuses{Default: matching.TradingStatusOpenForTrading},
			WhenRequested:   testStart,
		},
		limit("s1", seller, matching.SideSell, 6, 12),
		limit("s2", seller, matching.SideSell, 7, 13),
		limit("b1", buyer, matching.SideBuy, 10, 13),
		matching.PlaceMassQuoteCommand{
			BookID:      bookID,
			QuoteID:     "q1",
			Client:      buyer,
			TimeInForce: matching.TimeInForceGoodTillCancel,
			Entries: []matching.QuoteEntry{{
				ID:    "e1",
				Bid:   &matching.PriceWithSize{Price: 10, Size: 5},
				Offer: &matching.PriceWithSize{Price: 15, Size: 5},
			}},
			WhenRequested: tick(),
		},
	}

	s := session{bookID: bookID}
	books := matching.NewBooks(bookID)
	for _, cmd := range commands {
		result, err := cqrs.Execute[matching.Books](cmd, books)
		require.NoError(t, err)
		books = result.Aggregate
		s.batches = append(s.batches, result.Events)
		s.states = append(s.states, books)
	}
	return s
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func journal(t *testing.T, store EventStore, s session) {
	t.Helper()
	for _, batch := range s.batches {
		require.NoError(t, store.Append(context.Background(), s.bookID, batch))
	}
}
