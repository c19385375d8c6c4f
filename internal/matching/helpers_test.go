package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matching-core/internal/cqrs"
)

var (
	testBookID = BookID("ABC-2024")
	testDate   = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	testStart  = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	firm1 = Client{FirmID: "firm1", FirmClientID: "client1"}
	firm2 = Client{FirmID: "firm2", FirmClientID: "client2"}
)

// clock hands out strictly increasing request times
type clock struct {
	now time.Time
}

func newClock() *clock {
	return &clock{now: testStart}
}

func (c *clock) tick() time.Time {
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func mustExecute(t *testing.T, books Books, cmd Command) cqrs.Result[Books] {
	t.Helper()
	result, err := cqrs.Execute[Books](cmd, books)
	require.NoError(t, err)
	return result
}

func openBooks(t *testing.T) Books {
	t.Helper()
	return booksWithStatus(t, TradingStatusOpenForTrading)
}

func booksWithStatus(t *testing.T, status TradingStatus) Books {
	t.Helper()
	result := mustExecute(t, NewBooks(testBookID), CreateBooksCommand{
		BookID:          testBookID,
		BusinessDate:    testDate,
		TradingStatuses: TradingStatuses{Default: status},
		WhenRequested:   testStart,
	})
	return result.Aggregate
}

func limitOrder(requestID string, client Client, side Side, tif TimeInForce, size, price int64, when time.Time) PlaceOrderCommand {
	return PlaceOrderCommand{
		BookID:        testBookID,
		RequestID:     ClientRequestID(requestID),
		Client:        client,
		EntryType:     EntryTypeLimit,
		Side:          side,
		Price:         NewPrice(price),
		TimeInForce:   tif,
		Size:          size,
		WhenRequested: when,
	}
}

func marketOrder(requestID string, client Client, side Side, size int64, when time.Time) PlaceOrderCommand {
	return PlaceOrderCommand{
		BookID:        testBookID,
		RequestID:     ClientRequestID(requestID),
		Client:        client,
		EntryType:     EntryTypeMarket,
		Side:          side,
		TimeInForce:   TimeInForceImmediateOrCancel,
		Size:          size,
		WhenRequested: when,
	}
}

// requireConsistent checks the structural invariants of a snapshot
func requireConsistent(t *testing.T, books Books) {
	t.Helper()
	for _, side := range []Side{SideBuy, SideSell} {
		book := books.LimitBook(side)
		require.Equal(t, side, book.Side())
		entries := book.Entries()
		for i, e := range entries {
			require.Equal(t, side, e.Side)
			require.True(t, e.IsActive(), "resting entry %s is %s", e.RequestID, e.Status)
			require.LessOrEqual(t, e.Key.EventID, books.LastEventID())
			if i > 0 {
				require.Negative(t, PriorityFor(side)(entries[i-1].Key, e.Key))
			}
		}
	}
}
