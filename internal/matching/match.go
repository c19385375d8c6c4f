package matching

import (
	"time"

	"matching-core/internal/cqrs"
)

// matcher resolves aggressors against a working copy of the books and collects
// the follow-on events in the order their ids were taken.
type matcher struct {
	bookID BookID
	when   time.Time
	ids    *cqrs.Sequence
	events []Event
}

func newMatcher(bookID BookID, when time.Time, ids *cqrs.Sequence) *matcher {
	return &matcher{bookID: bookID, when: when, ids: ids}
}

// emit runs the event on the working copy and records it
func (m *matcher) emit(books Books, evt followOn) (Books, error) {
	next, err := evt.apply(books)
	if err != nil {
		return books, err
	}
	m.events = append(m.events, evt)
	return next, nil
}

// resolve matches the aggressor against the opposite side from the best entry
// down, then rests or cancels whatever is left.
func (m *matcher) resolve(books Books, aggressor BookEntry) (Books, error) {
	for _, passive := range books.LimitBook(aggressor.Side.Opposite()).Entries() {
		if aggressor.Sizes.Available == 0 || !crosses(aggressor, passive) {
			break
		}
		size := min(aggressor.Sizes.Available, passive.Sizes.Available)

		var err error
		if aggressor, err = aggressor.Traded(size); err != nil {
			return books, err
		}
		if passive, err = passive.Traded(size); err != nil {
			return books, err
		}
		trade := &TradeEvent{
			EventIDValue: m.ids.Next(),
			BookID:       m.bookID,
			Size:         size,
			Price:        passive.Key.Price.Int64(),
			Aggressor:    aggressor.ToTradeSideEntry(),
			Passive:      passive.ToTradeSideEntry(),
			WhenHappened: m.when,
		}
		if books, err = m.emit(books, trade); err != nil {
			return books, err
		}
	}

	if aggressor.Sizes.Available == 0 {
		return books, nil
	}

	switch aggressor.TimeInForce {
	case TimeInForceImmediateOrCancel:
		return m.emit(books, aggressor.ToOrderCancelledEvent(m.ids.Next(), m.bookID, m.when, CancelReasonNoMoreMatch))
	case TimeInForceGoodTillCancel:
		if !aggressor.Key.Price.IsSet() {
			return books, cqrs.Violation("market entry %s cannot rest", aggressor.RequestID)
		}
		id := m.ids.Next()
		return m.emit(books, &EntryAddedToBookEvent{
			EventIDValue: id,
			BookID:       m.bookID,
			Entry:        aggressor.WithKey(aggressor.Key.Price, m.when, id),
			WhenHappened: m.when,
		})
	default:
		return books, cqrs.Violation("entry %s has time in force %q", aggressor.RequestID, aggressor.TimeInForce)
	}
}

// crosses reports whether the aggressor may trade with the passive entry. A
// missing price on either side always crosses.
func crosses(aggressor, passive BookEntry) bool {
	ap, ok := aggressor.Key.Price.Value()
	if !ok {
		return true
	}
	pp, ok := passive.Key.Price.Value()
	if !ok {
		return true
	}
	if aggressor.Side == SideBuy {
		return ap >= pp
	}
	return ap <= pp
}
