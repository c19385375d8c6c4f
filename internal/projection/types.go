package projection

import (
	"time"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
)

// OrderKey identifies an order view. Request ids are only unique per client
// within a book, and quote legs live apart from plain orders.
type OrderKey struct {
	BookID    matching.BookID
	Client    matching.Client
	RequestID matching.ClientRequestID
	IsQuote   bool
}

// OrderView is the read model of one order or quote leg
type OrderView struct {
	BookID        matching.BookID
	RequestID     matching.ClientRequestID
	Client        matching.Client
	IsQuote       bool
	EntryType     matching.EntryType
	Side          matching.Side
	Price         matching.Price
	TimeInForce   matching.TimeInForce
	Sizes         matching.EntrySizes
	Status        matching.EntryStatus
	Resting       bool
	CancelReason  matching.CancelReason // Set once cancelled
	PlacedAt      time.Time
	PlacedEventID cqrs.EventID // Event that placed this incarnation of the request id
	UpdatedAt     time.Time
	LastEventID   cqrs.EventID
}

// Key returns the key the view is stored under
func (o *OrderView) Key() OrderKey {
	return OrderKey{BookID: o.BookID, Client: o.Client, RequestID: o.RequestID, IsQuote: o.IsQuote}
}

// TradeView is the read model of one trade
type TradeView struct {
	BookID             matching.BookID
	EventID            cqrs.EventID
	Price              int64
	Size               int64
	AggressorRequestID matching.ClientRequestID
	AggressorClient    matching.Client
	AggressorSide      matching.Side
	AggressorIsQuote   bool
	PassiveRequestID   matching.ClientRequestID
	PassiveClient      matching.Client
	PassiveIsQuote     bool
	OccurredAt         time.Time
}

// Involves reports whether the order identified by key took part in the trade
func (t *TradeView) Involves(key OrderKey) bool {
	if t.BookID != key.BookID {
		return false
	}
	return (t.AggressorClient == key.Client && t.AggressorRequestID == key.RequestID && t.AggressorIsQuote == key.IsQuote) ||
		(t.PassiveClient == key.Client && t.PassiveRequestID == key.RequestID && t.PassiveIsQuote == key.IsQuote)
}

func cloneOrderView(o *OrderView) *OrderView {
	if o == nil {
		return nil
	}
	cp := *o
	return &cp
}

func cloneOrderViews(in []*OrderView) []*OrderView {
	out := make([]*OrderView, len(in))
	for i, o := range in {
		out[i] = cloneOrderView(o)
	}
	return out
}

func cloneTradeView(t *TradeView) *TradeView {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func cloneTradeViews(in []*TradeView) []*TradeView {
	out := make([]*TradeView, len(in))
	for i, t := range in {
		out[i] = cloneTradeView(t)
	}
	return out
}
