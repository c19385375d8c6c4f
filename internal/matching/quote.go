package matching

import (
	"fmt"
	"time"
)

// PriceWithSize is one leg of a quote entry
type PriceWithSize struct {
	Price int64 `json:"price"`
	Size  int64 `json:"size"`
}

// QuoteEntry is a two-sided quote. Either leg may be omitted, not both.
type QuoteEntry struct {
	ID    string         `json:"id"`
	Bid   *PriceWithSize `json:"bid,omitempty"`
	Offer *PriceWithSize `json:"offer,omitempty"`
}

// QuoteLegRequestID names the book entry created for one leg of a quote
func QuoteLegRequestID(quoteID, entryID string, side Side) ClientRequestID {
	return ClientRequestID(fmt.Sprintf("%s:%s:%s", quoteID, entryID, side))
}

// PlaceMassQuoteCommand replaces the client's quotes with a new set
type PlaceMassQuoteCommand struct {
	BookID        BookID
	QuoteID       string
	Client        Client
	TimeInForce   TimeInForce
	Entries       []QuoteEntry
	WhenRequested time.Time
}

func (c PlaceMassQuoteCommand) Decide(books Books) (Event, error) {
	if err := books.checkTarget(c.BookID); err != nil {
		return nil, err
	}
	if err := books.TradingStatuses.gate(CommandKindPlaceMassQuote); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	entries := make([]QuoteEntry, 0, len(c.Entries))
	for _, q := range c.Entries {
		entries = append(entries, q.clone())
	}
	return &MassQuotePlacedEvent{
		EventIDValue: books.LastEventID().Next(),
		BookID:       c.BookID,
		QuoteID:      c.QuoteID,
		Client:       c.Client,
		TimeInForce:  c.TimeInForce,
		Entries:      entries,
		WhenHappened: c.WhenRequested,
	}, nil
}

// Validate checks the quote without looking at the books. A quote must not
// cross itself: its highest bid stays below its lowest offer.
func (c PlaceMassQuoteCommand) Validate() error {
	switch {
	case c.QuoteID == "":
		return invalid("quote_id", "required")
	case c.Client.FirmID == "":
		return invalid("client.firm_id", "required")
	case !c.TimeInForce.IsValid():
		return invalid("time_in_force", "unknown time in force "+string(c.TimeInForce))
	case len(c.Entries) == 0:
		return invalid("entries", "at least one entry required")
	}

	var (
		seen             = make(map[string]struct{}, len(c.Entries))
		maxBid, minOffer int64
		hasBid, hasOffer bool
	)
	for i, q := range c.Entries {
		field := fmt.Sprintf("entries[%d]", i)
		if q.ID == "" {
			return invalid(field+".id", "required")
		}
		if _, dup := seen[q.ID]; dup {
			return invalid(field+".id", "duplicate "+q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Bid == nil && q.Offer == nil {
			return invalid(field, "bid or offer required")
		}
		if q.Bid != nil {
			if err := q.Bid.validate(field + ".bid"); err != nil {
				return err
			}
			if !hasBid || q.Bid.Price > maxBid {
				maxBid, hasBid = q.Bid.Price, true
			}
		}
		if q.Offer != nil {
			if err := q.Offer.validate(field + ".offer"); err != nil {
				return err
			}
			if !hasOffer || q.Offer.Price < minOffer {
				minOffer, hasOffer = q.Offer.Price, true
			}
		}
	}
	if hasBid && hasOffer && maxBid >= minOffer {
		return invalid("entries", fmt.Sprintf("bid %d crosses offer %d", maxBid, minOffer))
	}
	return nil
}

func (p PriceWithSize) validate(field string) error {
	if p.Price <= 0 {
		return invalid(field+".price", "must be positive")
	}
	if p.Size <= 0 {
		return invalid(field+".size", "must be positive")
	}
	return nil
}

func (q QuoteEntry) clone() QuoteEntry {
	out := QuoteEntry{ID: q.ID}
	if q.Bid != nil {
		bid := *q.Bid
		out.Bid = &bid
	}
	if q.Offer != nil {
		offer := *q.Offer
		out.Offer = &offer
	}
	return out
}

// CancelMassQuoteCommand cancels every resting quote entry of the client
type CancelMassQuoteCommand struct {
	BookID        BookID
	RequestID     ClientRequestID
	Client        Client
	WhenRequested time.Time
}

func (c CancelMassQuoteCommand) Decide(books Books) (Event, error) {
	if err := books.checkTarget(c.BookID); err != nil {
		return nil, err
	}
	if err := books.TradingStatuses.gate(CommandKindCancelMassQuote); err != nil {
		return nil, err
	}
	if c.Client.FirmID == "" {
		return nil, invalid("client.firm_id", "required")
	}
	resting := books.Quotes(c.Client)
	if len(resting) == 0 {
		return nil, fmt.Errorf("%w: no quotes for %s", ErrEntryNotFound, c.Client.FirmID)
	}
	return newMassQuoteCancelledEvent(books.LastEventID().Next(), c.BookID, c.Client, resting, CancelReasonUponRequest, c.WhenRequested), nil
}
