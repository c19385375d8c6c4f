package engine

import (
	"slices"

	"matching-core/internal/matching"
)

func cloneCommandExecResult(in *CommandExecResult) *CommandExecResult {
	if in == nil {
		return nil
	}

	out := &CommandExecResult{
		ErrorCode: in.ErrorCode,
		Err:       in.Err,
	}
	if in.Events != nil {
		out.Events = make([]matching.Event, 0, len(in.Events))
		for _, evt := range in.Events {
			out.Events = append(out.Events, cloneEvent(evt))
		}
	}
	if in.Books != nil {
		// Limit books are copy-on-write, so a value copy is enough
		books := *in.Books
		out.Books = &books
	}
	return out
}

func cloneEvent(evt matching.Event) matching.Event {
	switch e := evt.(type) {
	case *matching.BooksCreatedEvent:
		cp := *e
		return &cp
	case *matching.TradingStatusesUpdatedEvent:
		cp := *e
		return &cp
	case *matching.OrderPlacedEvent:
		cp := *e
		return &cp
	case *matching.EntryAddedToBookEvent:
		cp := *e
		return &cp
	case *matching.TradeEvent:
		cp := *e
		return &cp
	case *matching.OrderCancelledEvent:
		cp := *e
		return &cp
	case *matching.MassQuotePlacedEvent:
		cp := *e
		cp.Entries = make([]matching.QuoteEntry, len(e.Entries))
		for i, entry := range e.Entries {
			cp.Entries[i] = cloneQuoteEntry(entry)
		}
		return &cp
	case *matching.MassQuoteCancelledEvent:
		cp := *e
		cp.Entries = slices.Clone(e.Entries)
		return &cp
	default:
		return evt
	}
}

func cloneQuoteEntry(in matching.QuoteEntry) matching.QuoteEntry {
	out := in
	if in.Bid != nil {
		bid := *in.Bid
		out.Bid = &bid
	}
	if in.Offer != nil {
		offer := *in.Offer
		out.Offer = &offer
	}
	return out
}
