package api

import (
	"matching-core/internal/engine"
	"matching-core/internal/matching"
	"matching-core/internal/symbolspec"
)

const businessDateLayout = "2006-01-02"

func clientDTO(c matching.Client) ClientDTO {
	return ClientDTO{FirmID: c.FirmID, FirmClientID: c.FirmClientID}
}

func (d ClientDTO) toClient() matching.Client {
	return matching.Client{FirmID: d.FirmID, FirmClientID: d.FirmClientID}
}

func statusesDTO(t matching.TradingStatuses) TradingStatusesDTO {
	return TradingStatusesDTO{
		Default:    string(t.Default),
		Scheduled:  string(t.Scheduled),
		FastMarket: string(t.FastMarket),
		Manual:     string(t.Manual),
	}
}

func (d TradingStatusesDTO) toStatuses() matching.TradingStatuses {
	return matching.TradingStatuses{
		Default:    matching.TradingStatus(d.Default),
		Scheduled:  matching.TradingStatus(d.Scheduled),
		FastMarket: matching.TradingStatus(d.FastMarket),
		Manual:     matching.TradingStatus(d.Manual),
	}
}

func formatPrice(spec symbolspec.Spec, p matching.Price) string {
	if v, ok := p.Value(); ok {
		return spec.FormatPrice(v)
	}
	return ""
}

func sizesDTO(spec symbolspec.Spec, s matching.EntrySizes) SizesDTO {
	return SizesDTO{
		Available: spec.FormatSize(s.Available),
		Traded:    spec.FormatSize(s.Traded),
		Cancelled: spec.FormatSize(s.Cancelled),
	}
}

func entryDTO(spec symbolspec.Spec, e matching.BookEntry) EntryDTO {
	return EntryDTO{
		RequestID:     string(e.RequestID),
		Client:        clientDTO(e.Client),
		EntryType:     string(e.EntryType),
		Side:          string(e.Side),
		TimeInForce:   string(e.TimeInForce),
		IsQuote:       e.IsQuote,
		Price:         formatPrice(spec, e.Key.Price),
		Sizes:         sizesDTO(spec, e.Sizes),
		Status:        string(e.Status),
		WhenSubmitted: e.Key.WhenSubmitted,
		EventID:       int64(e.Key.EventID),
	}
}

func tradeSideEntryDTO(spec symbolspec.Spec, t matching.TradeSideEntry) EntryDTO {
	return EntryDTO{
		RequestID:     string(t.RequestID),
		Client:        clientDTO(t.Client),
		EntryType:     string(t.EntryType),
		Side:          string(t.Side),
		TimeInForce:   string(t.TimeInForce),
		IsQuote:       t.IsQuote,
		Price:         formatPrice(spec, t.Price),
		Sizes:         sizesDTO(spec, t.Sizes),
		Status:        string(t.Status),
		WhenSubmitted: t.WhenSubmitted,
		EventID:       int64(t.EventID),
	}
}

func tradeSideDTO(spec symbolspec.Spec, t matching.TradeSideEntry) *TradeSideDTO {
	return &TradeSideDTO{
		RequestID: string(t.RequestID),
		Client:    clientDTO(t.Client),
		IsQuote:   t.IsQuote,
		Sizes:     sizesDTO(spec, t.Sizes),
		Status:    string(t.Status),
	}
}

func quoteEntryDTO(spec symbolspec.Spec, q matching.QuoteEntry) QuoteEntryDTO {
	out := QuoteEntryDTO{ID: q.ID}
	if q.Bid != nil {
		out.Bid = &PriceSizeDTO{Price: spec.FormatPrice(q.Bid.Price), Size: spec.FormatSize(q.Bid.Size)}
	}
	if q.Offer != nil {
		out.Offer = &PriceSizeDTO{Price: spec.FormatPrice(q.Offer.Price), Size: spec.FormatSize(q.Offer.Size)}
	}
	return out
}

func bookResponse(spec symbolspec.Spec, books matching.Books) BookResponse {
	resp := BookResponse{
		BookID:          string(books.BookID),
		BusinessDate:    books.BusinessDate.Format(businessDateLayout),
		TradingStatus:   string(books.TradingStatuses.EffectiveStatus()),
		TradingStatuses: statusesDTO(books.TradingStatuses),
		LastEventID:     int64(books.LastEventID()),
		Bids:            make([]EntryDTO, 0, books.BuyLimitBook.Len()),
		Offers:          make([]EntryDTO, 0, books.SellLimitBook.Len()),
	}
	for _, e := range books.BuyLimitBook.Entries() {
		resp.Bids = append(resp.Bids, entryDTO(spec, e))
	}
	for _, e := range books.SellLimitBook.Entries() {
		resp.Offers = append(resp.Offers, entryDTO(spec, e))
	}
	return resp
}

func eventDTO(spec symbolspec.Spec, evt matching.Event) EventDTO {
	out := EventDTO{EventID: int64(evt.EventID()), Type: evt.EventType()}

	switch e := evt.(type) {
	case *matching.BooksCreatedEvent:
		statuses := statusesDTO(e.TradingStatuses)
		out.Statuses = &statuses
		out.WhenHappened = e.WhenHappened
	case *matching.TradingStatusesUpdatedEvent:
		statuses := statusesDTO(e.TradingStatuses)
		out.Statuses = &statuses
		out.WhenHappened = e.WhenHappened
	case *matching.OrderPlacedEvent:
		client := clientDTO(e.Client)
		out.RequestID = string(e.RequestID)
		out.Client = &client
		out.EntryType = string(e.EntryType)
		out.Side = string(e.Side)
		out.Price = formatPrice(spec, e.Price)
		out.Size = spec.FormatSize(e.Size)
		out.TimeInForce = string(e.TimeInForce)
		out.WhenHappened = e.WhenHappened
	case *matching.EntryAddedToBookEvent:
		entry := entryDTO(spec, e.Entry)
		out.RequestID = entry.RequestID
		out.Client = &entry.Client
		out.Side = entry.Side
		out.Price = entry.Price
		out.Sizes = &entry.Sizes
		out.Status = entry.Status
		out.WhenHappened = e.WhenHappened
	case *matching.TradeEvent:
		out.Price = spec.FormatPrice(e.Price)
		out.Size = spec.FormatSize(e.Size)
		out.Aggressor = tradeSideDTO(spec, e.Aggressor)
		out.Passive = tradeSideDTO(spec, e.Passive)
		out.WhenHappened = e.WhenHappened
	case *matching.OrderCancelledEvent:
		client := clientDTO(e.Client)
		sizes := sizesDTO(spec, e.Sizes)
		out.RequestID = string(e.RequestID)
		out.Client = &client
		out.Side = string(e.Side)
		out.Price = formatPrice(spec, e.Key.Price)
		out.Sizes = &sizes
		out.Status = string(e.Status)
		out.Reason = string(e.Reason)
		out.WhenHappened = e.WhenHappened
	case *matching.MassQuotePlacedEvent:
		client := clientDTO(e.Client)
		out.QuoteID = e.QuoteID
		out.Client = &client
		out.TimeInForce = string(e.TimeInForce)
		for _, q := range e.Entries {
			out.Quotes = append(out.Quotes, quoteEntryDTO(spec, q))
		}
		out.WhenHappened = e.WhenHappened
	case *matching.MassQuoteCancelledEvent:
		client := clientDTO(e.Client)
		out.Client = &client
		out.Reason = string(e.Reason)
		for _, entry := range e.Entries {
			out.Entries = append(out.Entries, tradeSideEntryDTO(spec, entry))
		}
		out.WhenHappened = e.WhenHappened
	}
	return out
}

func commandResponse(commandID string, spec symbolspec.Spec, bookID matching.BookID, result *engine.CommandExecResult) CommandResponse {
	resp := CommandResponse{
		CommandID: commandID,
		BookID:    string(bookID),
		Events:    make([]EventDTO, 0, len(result.Events)),
	}
	if result.Books != nil {
		resp.LastEventID = int64(result.Books.LastEventID())
	}
	for _, evt := range result.Events {
		resp.Events = append(resp.Events, eventDTO(spec, evt))
	}
	return resp
}
