package api

import "time"

// ClientDTO identifies the requesting party
type ClientDTO struct {
	FirmID       string `json:"firm_id"`
	FirmClientID string `json:"firm_client_id,omitempty"`
}

// TradingStatusesDTO carries the status layers of a book
type TradingStatusesDTO struct {
	Default    string `json:"default"`
	Scheduled  string `json:"scheduled,omitempty"`
	FastMarket string `json:"fast_market,omitempty"`
	Manual     string `json:"manual,omitempty"`
}

// CreateBooksRequest represents the request body for creating a book
type CreateBooksRequest struct {
	BookID          string             `json:"book_id"`
	BusinessDate    string             `json:"business_date"` // YYYY-MM-DD
	TradingStatuses TradingStatusesDTO `json:"trading_statuses"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
}

// UpdateTradingStatusesRequest represents the request body for replacing status layers
type UpdateTradingStatusesRequest struct {
	TradingStatuses TradingStatusesDTO `json:"trading_statuses"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
}

// PlaceOrderRequest represents the request body for placing an order
type PlaceOrderRequest struct {
	RequestID      string    `json:"request_id,omitempty"` // Generated when empty
	Client         ClientDTO `json:"client"`
	EntryType      string    `json:"entry_type"`    // LIMIT or MARKET
	Side           string    `json:"side"`          // BUY or SELL
	Price          string    `json:"price"`         // Decimal string, empty for MARKET
	TimeInForce    string    `json:"time_in_force"` // GOOD_TILL_CANCEL or IMMEDIATE_OR_CANCEL
	Size           string    `json:"size"`          // Decimal string
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// PriceSizeDTO is one side of a quote entry
type PriceSizeDTO struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// QuoteEntryDTO is one two-sided or one-sided quote entry
type QuoteEntryDTO struct {
	ID    string        `json:"id"`
	Bid   *PriceSizeDTO `json:"bid,omitempty"`
	Offer *PriceSizeDTO `json:"offer,omitempty"`
}

// PlaceMassQuoteRequest represents the request body for placing a mass quote
type PlaceMassQuoteRequest struct {
	QuoteID        string          `json:"quote_id"`
	Client         ClientDTO       `json:"client"`
	TimeInForce    string          `json:"time_in_force"`
	Entries        []QuoteEntryDTO `json:"entries"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// SizesDTO is the size breakdown of an entry
type SizesDTO struct {
	Available string `json:"available"`
	Traded    string `json:"traded"`
	Cancelled string `json:"cancelled"`
}

// EntryDTO is one resting entry
type EntryDTO struct {
	RequestID     string    `json:"request_id"`
	Client        ClientDTO `json:"client"`
	EntryType     string    `json:"entry_type"`
	Side          string    `json:"side"`
	TimeInForce   string    `json:"time_in_force"`
	IsQuote       bool      `json:"is_quote"`
	Price         string    `json:"price,omitempty"`
	Sizes         SizesDTO  `json:"sizes"`
	Status        string    `json:"status"`
	WhenSubmitted time.Time `json:"when_submitted"`
	EventID       int64     `json:"event_id"`
}

// BookResponse represents the current state of a book
type BookResponse struct {
	BookID          string             `json:"book_id"`
	BusinessDate    string             `json:"business_date"`
	TradingStatus   string             `json:"trading_status"` // Effective status
	TradingStatuses TradingStatusesDTO `json:"trading_statuses"`
	LastEventID     int64              `json:"last_event_id"`
	Bids            []EntryDTO         `json:"bids"`
	Offers          []EntryDTO         `json:"offers"`
}

// TradeSideDTO is one side of a trade
type TradeSideDTO struct {
	RequestID string    `json:"request_id"`
	Client    ClientDTO `json:"client"`
	IsQuote   bool      `json:"is_quote"`
	Sizes     SizesDTO  `json:"sizes"`
	Status    string    `json:"status"`
}

// EventDTO is a committed event. Only the fields of its type are set.
type EventDTO struct {
	EventID      int64               `json:"event_id"`
	Type         string              `json:"type"`
	RequestID    string              `json:"request_id,omitempty"`
	QuoteID      string              `json:"quote_id,omitempty"`
	Client       *ClientDTO          `json:"client,omitempty"`
	EntryType    string              `json:"entry_type,omitempty"`
	Side         string              `json:"side,omitempty"`
	Price        string              `json:"price,omitempty"`
	Size         string              `json:"size,omitempty"`
	TimeInForce  string              `json:"time_in_force,omitempty"`
	Sizes        *SizesDTO           `json:"sizes,omitempty"`
	Status       string              `json:"status,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	Aggressor    *TradeSideDTO       `json:"aggressor,omitempty"`
	Passive      *TradeSideDTO       `json:"passive,omitempty"`
	Entries      []EntryDTO          `json:"entries,omitempty"`
	Quotes       []QuoteEntryDTO     `json:"quotes,omitempty"`
	Statuses     *TradingStatusesDTO `json:"trading_statuses,omitempty"`
	WhenHappened time.Time           `json:"when_happened"`
}

// CommandResponse lists the events a command committed
type CommandResponse struct {
	CommandID   string     `json:"command_id"`
	BookID      string     `json:"book_id"`
	LastEventID int64      `json:"last_event_id"`
	Events      []EventDTO `json:"events"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    string `json:"code"`            // Error code
	Message string `json:"message"`         // Error message
	Field   string `json:"field,omitempty"` // Offending field of an invalid command
}
