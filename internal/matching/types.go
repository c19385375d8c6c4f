package matching

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// BookID identifies the instrument a set of books belongs to
type BookID string

// IsValid reports whether the id can be used as a book key
func (id BookID) IsValid() bool {
	s := string(id)
	return strings.TrimSpace(s) != "" && !strings.ContainsAny(s, "/ ")
}

// Client is the opaque identity of the party owning an entry
type Client struct {
	FirmID       string `json:"firm_id"`        // Member firm
	FirmClientID string `json:"firm_client_id"` // Client within the firm (may be empty)
}

// ClientRequestID is the requester's own identifier for a request
type ClientRequestID string

// Side represents entry side (buy/sell)
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the side an aggressor on s matches against
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// EntryType represents how an entry is priced
type EntryType string

const (
	EntryTypeLimit  EntryType = "LIMIT"
	EntryTypeMarket EntryType = "MARKET"
)

func (t EntryType) IsValid() bool {
	return t == EntryTypeLimit || t == EntryTypeMarket
}

// TimeInForce decides what happens to an unmatched remainder
type TimeInForce string

const (
	TimeInForceGoodTillCancel    TimeInForce = "GOOD_TILL_CANCEL"
	TimeInForceImmediateOrCancel TimeInForce = "IMMEDIATE_OR_CANCEL"
)

func (t TimeInForce) IsValid() bool {
	return t == TimeInForceGoodTillCancel || t == TimeInForceImmediateOrCancel
}

// EntryStatus represents entry status
type EntryStatus string

const (
	EntryStatusNew         EntryStatus = "NEW"
	EntryStatusPartialFill EntryStatus = "PARTIAL_FILL"
	EntryStatusFilled      EntryStatus = "FILLED"
	EntryStatusCancelled   EntryStatus = "CANCELLED"
)

// IsFinal reports whether no further change can happen to the entry
func (s EntryStatus) IsFinal() bool {
	return s == EntryStatusFilled || s == EntryStatusCancelled
}

// CancelReason represents entry cancellation reason
type CancelReason string

const (
	CancelReasonUponRequest        CancelReason = "CANCELLED_UPON_REQUEST"
	CancelReasonNoMoreMatch        CancelReason = "NO_MORE_MATCH"
	CancelReasonReplacedByNewQuote CancelReason = "REPLACED_BY_NEW_QUOTE"
)

// Price is an optional limit price in minimum units. The zero value has no
// price, which is how market entries are encoded.
type Price struct {
	value int64
	set   bool
}

// NewPrice returns a present price
func NewPrice(v int64) Price {
	return Price{value: v, set: true}
}

// NoPrice returns an absent price
func NoPrice() Price {
	return Price{}
}

// Value returns the price and whether it is present
func (p Price) Value() (int64, bool) {
	return p.value, p.set
}

// IsSet reports whether a price is present
func (p Price) IsSet() bool {
	return p.set
}

// Int64 returns the price, or 0 when absent
func (p Price) Int64() int64 {
	return p.value
}

func (p Price) String() string {
	if !p.set {
		return "MARKET"
	}
	return strconv.FormatInt(p.value, 10)
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(p.value, 10)), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Price{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = NewPrice(v)
	return nil
}
