package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"matching-core/internal/cqrs"
	"matching-core/internal/matching"
	"matching-core/internal/projection"
	"matching-core/internal/symbolspec"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ReadModel is what the query handlers need from the projection
type ReadModel interface {
	Order(ctx context.Context, key projection.OrderKey) (*projection.OrderView, error)
	OrderTrades(ctx context.Context, key projection.OrderKey, limit int) ([]*projection.TradeView, error)
	Trades(ctx context.Context, bookID matching.BookID, from cqrs.EventID, limit int) ([]*projection.TradeView, error)
}

// OrderViewResponse is the projected state of one order or quote leg
type OrderViewResponse struct {
	BookID        string     `json:"book_id"`
	RequestID     string     `json:"request_id"`
	Client        ClientDTO  `json:"client"`
	IsQuote       bool       `json:"is_quote"`
	EntryType     string     `json:"entry_type"`
	Side          string     `json:"side"`
	Price         string     `json:"price,omitempty"`
	TimeInForce   string     `json:"time_in_force"`
	Sizes         SizesDTO   `json:"sizes"`
	Status        string     `json:"status"`
	Resting       bool       `json:"resting"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	PlacedAt      time.Time  `json:"placed_at"`
	PlacedEventID int64      `json:"placed_event_id"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastEventID   int64      `json:"last_event_id"`
	Trades        []TradeDTO `json:"trades"`
}

// TradeDTO is one projected trade
type TradeDTO struct {
	EventID            int64     `json:"event_id"`
	Price              string    `json:"price"`
	Size               string    `json:"size"`
	AggressorRequestID string    `json:"aggressor_request_id"`
	AggressorClient    ClientDTO `json:"aggressor_client"`
	AggressorSide      string    `json:"aggressor_side"`
	PassiveRequestID   string    `json:"passive_request_id"`
	PassiveClient      ClientDTO `json:"passive_client"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// TradesResponse is a page of trades of a book
type TradesResponse struct {
	BookID string     `json:"book_id"`
	Trades []TradeDTO `json:"trades"`
}

func tradeDTO(spec symbolspec.Spec, t *projection.TradeView) TradeDTO {
	return TradeDTO{
		EventID:            int64(t.EventID),
		Price:              spec.FormatPrice(t.Price),
		Size:               spec.FormatSize(t.Size),
		AggressorRequestID: string(t.AggressorRequestID),
		AggressorClient:    clientDTO(t.AggressorClient),
		AggressorSide:      string(t.AggressorSide),
		PassiveRequestID:   string(t.PassiveRequestID),
		PassiveClient:      clientDTO(t.PassiveClient),
		OccurredAt:         t.OccurredAt,
	}
}

func tradeDTOs(spec symbolspec.Spec, trades []*projection.TradeView) []TradeDTO {
	out := make([]TradeDTO, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeDTO(spec, t))
	}
	return out
}

func orderViewResponse(spec symbolspec.Spec, o *projection.OrderView, trades []*projection.TradeView) OrderViewResponse {
	return OrderViewResponse{
		BookID:        string(o.BookID),
		RequestID:     string(o.RequestID),
		Client:        clientDTO(o.Client),
		IsQuote:       o.IsQuote,
		EntryType:     string(o.EntryType),
		Side:          string(o.Side),
		Price:         formatPrice(spec, o.Price),
		TimeInForce:   string(o.TimeInForce),
		Sizes:         sizesDTO(spec, o.Sizes),
		Status:        string(o.Status),
		Resting:       o.Resting,
		CancelReason:  string(o.CancelReason),
		PlacedAt:      o.PlacedAt,
		PlacedEventID: int64(o.PlacedEventID),
		UpdatedAt:     o.UpdatedAt,
		LastEventID:   int64(o.LastEventID),
		Trades:        tradeDTOs(spec, trades),
	}
}

// GetOrder handles GET /v1/books/:book_id/orders/:request_id.
// Quote legs are addressed with quote=true.
func (h *Handler) GetOrder(c *gin.Context) {
	firmID := c.Query("firm_id")
	if firmID == "" {
		writeFieldError(c, "firm_id", "required")
		return
	}
	isQuote, err := strconv.ParseBool(c.DefaultQuery("quote", "false"))
	if err != nil {
		writeFieldError(c, "quote", "must be a boolean")
		return
	}
	key := projection.OrderKey{
		BookID:    matching.BookID(c.Param("book_id")),
		Client:    matching.Client{FirmID: firmID, FirmClientID: c.Query("firm_client_id")},
		RequestID: matching.ClientRequestID(c.Param("request_id")),
		IsQuote:   isQuote,
	}

	order, err := h.views.Order(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, projection.ErrOrderNotFound) {
			writeErrorResponse(c, http.StatusNotFound, ErrorCodeEntryNotFound, err.Error())
			return
		}
		h.logger.Error("failed to query order", zap.String("book_id", string(key.BookID)), zap.Error(err))
		writeErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
		return
	}

	trades, err := h.views.OrderTrades(c.Request.Context(), key, 0)
	if err != nil {
		h.logger.Error("failed to query order trades", zap.String("book_id", string(key.BookID)), zap.Error(err))
		writeErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
		return
	}
	c.JSON(http.StatusOK, orderViewResponse(h.specs.Get(string(key.BookID)), order, trades))
}

// ListTrades handles GET /v1/books/:book_id/trades
func (h *Handler) ListTrades(c *gin.Context) {
	bookID := matching.BookID(c.Param("book_id"))

	from, err := strconv.ParseInt(c.DefaultQuery("from", "0"), 10, 64)
	if err != nil || from < 0 {
		writeFieldError(c, "from", "must be a non-negative event id")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 || limit > maxListLimit {
		writeFieldError(c, "limit", "must be between 1 and "+strconv.Itoa(maxListLimit))
		return
	}

	trades, err := h.views.Trades(c.Request.Context(), bookID, cqrs.EventID(from), limit)
	if err != nil {
		h.logger.Error("failed to query trades", zap.String("book_id", string(bookID)), zap.Error(err))
		writeErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
		return
	}
	c.JSON(http.StatusOK, TradesResponse{
		BookID: string(bookID),
		Trades: tradeDTOs(h.specs.Get(string(bookID)), trades),
	})
}
