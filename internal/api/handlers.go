package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"matching-core/internal/engine"
	"matching-core/internal/logging"
	"matching-core/internal/matching"
	"matching-core/internal/symbolspec"
)

// operatorClientID scopes idempotency keys of administrative commands
const operatorClientID = "operator"

// Engine is what the handlers need from the matching engine
type Engine interface {
	Submit(envelope *engine.CommandEnvelope) *engine.CommandExecResult
	Books(bookID matching.BookID) (matching.Books, error)
}

// Handler handles HTTP requests for the book API
type Handler struct {
	engine Engine
	views  ReadModel
	specs  *symbolspec.Registry
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a new API handler. views may be nil when no read model
// is maintained.
func NewHandler(eng Engine, views ReadModel, specs *symbolspec.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		engine: eng,
		views:  views,
		specs:  specs,
		logger: logging.OrNop(logger),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateBooks handles POST /v1/books
func (h *Handler) CreateBooks(c *gin.Context) {
	var req CreateBooksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, "invalid request body")
		return
	}

	now := h.now()
	businessDate := now.Truncate(24 * time.Hour)
	if req.BusinessDate != "" {
		date, err := time.Parse(businessDateLayout, req.BusinessDate)
		if err != nil {
			writeFieldError(c, "business_date", "must be YYYY-MM-DD")
			return
		}
		businessDate = date
	}

	bookID := matching.BookID(req.BookID)
	cmd := matching.CreateBooksCommand{
		BookID:          bookID,
		BusinessDate:    businessDate,
		TradingStatuses: req.TradingStatuses.toStatuses(),
		WhenRequested:   now,
	}
	h.submit(c, http.StatusCreated, engine.CommandTypeCreateBooks, bookID, operatorClientID, req.IdempotencyKey, req, cmd)
}

// GetBook handles GET /v1/books/:book_id
func (h *Handler) GetBook(c *gin.Context) {
	bookID := matching.BookID(c.Param("book_id"))
	books, err := h.engine.Books(bookID)
	if err != nil {
		if errors.Is(err, engine.ErrBookNotFound) {
			writeErrorResponse(c, http.StatusNotFound, ErrorCodeBookNotFound, err.Error())
			return
		}
		h.logger.Error("failed to query book", zap.String("book_id", string(bookID)), zap.Error(err))
		writeErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError, err.Error())
		return
	}
	c.JSON(http.StatusOK, bookResponse(h.specs.Get(string(bookID)), books))
}

// UpdateTradingStatuses handles PUT /v1/books/:book_id/trading-statuses
func (h *Handler) UpdateTradingStatuses(c *gin.Context) {
	bookID := matching.BookID(c.Param("book_id"))
	var req UpdateTradingStatusesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, "invalid request body")
		return
	}

	cmd := matching.UpdateTradingStatusesCommand{
		BookID:          bookID,
		TradingStatuses: req.TradingStatuses.toStatuses(),
		WhenRequested:   h.now(),
	}
	h.submit(c, http.StatusOK, engine.CommandTypeUpdateTradingStatuses, bookID, operatorClientID, req.IdempotencyKey, req, cmd)
}

// PlaceOrder handles POST /v1/books/:book_id/orders
func (h *Handler) PlaceOrder(c *gin.Context) {
	bookID := matching.BookID(c.Param("book_id"))
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, "invalid request body")
		return
	}

	spec := h.specs.Get(string(bookID))
	price := matching.NoPrice()
	if strings.TrimSpace(req.Price) != "" {
		v, err := spec.ParsePrice(req.Price)
		if err != nil {
			writeFieldError(c, "price", err.Error())
			return
		}
		price = matching.NewPrice(v)
	}
	size, err := spec.ParseSize(req.Size)
	if err != nil {
		writeFieldError(c, "size", err.Error())
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = generateRequestID(req.IdempotencyKey)
	}

	cmd := matching.PlaceOrderCommand{
		BookID:        bookID,
		RequestID:     matching.ClientRequestID(requestID),
		Client:        req.Client.toClient(),
		EntryType:     matching.EntryType(req.EntryType),
		Side:          matching.Side(req.Side),
		Price:         price,
		TimeInForce:   matching.TimeInForce(req.TimeInForce),
		Size:          size,
		WhenRequested: h.now(),
	}
	h.submit(c, http.StatusOK, engine.CommandTypePlaceOrder, bookID, req.Client.FirmID, req.IdempotencyKey, req, cmd)
}

// cancelParams are the query parameters of the cancel endpoints
type cancelParams struct {
	FirmID         string `json:"firm_id"`
	FirmClientID   string `json:"firm_client_id"`
	RequestID      string `json:"request_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Target         string `json:"target,omitempty"`
}

func (h *Handler) cancelParams(c *gin.Context) (cancelParams, bool) {
	p := cancelParams{
		FirmID:         c.Query("firm_id"),
		FirmClientID:   c.Query("firm_client_id"),
		RequestID:      c.Query("request_id"),
		IdempotencyKey: c.Query("idempotency_key"),
	}
	if p.FirmID == "" {
		writeFieldError(c, "firm_id", "required")
		return p, false
	}
	if p.RequestID == "" {
		p.RequestID = generateRequestID(p.IdempotencyKey)
	}
	return p, true
}

// CancelOrder handles DELETE /v1/books/:book_id/orders/:request_id
func (h *Handler) CancelOrder(c *gin.Context) {
	bookID := matching.BookID(c.Param("book_id"))
	p, ok := h.cancelParams(c)
	if !ok {
		return
	}
	p.Target = c.Param("request_id")

	cmd := matching.CancelOrderCommand{
		BookID:            bookID,
		RequestID:         matching.ClientRequestID(p.RequestID),
		OriginalRequestID: matching.ClientRequestID(p.Target),
		Client:            matching.Client{FirmID: p.FirmID, FirmClientID: p.FirmClientID},
		WhenRequested:     h.now(),
	}
	h.submit(c, http.StatusOK, engine.CommandTypeCancelOrder, bookID, p.FirmID, p.IdempotencyKey, p, cmd)
}

// PlaceMassQuote handles POST /v1/books/:book_id/mass-quotes
func (h *Handler) PlaceMassQuote(c *gin.Context) {
	bookID := matching.BookID(c.Param("book_id"))
	var req PlaceMassQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorResponse(c, http.StatusBadRequest, ErrorCodeInvalidArgument, "invalid request body")
		return
	}

	spec := h.specs.Get(string(bookID))
	entries := make([]matching.QuoteEntry, 0, len(req.Entries))
	for i, e := range req.Entries {
		entry := matching.QuoteEntry{ID: e.ID}
		var err error
		if entry.Bid, err = parsePriceSize(spec, e.Bid); err != nil {
			writeFieldError(c, fmt.Sprintf("entries[%d].bid", i), err.Error())
			return
		}
		if entry.Offer, err = parsePriceSize(spec, e.Offer); err != nil {
			writeFieldError(c, fmt.Sprintf("entries[%d].offer", i), err.Error())
			return
		}
		entries = append(entries, entry)
	}

	cmd := matching.PlaceMassQuoteCommand{
		BookID:        bookID,
		QuoteID:       req.QuoteID,
		Client:        req.Client.toClient(),
		TimeInForce:   matching.TimeInForce(req.TimeInForce),
		Entries:       entries,
		WhenRequested: h.now(),
	}
	h.submit(c, http.StatusOK, engine.CommandTypePlaceMassQuote, bookID, req.Client.FirmID, req.IdempotencyKey, req, cmd)
}

// CancelMassQuote handles DELETE /v1/books/:book_id/mass-quotes
func (h *Handler) CancelMassQuote(c *gin.Context) {
	bookID := matching.BookID(c.Param("book_id"))
	p, ok := h.cancelParams(c)
	if !ok {
		return
	}

	cmd := matching.CancelMassQuoteCommand{
		BookID:        bookID,
		RequestID:     matching.ClientRequestID(p.RequestID),
		Client:        matching.Client{FirmID: p.FirmID, FirmClientID: p.FirmClientID},
		WhenRequested: h.now(),
	}
	h.submit(c, http.StatusOK, engine.CommandTypeCancelMassQuote, bookID, p.FirmID, p.IdempotencyKey, p, cmd)
}

// submit hands a command to the engine and writes the committed events. The
// payload hash covers the request as received, not the decided command, so a
// retry under the same idempotency key hashes identically.
func (h *Handler) submit(c *gin.Context, status int, cmdType engine.CommandType, bookID matching.BookID, clientID, idemKey string, request any, cmd matching.Command) {
	payloadHash, err := engine.ComputePayloadHash(struct {
		BookID  matching.BookID `json:"book_id"`
		Request any             `json:"request"`
	}{bookID, request})
	if err != nil {
		writeErrorResponse(c, http.StatusInternalServerError, ErrorCodeInternalError, "failed to compute payload hash")
		return
	}

	envelope := &engine.CommandEnvelope{
		CommandID:      generateCommandID(),
		CommandType:    cmdType,
		IdempotencyKey: idemKey,
		BookID:         bookID,
		ClientID:       clientID,
		PayloadHash:    payloadHash,
		Payload:        cmd,
		CreatedAt:      h.now(),
	}

	result := h.engine.Submit(envelope)
	if result.ErrorCode != engine.ErrorCodeNone {
		statusCode, errResp := MapEngineErrorToHTTP(result.ErrorCode, result.Err)
		if statusCode >= http.StatusInternalServerError {
			h.logger.Error("command failed",
				zap.String("command_id", envelope.CommandID),
				zap.String("book_id", string(bookID)),
				zap.Error(result.Err),
			)
		}
		c.JSON(statusCode, errResp)
		return
	}

	c.JSON(status, commandResponse(envelope.CommandID, h.specs.Get(string(bookID)), bookID, result))
}

// Helper functions

func parsePriceSize(spec symbolspec.Spec, in *PriceSizeDTO) (*matching.PriceWithSize, error) {
	if in == nil {
		return nil, nil
	}
	price, err := spec.ParsePrice(in.Price)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	size, err := spec.ParseSize(in.Size)
	if err != nil {
		return nil, fmt.Errorf("size: %w", err)
	}
	return &matching.PriceWithSize{Price: price, Size: size}, nil
}

// generateRequestID derives a request id from the idempotency key so retries
// reuse it; without a key every request gets a fresh id
func generateRequestID(idempotencyKey string) string {
	if idempotencyKey == "" {
		return "req_" + uuid.New().String()
	}
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8") // DNS namespace UUID
	return "req_" + uuid.NewSHA1(namespace, []byte(idempotencyKey)).String()
}

func generateCommandID() string {
	return "cmd_" + uuid.New().String()
}

func writeErrorResponse(c *gin.Context, statusCode int, code ErrorCode, message string) {
	c.JSON(statusCode, ErrorResponse{
		Code:    string(code),
		Message: message,
	})
}

func writeFieldError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    string(ErrorCodeInvalidArgument),
		Message: field + " " + message,
		Field:   field,
	})
}
