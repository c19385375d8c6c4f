package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrderAndTrades(t *testing.T) {
	router := newTestRouter(t)
	openBook(t, router)

	w := do(t, router, http.MethodPost, "/v1/books/ABC-2024/orders", limit("s1", firm1, "SELL", "GOOD_TILL_CANCEL", "6", "12.00"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, router, http.MethodPost, "/v1/books/ABC-2024/orders", limit("b1", firm2, "BUY", "GOOD_TILL_CANCEL", "4", "12.50"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/orders/s1?firm_id=firm1&firm_client_id=c1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode[OrderViewResponse](t, w)
	assert.Equal(t, "PARTIAL_FILL", order.Status)
	assert.True(t, order.Resting)
	assert.Equal(t, "12.00", order.Price)
	assert.Equal(t, SizesDTO{Available: "2", Traded: "4", Cancelled: "0"}, order.Sizes)
	require.Len(t, order.Trades, 1)
	assert.Equal(t, "12.00", order.Trades[0].Price)
	assert.Equal(t, "b1", order.Trades[0].AggressorRequestID)

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/trades", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	trades := decode[TradesResponse](t, w)
	require.Len(t, trades.Trades, 1)
	assert.Equal(t, "4", trades.Trades[0].Size)
	assert.Equal(t, "BUY", trades.Trades[0].AggressorSide)

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/trades?from=1000", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[TradesResponse](t, w).Trades)
}

func TestGetOrder_Errors(t *testing.T) {
	router := newTestRouter(t)
	openBook(t, router)

	w := do(t, router, http.MethodGet, "/v1/books/ABC-2024/orders/nope?firm_id=firm1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/orders/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "firm_id", decode[ErrorResponse](t, w).Field)

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/trades?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", decode[ErrorResponse](t, w).Field)
}

func TestGetOrder_QuoteLeg(t *testing.T) {
	router := newTestRouter(t)
	openBook(t, router)

	w := do(t, router, http.MethodPost, "/v1/books/ABC-2024/mass-quotes", PlaceMassQuoteRequest{
		QuoteID:     "q1",
		Client:      firm2,
		TimeInForce: "GOOD_TILL_CANCEL",
		Entries:     []QuoteEntryDTO{{ID: "e1", Bid: &PriceSizeDTO{Price: "8", Size: "3"}}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, router, http.MethodPost, "/v1/books/ABC-2024/orders", limit("q1:e1:BUY", firm2, "BUY", "GOOD_TILL_CANCEL", "5", "7"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/orders/q1:e1:BUY?firm_id=firm2&firm_client_id=c2&quote=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	leg := decode[OrderViewResponse](t, w)
	assert.True(t, leg.IsQuote)
	assert.Equal(t, SizesDTO{Available: "3", Traded: "0", Cancelled: "0"}, leg.Sizes)

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/orders/q1:e1:BUY?firm_id=firm2&firm_client_id=c2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode[OrderViewResponse](t, w)
	assert.False(t, order.IsQuote)
	assert.Equal(t, SizesDTO{Available: "5", Traded: "0", Cancelled: "0"}, order.Sizes)
	assert.Greater(t, order.PlacedEventID, leg.PlacedEventID)

	w = do(t, router, http.MethodGet, "/v1/books/ABC-2024/orders/q1:e1:BUY?firm_id=firm2&quote=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "quote", decode[ErrorResponse](t, w).Field)
}
