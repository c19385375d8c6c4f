package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"matching-core/internal/logging"
	"matching-core/internal/symbolspec"
)

// Router sets up HTTP routes for the API
type Router struct {
	handler *Handler
	engine  *gin.Engine
	logger  *zap.Logger
}

// NewRouter creates a new API router. The order and trade queries are only
// served when views is set.
func NewRouter(eng Engine, views ReadModel, specs *symbolspec.Registry, logger *zap.Logger) *Router {
	logger = logging.OrNop(logger)

	router := &Router{
		handler: NewHandler(eng, views, specs, logger),
		engine:  gin.New(),
		logger:  logger,
	}
	router.engine.Use(gin.Recovery(), router.requestLogger())

	router.setupRoutes()
	return router
}

// setupRoutes configures all HTTP routes
func (r *Router) setupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.engine.Group("/v1/books")
	v1.POST("", r.handler.CreateBooks)
	v1.GET("/:book_id", r.handler.GetBook)
	v1.PUT("/:book_id/trading-statuses", r.handler.UpdateTradingStatuses)
	v1.POST("/:book_id/orders", r.handler.PlaceOrder)
	v1.DELETE("/:book_id/orders/:request_id", r.handler.CancelOrder)
	v1.POST("/:book_id/mass-quotes", r.handler.PlaceMassQuote)
	v1.DELETE("/:book_id/mass-quotes", r.handler.CancelMassQuote)

	if r.handler.views != nil {
		v1.GET("/:book_id/orders/:request_id", r.handler.GetOrder)
		v1.GET("/:book_id/trades", r.handler.ListTrades)
	}
}

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.logger.Debug("request served",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

// Handler returns the underlying HTTP handler
func (r *Router) Handler() http.Handler {
	return r.engine
}
