// Package handler is the gin HTTP control surface over the matching
// core: submit/cancel orders through the intake bridge, and query
// depth, candles, and trades. Every handler here runs on its own gin
// goroutine, never on the event loop's consumer goroutine, so none of
// them may touch a matching.Engine's books directly: order submission
// and cancellation go through ordermanager.Manager's push into the
// pipeline, candle/trade queries read the aggregator's own
// independently-locked snapshot, and the one handler that needs a live
// book view (GetDepth) routes through eventloop.Pipeline.Query to run
// on the consumer goroutine itself — the same separation the teacher's
// internal/handler keeps between its wallet/order endpoints and the
// matching engine itself.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nathanyu/stock-exchange/internal/domain"
	"github.com/nathanyu/stock-exchange/internal/eventloop"
	"github.com/nathanyu/stock-exchange/internal/marketdata"
	"github.com/nathanyu/stock-exchange/internal/matching"
	"github.com/nathanyu/stock-exchange/internal/ordermanager"
)

// Handler holds the HTTP handler dependencies.
type Handler struct {
	manager *ordermanager.Manager
	engine  *matching.Engine
	agg     *marketdata.Aggregator
	pipe    *eventloop.Pipeline
}

// NewHandler creates a new Handler.
func NewHandler(manager *ordermanager.Manager, engine *matching.Engine, agg *marketdata.Aggregator, pipe *eventloop.Pipeline) *Handler {
	return &Handler{manager: manager, engine: engine, agg: agg, pipe: pipe}
}

// RegisterRoutes sets up the gin routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/order", h.SubmitOrder)
		v1.GET("/order/:id", h.GetOrder)
		v1.DELETE("/order/:id", h.CancelOrder)
		v1.GET("/trades", h.GetTrades)
		v1.GET("/marketdata/depth", h.GetDepth)
		v1.GET("/marketdata/candles", h.GetCandles)
	}
}

// Health returns a health check response.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "matching-engine",
	})
}

// SubmitOrderRequest is the request body for POST /v1/order.
type SubmitOrderRequest struct {
	TraderID domain.TraderId `json:"trader_id" binding:"required"`
	Symbol   domain.SymbolId `json:"symbol" binding:"required"`
	Side     string          `json:"side" binding:"required"`
	Type     string          `json:"type" binding:"required"`
	TIF      string          `json:"tif"`
	Price    domain.Price    `json:"price"`
	Quantity domain.Quantity `json:"quantity" binding:"required,gt=0"`
}

func parseSide(s string) (domain.Side, bool) {
	switch s {
	case "buy":
		return domain.SideBuy, true
	case "sell":
		return domain.SideSell, true
	default:
		return 0, false
	}
}

func parseOrderType(s string) (domain.OrderType, bool) {
	switch s {
	case "limit":
		return domain.OrderTypeLimit, true
	case "market":
		return domain.OrderTypeMarket, true
	default:
		return 0, false
	}
}

func parseTIF(s string) (domain.TimeInForce, bool) {
	switch s {
	case "", "day":
		return domain.TIFDay, true
	case "ioc":
		return domain.TIFIOC, true
	case "fok":
		return domain.TIFFOK, true
	default:
		return 0, false
	}
}

// SubmitOrder handles POST /v1/order.
func (h *Handler) SubmitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be 'buy' or 'sell'"})
		return
	}
	typ, ok := parseOrderType(req.Type)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be 'limit' or 'market'"})
		return
	}
	tif, ok := parseTIF(req.TIF)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tif must be 'day', 'ioc', or 'fok'"})
		return
	}

	state, err := h.manager.SubmitOrder(req.TraderID, req.Symbol, side, typ, tif, req.Price, req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, state)
}

// GetOrder handles GET /v1/order/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	state := h.manager.GetOrder(domain.OrderId(id))
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// CancelOrder handles DELETE /v1/order/:id.
func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	if err := h.manager.CancelOrder(domain.OrderId(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// GetTrades handles GET /v1/trades.
func (h *Handler) GetTrades(c *gin.Context) {
	symbol := domain.SymbolId(c.Query("symbol"))

	var orderID domain.OrderId
	if idStr := c.Query("order_id"); idStr != "" {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order_id"})
			return
		}
		orderID = domain.OrderId(id)
	}

	var since time.Time
	if sinceStr := c.Query("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since format, use RFC3339"})
			return
		}
		since = parsed
	}

	trades := h.agg.GetTrades(symbol, orderID, since)
	if trades == nil {
		trades = []domain.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

// GetDepth handles GET /v1/marketdata/depth. §5 reserves the matching
// engine's books for the event loop's consumer goroutine alone, so this
// does not call h.engine.Book directly from the HTTP goroutine — it
// routes the read through Pipeline.Query and only touches the returned
// snapshot, matching §6.2's reservation of depth snapshots for the
// explicit-query path (never the hot match path) on top of that.
func (h *Handler) GetDepth(c *gin.Context) {
	symbol := domain.SymbolId(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	depth := 10
	if depthStr := c.Query("depth"); depthStr != "" {
		if parsed, err := strconv.Atoi(depthStr); err == nil && parsed > 0 {
			depth = parsed
		}
	}

	var bids, asks []domain.BookLevel
	var found bool
	h.pipe.Query(func() {
		book := h.engine.Book(symbol)
		if book == nil {
			return
		}
		found = true
		bids = book.Depth(domain.SideBuy, depth)
		asks = book.Depth(domain.SideSell, depth)
	})
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}

	h.engine.Publisher().PublishDepthSnapshot(symbol, bids, asks)

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"bids":   bids,
		"asks":   asks,
	})
}

// GetCandles handles GET /v1/marketdata/candles.
func (h *Handler) GetCandles(c *gin.Context) {
	symbol := domain.SymbolId(c.Query("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	count := 100
	if countStr := c.Query("count"); countStr != "" {
		if parsed, err := strconv.Atoi(countStr); err == nil && parsed > 0 {
			count = parsed
		}
	}

	candles := h.agg.GetCandles(symbol, count)
	if candles == nil {
		candles = []*marketdata.Candlestick{}
	}
	c.JSON(http.StatusOK, candles)
}
