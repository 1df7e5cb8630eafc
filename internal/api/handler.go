package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"breakout-backtest/internal/domain"
	"breakout-backtest/internal/ledger"
	"breakout-backtest/internal/storage"
)

// Handler serves ledger and trade-event queries.
type Handler struct {
	events     storage.TradeEventStore
	candidates storage.CandidateStore
	skips      storage.SkipRecordStore
	budget     float64
}

// NewHandler creates a handler.
func NewHandler(events storage.TradeEventStore, candidates storage.CandidateStore, skips storage.SkipRecordStore, budget float64) *Handler {
	return &Handler{events: events, candidates: candidates, skips: skips, budget: budget}
}

// GetLedger re-folds all stored events. An empty store yields an empty ledger.
func (h *Handler) GetLedger(c *gin.Context) {
	agg := ledger.NewAggregator(h.events, h.candidates, h.budget)
	l, err := agg.ComputeFromStore(c.Request.Context())
	if errors.Is(err, ledger.ErrNoEvents) {
		l = &ledger.Ledger{}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":     toLedgerRows(l.Rows),
		"total":    toTotal(l.Total),
		"warnings": agg.GetMissingCandidateErrors(),
	})
}

// GetCandidateEvents returns one episode's fills in sequence order.
func (h *Handler) GetCandidateEvents(c *gin.Context) {
	id := c.Param("id")
	events, err := h.events.GetByCandidateID(c.Request.Context(), id)
	h.writeEvents(c, "candidate_id", id, events, err)
}

// GetStockEvents returns every fill for a stock.
func (h *Handler) GetStockEvents(c *gin.Context) {
	code := c.Param("code")
	events, err := h.events.GetByStockCode(c.Request.Context(), code)
	h.writeEvents(c, "stock_code", code, events, err)
}

// GetRunSkips returns the skip diagnostics of one run.
func (h *Handler) GetRunSkips(c *gin.Context) {
	if h.skips == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "skip records are not available"})
		return
	}

	runID := c.Param("id")
	records, err := h.skips.GetByRunID(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]skipJSON, 0, len(records))
	for _, r := range records {
		out = append(out, toSkip(r))
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "skips": out})
}

func (h *Handler) writeEvents(c *gin.Context, key, value string, events []*domain.TradeEvent, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(events) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no trade events found", key: value})
		return
	}

	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toEvent(e))
	}
	c.JSON(http.StatusOK, gin.H{key: value, "events": out})
}
