// Package api serves the read-only ledger HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"breakout-backtest/internal/storage"
)

// ServerOptions contains configuration for creating a Server.
type ServerOptions struct {
	Addr string

	EventStore     storage.TradeEventStore // required
	CandidateStore storage.CandidateStore  // optional, fills stock names
	SkipStore      storage.SkipRecordStore // optional, enables /runs/:id/skips

	// Budget is the capital allotted to each episode when folding
	Budget float64

	// MetricsHandler serves /metrics; nil leaves the route out
	MetricsHandler http.Handler

	Logger *zap.Logger
}

// Server is the HTTP server.
type Server struct {
	engine *gin.Engine
	server *http.Server
	logger *zap.Logger
}

// NewServer creates the server and registers routes.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggerMiddleware(logger))

	s := &Server{
		engine: engine,
		logger: logger,
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	s.setupRoutes(opts)
	return s
}

// setupRoutes registers all routes.
func (s *Server) setupRoutes(opts ServerOptions) {
	h := NewHandler(opts.EventStore, opts.CandidateStore, opts.SkipStore, opts.Budget)

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.MetricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/ledger", h.GetLedger)
		v1.GET("/candidates/:id/events", h.GetCandidateEvents)
		v1.GET("/stocks/:code/events", h.GetStockEvents)
		v1.GET("/runs/:id/skips", h.GetRunSkips)
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
