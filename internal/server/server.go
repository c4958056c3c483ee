package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/predexchange/predex/internal/domain"
	"github.com/predexchange/predex/internal/server/handler"
	"github.com/predexchange/predex/internal/server/middleware"
	"github.com/predexchange/predex/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RequestLimit caps requests per client IP per RequestWindow across the
	// whole API. Zero disables the global limiter.
	RequestLimit  int
	RequestWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Markets     *handler.MarketHandler
	Orders      *handler.OrderHandler
	Resolutions *handler.ResolutionHandler
	Admin       *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server for the exchange.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, rate limiting, CORS, auth) and attaches
// the WebSocket hub. The limiter may be nil, in which case the global
// request limit is disabled.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/cancel", handlers.Markets.CancelMarket)
	mux.HandleFunc("POST /api/markets/{id}/close", handlers.Markets.CloseMarket)
	mux.HandleFunc("GET /api/markets/{id}/statistics", handlers.Markets.GetStatistics)

	// Orders and the book.
	mux.HandleFunc("GET /api/orders", handlers.Orders.ListOrders)
	mux.HandleFunc("POST /api/orders", handlers.Orders.PlaceOrder)
	mux.HandleFunc("GET /api/orders/{id}", handlers.Orders.GetOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", handlers.Orders.CancelOrder)
	mux.HandleFunc("GET /api/markets/{id}/book", handlers.Orders.GetBook)
	mux.HandleFunc("GET /api/bets", handlers.Orders.ListBets)

	// Resolution lifecycle.
	mux.HandleFunc("POST /api/markets/{id}/propose", handlers.Resolutions.ProposeResult)
	mux.HandleFunc("GET /api/markets/{id}/proposal", handlers.Resolutions.GetProposal)
	mux.HandleFunc("POST /api/markets/{id}/dispute", handlers.Resolutions.RaiseDispute)
	mux.HandleFunc("GET /api/markets/{id}/dispute", handlers.Resolutions.GetDispute)
	mux.HandleFunc("POST /api/markets/{id}/vote", handlers.Resolutions.CastVote)
	mux.HandleFunc("GET /api/markets/{id}/votes", handlers.Resolutions.GetVotes)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Resolutions.ResolveDispute)
	mux.HandleFunc("POST /api/markets/{id}/redeem-bond", handlers.Resolutions.RedeemBond)
	mux.HandleFunc("POST /api/bets/{id}/redeem", handlers.Resolutions.RedeemWinnings)
	mux.HandleFunc("GET /api/markets/{id}/settlement", handlers.Resolutions.GetSettlement)

	// Admin surface: config, whitelist, audit.
	mux.HandleFunc("GET /api/admin/config", handlers.Admin.GetConfig)
	mux.HandleFunc("PATCH /api/admin/config", handlers.Admin.UpdateConfig)
	mux.HandleFunc("GET /api/admin/whitelist", handlers.Admin.ListWhitelist)
	mux.HandleFunc("POST /api/admin/whitelist", handlers.Admin.AddToWhitelist)
	mux.HandleFunc("GET /api/admin/whitelist/{voter}", handlers.Admin.CheckWhitelist)
	mux.HandleFunc("DELETE /api/admin/whitelist/{voter}", handlers.Admin.RemoveFromWhitelist)
	mux.HandleFunc("GET /api/admin/audit", handlers.Admin.GetAuditLog)
	mux.HandleFunc("GET /api/admin/transfers", handlers.Admin.GetTransferLog)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply the global per-IP request limit.
	if limiter != nil && cfg.RequestLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RequestLimit, cfg.RequestWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
