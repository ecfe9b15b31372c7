package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/modules/auth"
	"github.com/stockfolio/backend/internal/modules/cash"
	"github.com/stockfolio/backend/internal/modules/marketdata"
	"github.com/stockfolio/backend/internal/modules/portfolio"
	"github.com/stockfolio/backend/internal/modules/trading"
	"github.com/stockfolio/backend/internal/modules/watchlist"
)

// Handlers bundles every module's HTTP handlers for route registration
type Handlers struct {
	Auth       *auth.Handlers
	Cash       *cash.Handlers
	MarketData *marketdata.Handlers
	Portfolio  *portfolio.Handlers
	Trading    *trading.Handlers
	Watchlist  *watchlist.Handlers
}

// Config holds server configuration
type Config struct {
	Port     int
	DevMode  bool
	Log      zerolog.Logger
	Handlers Handlers
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	handlers  Handlers
	startedAt time.Time
	devMode   bool
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		handlers:  cfg.Handlers,
		startedAt: time.Now().UTC(),
		devMode:   cfg.DevMode,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handlers.Auth.HandleLogin)
		})

		r.Route("/trading", func(r chi.Router) {
			r.Post("/buy", s.handlers.Trading.HandleBuy)
			r.Post("/sell", s.handlers.Trading.HandleSell)
			r.Get("/trades", s.handlers.Trading.HandleGetTrades)
		})

		r.Route("/cash", func(r chi.Router) {
			r.Post("/deposit", s.handlers.Cash.HandleDeposit)
			r.Post("/withdraw", s.handlers.Cash.HandleWithdraw)
			r.Get("/summary", s.handlers.Cash.HandleGetSummary)
			r.Get("/chart", s.handlers.Cash.HandleGetChart)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", s.handlers.Portfolio.HandleGetPortfolio)
			r.Get("/positions", s.handlers.Portfolio.HandleGetPositions)
			r.Get("/positions/{symbol}", s.handlers.Portfolio.HandleGetPosition)
			r.Get("/history", s.handlers.Portfolio.HandleGetHistory)
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/{symbol}/price", s.handlers.MarketData.HandleGetPrice)
			r.Get("/{symbol}/history", s.handlers.MarketData.HandleGetHistory)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.handlers.Watchlist.HandleGet)
			r.Post("/", s.handlers.Watchlist.HandleAdd)
			r.Delete("/{symbol}", s.handlers.Watchlist.HandleRemove)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
