package portfolio

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/api"
	"github.com/stockfolio/backend/internal/domain"
)

// Handlers contains the HTTP handlers for the portfolio API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the portfolio snapshot with live valuation
// GET /api/portfolio?portfolio_id=1
func (h *Handlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	view, err := h.service.Snapshot(r.Context(), portfolioID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}

// HandleGetPositions returns all open positions with live pricing
// GET /api/portfolio/positions?portfolio_id=1
func (h *Handlers) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	views, err := h.service.Positions(r.Context(), portfolioID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, views)
}

// HandleGetPosition returns one holding, closed or open
// GET /api/portfolio/positions/{symbol}?portfolio_id=1
func (h *Handlers) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if symbol == "" {
		api.WriteError(w, h.log, domain.E(domain.KindValidation, "symbol is required"))
		return
	}

	view, err := h.service.Position(r.Context(), portfolioID, symbol)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}

// HandleGetHistory returns the snapshot series with performance stats
// GET /api/portfolio/history?portfolio_id=1
func (h *Handlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	view, err := h.service.History(r.Context(), portfolioID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}

func portfolioIDParam(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("portfolio_id")
	if raw == "" {
		return 0, domain.E(domain.KindValidation, "portfolio_id is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Ef(domain.KindValidation, "invalid portfolio_id %q", raw)
	}

	return id, nil
}
