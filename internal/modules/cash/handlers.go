package cash

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/api"
	"github.com/stockfolio/backend/internal/domain"
)

// Handlers contains the HTTP handlers for the cash API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new cash handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "cash").Logger(),
	}
}

// HandleDeposit records a deposit
// POST /api/cash/deposit
func (h *Handlers) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, h.service.Deposit)
}

// HandleWithdraw records a withdrawal
// POST /api/cash/withdraw
func (h *Handlers) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, h.service.Withdraw)
}

// HandleGetSummary returns balances, valuation and invested capital
// GET /api/cash/summary?portfolio_id=1
func (h *Handlers) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	view, err := h.service.Summary(r.Context(), portfolioID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}

// HandleGetChart returns the cumulative invested capital series
// GET /api/cash/chart?portfolio_id=1
func (h *Handlers) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	view, err := h.service.Chart(r.Context(), portfolioID)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}

func (h *Handlers) handleMovement(w http.ResponseWriter, r *http.Request, exec func(context.Context, MovementRequest) (MovementResponse, error)) {
	var req MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, h.log, domain.Wrap(domain.KindValidation, "invalid request body", err))
		return
	}

	resp, err := exec(r.Context(), req)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, resp)
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
