package trading

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/api"
	"github.com/stockfolio/backend/internal/domain"
)

// Handlers contains the HTTP handlers for the trading API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new trading handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

// HandleBuy executes a buy order
// POST /api/trading/buy
func (h *Handlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, h.service.Buy)
}

// HandleSell executes a sell order
// POST /api/trading/sell
func (h *Handlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleTrade(w, r, h.service.Sell)
}

// HandleGetTrades returns recent trades, newest first
// GET /api/trading/trades?portfolio_id=1&limit=50
func (h *Handlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("portfolio_id")
	portfolioID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || portfolioID <= 0 {
		api.WriteError(w, h.log, domain.Ef(domain.KindValidation, "invalid portfolio_id %q", raw))
		return
	}

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	trades, err := h.service.History(r.Context(), portfolioID, limit)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	if trades == nil {
		trades = []domain.Trade{}
	}
	api.WriteJSON(w, http.StatusOK, trades)
}

func (h *Handlers) handleTrade(w http.ResponseWriter, r *http.Request, exec func(context.Context, TradeRequest) (TradeResponse, error)) {
	var req TradeRequest
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
