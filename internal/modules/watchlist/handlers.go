package watchlist

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/api"
	"github.com/stockfolio/backend/internal/domain"
)

// Handlers contains the HTTP handlers for the watchlist API
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new watchlist handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleGet returns the user's watchlist with quotes
// GET /api/watchlist?user_id=abc
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}

type addRequest struct {
	UserID string `json:"user_id"`
	Symbol string `json:"stock_symbol"`
}

// HandleAdd puts a symbol on the user's watchlist
// POST /api/watchlist
func (h *Handlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, h.log, domain.Wrap(domain.KindValidation, "invalid request body", err))
		return
	}

	view, err := h.service.Add(r.Context(), req.UserID, req.Symbol)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, view)
}

// HandleRemove takes a symbol off the user's watchlist
// DELETE /api/watchlist/{symbol}?user_id=abc
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Remove(r.Context(), r.URL.Query().Get("user_id"), chi.URLParam(r, "symbol"))
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, view)
}
