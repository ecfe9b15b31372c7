// Package marketdata exposes read-only stock quote and history
// endpoints straight off the price source.
package marketdata

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/api"
	"github.com/stockfolio/backend/internal/clients/yahoo"
	"github.com/stockfolio/backend/internal/domain"
)

// Source is the market data the handlers serve
type Source interface {
	GetQuote(ctx context.Context, symbol string) (yahoo.Quote, error)
	History(ctx context.Context, symbol, timeframe string) ([]yahoo.Candle, error)
}

// Handlers contains the HTTP handlers for the stocks API
type Handlers struct {
	source Source
	log    zerolog.Logger
}

// NewHandlers creates a new market data handlers instance
func NewHandlers(source Source, log zerolog.Logger) *Handlers {
	return &Handlers{
		source: source,
		log:    log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleGetPrice returns the current quote for a symbol
// GET /api/stocks/{symbol}/price
func (h *Handlers) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		api.WriteError(w, h.log, domain.E(domain.KindValidation, "symbol is required"))
		return
	}

	quote, err := h.source.GetQuote(r.Context(), symbol)
	if err != nil {
		api.WriteError(w, h.log, classify(err, symbol))
		return
	}

	api.WriteJSON(w, http.StatusOK, quote)
}

// HandleGetHistory returns historical bars for a symbol
// GET /api/stocks/{symbol}/history?timeframe=1d
func (h *Handlers) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol == "" {
		api.WriteError(w, h.log, domain.E(domain.KindValidation, "symbol is required"))
		return
	}

	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "1d"
	}

	candles, err := h.source.History(r.Context(), symbol, timeframe)
	if err != nil {
		api.WriteError(w, h.log, classify(err, symbol))
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stock_symbol": symbol,
		"timeframe":    timeframe,
		"candles":      candles,
	})
}

// classify maps price source failures onto the error taxonomy: an
// unknown symbol is the caller's problem, anything else is the
// collaborator's.
func classify(err error, symbol string) error {
	if errors.Is(err, domain.ErrPriceUnavailable) {
		return domain.Ef(domain.KindNotFound, "no data for symbol %s", symbol)
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	return domain.Wrap(domain.KindCollaborator, "market data source failed", err)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
