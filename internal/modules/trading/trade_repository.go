package trading

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/storage"
)

const defaultHistoryLimit = 50

// TradeRepository handles the append-only trade log in the record store
type TradeRepository struct {
	store storage.Store
	log   zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(store storage.Store, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		store: store,
		log:   log.With().Str("repo", "trade").Logger(),
	}
}

// Append records one executed trade
func (r *TradeRepository) Append(ctx context.Context, trade domain.Trade) error {
	if err := r.store.Insert(ctx, "trades", trade, nil); err != nil {
		return fmt.Errorf("failed to append %s trade for %s: %w", trade.TradeType, trade.Symbol, err)
	}

	return nil
}

// History returns a portfolio's most recent trades, newest first
func (r *TradeRepository) History(ctx context.Context, portfolioID int64, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var rows []domain.Trade
	filter := storage.Filter{"portfolio_id": strconv.FormatInt(portfolioID, 10)}

	err := r.store.Select(ctx, "trades", filter, &rows,
		storage.WithOrder("executed_at.desc"), storage.WithLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trade history for portfolio %d: %w", portfolioID, err)
	}

	return rows, nil
}
