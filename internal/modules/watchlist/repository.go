package watchlist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/storage"
)

// Repository handles watchlists and their symbols in the record store
type Repository struct {
	store storage.Store
	log   zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(store storage.Store, log zerolog.Logger) *Repository {
	return &Repository{
		store: store,
		log:   log.With().Str("repo", "watchlist").Logger(),
	}
}

// GetByUser returns the user's watchlist, or nil when none exists yet
func (r *Repository) GetByUser(ctx context.Context, userID string) (*domain.Watchlist, error) {
	var rows []domain.Watchlist
	filter := storage.Filter{"user_id": userID}

	if err := r.store.Select(ctx, "watchlists", filter, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch watchlist for user %s: %w", userID, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return &rows[0], nil
}

// Create provisions a named watchlist for the user
func (r *Repository) Create(ctx context.Context, userID, name string) (*domain.Watchlist, error) {
	record := map[string]interface{}{
		"user_id":        userID,
		"watchlist_name": name,
	}

	var created []domain.Watchlist
	if err := r.store.Insert(ctx, "watchlists", record, &created); err != nil {
		return nil, fmt.Errorf("failed to create watchlist for user %s: %w", userID, err)
	}

	if len(created) == 0 {
		return nil, domain.E(domain.KindCollaborator, "watchlist creation returned no row")
	}

	r.log.Info().Str("user_id", userID).Int64("watchlist_id", created[0].ID).Msg("Watchlist created")
	return &created[0], nil
}

// Symbols returns the symbols on a watchlist
func (r *Repository) Symbols(ctx context.Context, watchlistID int64) ([]string, error) {
	var rows []domain.WatchlistStock
	filter := storage.Filter{"watchlist_id": strconv.FormatInt(watchlistID, 10)}

	if err := r.store.Select(ctx, "watchlist_stocks", filter, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch watchlist %d symbols: %w", watchlistID, err)
	}

	symbols := make([]string, 0, len(rows))
	for _, row := range rows {
		symbols = append(symbols, row.Symbol)
	}

	return symbols, nil
}

// AddSymbol puts a symbol on a watchlist
func (r *Repository) AddSymbol(ctx context.Context, watchlistID int64, symbol string) error {
	record := domain.WatchlistStock{WatchlistID: watchlistID, Symbol: symbol}

	if err := r.store.Insert(ctx, "watchlist_stocks", record, nil); err != nil {
		return fmt.Errorf("failed to add %s to watchlist %d: %w", symbol, watchlistID, err)
	}

	return nil
}

// RemoveSymbol takes a symbol off a watchlist. Returns storage errors
// only; removing an absent symbol is a no-op at this layer.
func (r *Repository) RemoveSymbol(ctx context.Context, watchlistID int64, symbol string) error {
	filter := storage.Filter{
		"watchlist_id": strconv.FormatInt(watchlistID, 10),
		"stock_symbol": symbol,
	}

	if err := r.store.Delete(ctx, "watchlist_stocks", filter); err != nil {
		return fmt.Errorf("failed to remove %s from watchlist %d: %w", symbol, watchlistID, err)
	}

	return nil
}
