package portfolio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/storage"
)

// PortfolioRepository handles portfolio rows in the record store
type PortfolioRepository struct {
	store storage.Store
	log   zerolog.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(store storage.Store, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		store: store,
		log:   log.With().Str("repo", "portfolio").Logger(),
	}
}

// GetByID returns a portfolio by id, or nil when absent
func (r *PortfolioRepository) GetByID(ctx context.Context, id int64) (*domain.Portfolio, error) {
	var rows []domain.Portfolio
	filter := storage.Filter{"portfolio_id": strconv.FormatInt(id, 10)}

	if err := r.store.Select(ctx, "portfolios", filter, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio %d: %w", id, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return &rows[0], nil
}

// GetByUserID returns the user's portfolio, or nil when absent
func (r *PortfolioRepository) GetByUserID(ctx context.Context, userID string) (*domain.Portfolio, error) {
	var rows []domain.Portfolio
	filter := storage.Filter{"user_id": userID}

	if err := r.store.Select(ctx, "portfolios", filter, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch portfolio for user %s: %w", userID, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return &rows[0], nil
}

// GetAll returns every portfolio (used by the batch revaluation job)
func (r *PortfolioRepository) GetAll(ctx context.Context) ([]domain.Portfolio, error) {
	var rows []domain.Portfolio

	if err := r.store.Select(ctx, "portfolios", nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch portfolios: %w", err)
	}

	return rows, nil
}

// Create provisions a portfolio with a starting cash balance
func (r *PortfolioRepository) Create(ctx context.Context, userID string, initialCash decimal.Decimal) (*domain.Portfolio, error) {
	record := map[string]interface{}{
		"user_id":      userID,
		"cash_balance": initialCash,
		"total_value":  initialCash,
		"version":      1,
	}

	var created []domain.Portfolio
	if err := r.store.Insert(ctx, "portfolios", record, &created); err != nil {
		return nil, fmt.Errorf("failed to create portfolio for user %s: %w", userID, err)
	}

	if len(created) == 0 {
		return nil, domain.E(domain.KindCollaborator, "portfolio creation returned no row")
	}

	r.log.Info().Str("user_id", userID).Int64("portfolio_id", created[0].ID).Msg("Portfolio created")
	return &created[0], nil
}

// CompareAndUpdate patches a portfolio only when its version still
// matches the one the caller read, bumping the version in the same
// write. Returns false when a concurrent writer got there first.
func (r *PortfolioRepository) CompareAndUpdate(ctx context.Context, id, expectedVersion int64, fields map[string]interface{}) (bool, error) {
	patch := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		patch[k] = v
	}
	patch["version"] = expectedVersion + 1

	filter := storage.Filter{
		"portfolio_id": strconv.FormatInt(id, 10),
		"version":      strconv.FormatInt(expectedVersion, 10),
	}

	affected, err := r.store.Update(ctx, "portfolios", filter, patch)
	if err != nil {
		return false, fmt.Errorf("failed to update portfolio %d: %w", id, err)
	}

	if affected == 0 {
		r.log.Debug().Int64("portfolio_id", id).Int64("version", expectedVersion).Msg("Version conflict on portfolio update")
		return false, nil
	}

	return true, nil
}

// SetTotalValue overwrites the cached total value. Only complete
// valuations may call this; partial ones leave the stored number alone.
func (r *PortfolioRepository) SetTotalValue(ctx context.Context, id int64, total decimal.Decimal) error {
	filter := storage.Filter{"portfolio_id": strconv.FormatInt(id, 10)}
	fields := map[string]interface{}{"total_value": total.Round(2)}

	affected, err := r.store.Update(ctx, "portfolios", filter, fields)
	if err != nil {
		return fmt.Errorf("failed to set total value for portfolio %d: %w", id, err)
	}

	if affected == 0 {
		return domain.Ef(domain.KindNotFound, "portfolio %d not found", id)
	}

	return nil
}

// PositionRepository handles position rows in the record store
type PositionRepository struct {
	store storage.Store
	log   zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(store storage.Store, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		store: store,
		log:   log.With().Str("repo", "position").Logger(),
	}
}

// GetAll returns all positions of a portfolio, closed ones included
func (r *PositionRepository) GetAll(ctx context.Context, portfolioID int64) ([]domain.Position, error) {
	var rows []domain.Position
	filter := storage.Filter{"portfolio_id": strconv.FormatInt(portfolioID, 10)}

	if err := r.store.Select(ctx, "portfolio_stocks", filter, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch positions for portfolio %d: %w", portfolioID, err)
	}

	for i := range rows {
		rows[i].Symbol = normalizeSymbol(rows[i].Symbol)
	}

	return rows, nil
}

// Get returns a single position, or nil when the symbol was never held
func (r *PositionRepository) Get(ctx context.Context, portfolioID int64, symbol string) (*domain.Position, error) {
	var rows []domain.Position
	filter := storage.Filter{
		"portfolio_id": strconv.FormatInt(portfolioID, 10),
		"stock_symbol": normalizeSymbol(symbol),
	}

	if err := r.store.Select(ctx, "portfolio_stocks", filter, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch position %s for portfolio %d: %w", symbol, portfolioID, err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	rows[0].Symbol = normalizeSymbol(rows[0].Symbol)
	return &rows[0], nil
}

// Upsert writes a position's quantity and average price, inserting the
// row on first buy of the symbol. Fully-sold positions are written back
// zeroed, never deleted.
func (r *PositionRepository) Upsert(ctx context.Context, pos domain.Position) error {
	pos.Symbol = normalizeSymbol(pos.Symbol)

	filter := storage.Filter{
		"portfolio_id": strconv.FormatInt(pos.PortfolioID, 10),
		"stock_symbol": pos.Symbol,
	}
	fields := map[string]interface{}{
		"quantity":      pos.Quantity,
		"average_price": pos.AveragePrice,
	}

	affected, err := r.store.Update(ctx, "portfolio_stocks", filter, fields)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %w", pos.Symbol, err)
	}

	if affected > 0 {
		return nil
	}

	record := map[string]interface{}{
		"portfolio_id":  pos.PortfolioID,
		"stock_symbol":  pos.Symbol,
		"quantity":      pos.Quantity,
		"average_price": pos.AveragePrice,
	}

	if err := r.store.Insert(ctx, "portfolio_stocks", record, nil); err != nil {
		return fmt.Errorf("failed to insert position %s: %w", pos.Symbol, err)
	}

	r.log.Info().Int64("portfolio_id", pos.PortfolioID).Str("symbol", pos.Symbol).Msg("Position created")
	return nil
}

// ReturnsRepository handles the append-only snapshot log
type ReturnsRepository struct {
	store storage.Store
	log   zerolog.Logger
}

// NewReturnsRepository creates a new returns repository
func NewReturnsRepository(store storage.Store, log zerolog.Logger) *ReturnsRepository {
	return &ReturnsRepository{
		store: store,
		log:   log.With().Str("repo", "returns").Logger(),
	}
}

// History returns a portfolio's snapshots, oldest first
func (r *ReturnsRepository) History(ctx context.Context, portfolioID int64) ([]domain.ReturnSnapshot, error) {
	var rows []domain.ReturnSnapshot
	filter := storage.Filter{"portfolio_id": strconv.FormatInt(portfolioID, 10)}

	err := r.store.Select(ctx, "portfolio_returns", filter, &rows, storage.WithOrder("created_at.asc"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch return history for portfolio %d: %w", portfolioID, err)
	}

	return rows, nil
}

// Append records one snapshot
func (r *ReturnsRepository) Append(ctx context.Context, snap domain.ReturnSnapshot) error {
	if err := r.store.Insert(ctx, "portfolio_returns", snap, nil); err != nil {
		return fmt.Errorf("failed to append return snapshot for portfolio %d: %w", snap.PortfolioID, err)
	}

	return nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
