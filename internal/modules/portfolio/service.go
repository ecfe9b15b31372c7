// Package portfolio exposes portfolio state: live snapshots with a
// fresh valuation, per-symbol positions, and the persisted return
// history with performance statistics.
package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/valuation"
	"github.com/stockfolio/backend/pkg/formulas"
)

// PortfolioStore is the portfolio persistence the service depends on
type PortfolioStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Portfolio, error)
	SetTotalValue(ctx context.Context, id int64, total decimal.Decimal) error
}

// PositionStore is the position persistence the service depends on
type PositionStore interface {
	GetAll(ctx context.Context, portfolioID int64) ([]domain.Position, error)
	Get(ctx context.Context, portfolioID int64, symbol string) (*domain.Position, error)
}

// ReturnsStore is the snapshot log the service reads history from
type ReturnsStore interface {
	History(ctx context.Context, portfolioID int64) ([]domain.ReturnSnapshot, error)
}

// Service assembles portfolio views from stored state and live prices
type Service struct {
	portfolios PortfolioStore
	positions  PositionStore
	returns    ReturnsStore
	prices     domain.PriceSource
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	portfolios PortfolioStore,
	positions PositionStore,
	returns ReturnsStore,
	prices domain.PriceSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		positions:  positions,
		returns:    returns,
		prices:     prices,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// Snapshot returns the portfolio with a freshly computed valuation and
// all open positions priced. The cached total is only overwritten when
// every held symbol priced successfully.
func (s *Service) Snapshot(ctx context.Context, portfolioID int64) (View, error) {
	pf, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return View{}, err
	}
	if pf == nil {
		return View{}, domain.Ef(domain.KindNotFound, "portfolio %d not found", portfolioID)
	}

	result, views, err := s.valueAndPrice(ctx, pf)
	if err != nil {
		return View{}, err
	}

	if !result.Partial {
		if err := s.portfolios.SetTotalValue(ctx, pf.ID, result.Total); err != nil {
			s.log.Warn().Err(err).Int64("portfolio_id", pf.ID).Msg("Failed to persist total value")
		}
	}

	return View{
		PortfolioID:    pf.ID,
		UserID:         pf.UserID,
		CashBalance:    pf.CashBalance,
		TotalValue:     result.Total.Round(2),
		StocksValue:    result.StocksValue.Round(2),
		Partial:        result.Partial,
		MissingSymbols: result.MissingSymbols,
		Positions:      views,
	}, nil
}

// Positions returns every open position with live pricing attached.
// Closed positions are filtered out of the listing.
func (s *Service) Positions(ctx context.Context, portfolioID int64) ([]PositionView, error) {
	pf, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if pf == nil {
		return nil, domain.Ef(domain.KindNotFound, "portfolio %d not found", portfolioID)
	}

	_, views, err := s.valueAndPrice(ctx, pf)
	return views, err
}

// Position returns one holding, closed or open. A symbol the portfolio
// never held is a not-found.
func (s *Service) Position(ctx context.Context, portfolioID int64, symbol string) (PositionView, error) {
	pos, err := s.positions.Get(ctx, portfolioID, symbol)
	if err != nil {
		return PositionView{}, err
	}
	if pos == nil {
		return PositionView{}, domain.Ef(domain.KindNotFound, "no position in %s", symbol)
	}

	view := PositionView{
		Symbol:       pos.Symbol,
		Quantity:     pos.Quantity,
		AveragePrice: pos.AveragePrice,
	}

	if pos.Closed() {
		return view, nil
	}

	if price, ok := s.priceFor(ctx, pos.Symbol); ok {
		value := pos.Quantity.Mul(price).Round(2)
		view.CurrentPrice = &price
		view.CurrentValue = &value
	}

	return view, nil
}

// History returns the persisted snapshot series plus performance
// statistics derived from it.
func (s *Service) History(ctx context.Context, portfolioID int64) (HistoryView, error) {
	snapshots, err := s.returns.History(ctx, portfolioID)
	if err != nil {
		return HistoryView{}, err
	}
	if len(snapshots) == 0 {
		return HistoryView{}, domain.Ef(domain.KindNotFound, "no return history for portfolio %d", portfolioID)
	}

	views := make([]SnapshotView, 0, len(snapshots))
	values := make([]float64, 0, len(snapshots))
	for _, snap := range snapshots {
		views = append(views, SnapshotView{
			ReturnValue:   snap.ReturnValue,
			InvestedValue: snap.InvestedValue,
			Partial:       snap.Partial,
			CreatedAt:     snap.CreatedAt,
		})
		values = append(values, snap.ReturnValue.InexactFloat64())
	}

	returns := formulas.CalculateReturns(values)

	return HistoryView{
		PortfolioID: portfolioID,
		Snapshots:   views,
		Performance: Performance{
			TotalReturnPct:       formulas.TotalReturn(values) * 100,
			AnnualizedVolatility: formulas.AnnualizedVolatility(returns),
			MaxDrawdown:          formulas.MaxDrawdown(values),
		},
	}, nil
}

// Revalue computes the portfolio's current total and persists it when
// the valuation is complete. Partial valuations are returned to the
// caller but never overwrite the stored total.
func (s *Service) Revalue(ctx context.Context, pf *domain.Portfolio) (valuation.Result, error) {
	positions, err := s.positions.GetAll(ctx, pf.ID)
	if err != nil {
		return valuation.Result{}, err
	}

	result := valuation.ComputeTotalValue(pf.CashBalance, s.holdings(ctx, positions))

	if result.Partial {
		s.log.Warn().
			Int64("portfolio_id", pf.ID).
			Strs("missing", result.MissingSymbols).
			Msg("Partial valuation, stored total left unchanged")
		return result, nil
	}

	if err := s.portfolios.SetTotalValue(ctx, pf.ID, result.Total); err != nil {
		return result, fmt.Errorf("failed to persist valuation: %w", err)
	}

	return result, nil
}

// valueAndPrice prices every open position once and reuses those prices
// for both the valuation and the per-position views.
func (s *Service) valueAndPrice(ctx context.Context, pf *domain.Portfolio) (valuation.Result, []PositionView, error) {
	positions, err := s.positions.GetAll(ctx, pf.ID)
	if err != nil {
		return valuation.Result{}, nil, err
	}

	holdings := s.holdings(ctx, positions)
	result := valuation.ComputeTotalValue(pf.CashBalance, holdings)

	views := make([]PositionView, 0, len(holdings))
	for i, pos := range positions {
		if pos.Closed() {
			continue
		}

		view := PositionView{
			Symbol:       pos.Symbol,
			Quantity:     pos.Quantity,
			AveragePrice: pos.AveragePrice,
		}
		if price := holdings[i].Price; price != nil {
			value := pos.Quantity.Mul(*price).Round(2)
			view.CurrentPrice = price
			view.CurrentValue = &value
		}
		views = append(views, view)
	}

	return result, views, nil
}

// holdings maps stored positions to valuation inputs, one price lookup
// per open symbol. Indexes mirror the input slice.
func (s *Service) holdings(ctx context.Context, positions []domain.Position) []valuation.Holding {
	holdings := make([]valuation.Holding, len(positions))

	for i, pos := range positions {
		holdings[i] = valuation.Holding{Symbol: pos.Symbol, Quantity: pos.Quantity}
		if pos.Closed() {
			continue
		}

		if price, ok := s.priceFor(ctx, pos.Symbol); ok {
			holdings[i].Price = &price
		}
	}

	return holdings
}

// priceFor fetches one price, treating any failure as "no price". The
// valuation layer turns that into a partial result instead of an error.
func (s *Service) priceFor(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	price, err := s.prices.LatestPrice(ctx, symbol)
	if err != nil {
		if !errors.Is(err, domain.ErrPriceUnavailable) {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed")
		}
		return decimal.Decimal{}, false
	}

	return price, true
}
