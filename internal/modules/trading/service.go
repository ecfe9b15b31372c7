// Package trading executes buy and sell orders. Each order runs as a
// single guarded sequence: price the symbol, apply the position math,
// commit cash through a version check, then write position and trade.
package trading

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/accounting"
	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/locks"
	"github.com/stockfolio/backend/internal/valuation"
)

// casAttempts bounds retries of the whole order sequence when another
// writer bumped the portfolio version between our read and our write.
const casAttempts = 2

// PortfolioStore is the portfolio persistence the service depends on
type PortfolioStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Portfolio, error)
	CompareAndUpdate(ctx context.Context, id, expectedVersion int64, fields map[string]interface{}) (bool, error)
}

// PositionStore is the position persistence the service depends on
type PositionStore interface {
	Get(ctx context.Context, portfolioID int64, symbol string) (*domain.Position, error)
	Upsert(ctx context.Context, pos domain.Position) error
}

// TradeStore is the trade log the service appends to
type TradeStore interface {
	Append(ctx context.Context, trade domain.Trade) error
	History(ctx context.Context, portfolioID int64, limit int) ([]domain.Trade, error)
}

// Revaluer refreshes the portfolio's cached total after a trade
type Revaluer interface {
	Revalue(ctx context.Context, pf *domain.Portfolio) (valuation.Result, error)
}

// Service executes trades against the record store
type Service struct {
	portfolios PortfolioStore
	positions  PositionStore
	trades     TradeStore
	prices     domain.PriceSource
	revaluer   Revaluer
	locks      *locks.Keyed
	log        zerolog.Logger
}

// NewService creates a new trading service
func NewService(
	portfolios PortfolioStore,
	positions PositionStore,
	trades TradeStore,
	prices domain.PriceSource,
	revaluer Revaluer,
	keyed *locks.Keyed,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		positions:  positions,
		trades:     trades,
		prices:     prices,
		revaluer:   revaluer,
		locks:      keyed,
		log:        log.With().Str("service", "trading").Logger(),
	}
}

// Buy purchases shares at the latest market price
func (s *Service) Buy(ctx context.Context, req TradeRequest) (TradeResponse, error) {
	return s.execute(ctx, req, domain.TradeSideBuy)
}

// Sell disposes shares at the latest market price
func (s *Service) Sell(ctx context.Context, req TradeRequest) (TradeResponse, error) {
	return s.execute(ctx, req, domain.TradeSideSell)
}

// History returns the portfolio's recent trades, newest first
func (s *Service) History(ctx context.Context, portfolioID int64, limit int) ([]domain.Trade, error) {
	return s.trades.History(ctx, portfolioID, limit)
}

func (s *Service) execute(ctx context.Context, req TradeRequest, side domain.TradeSide) (TradeResponse, error) {
	symbol, err := validateRequest(req)
	if err != nil {
		return TradeResponse{}, err
	}

	// Orders for the same portfolio are serialized in-process. The
	// version check below still guards against writers outside it.
	unlock := s.locks.Lock("portfolio:" + strconv.FormatInt(req.PortfolioID, 10))
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		resp, retry, err := s.attempt(ctx, req, symbol, side)
		if err == nil {
			return resp, nil
		}
		if !retry {
			return TradeResponse{}, err
		}
		lastErr = err
	}

	return TradeResponse{}, lastErr
}

// attempt runs one full order sequence. A version conflict reports
// retry=true; the sequence wrote nothing in that case, so re-running it
// from the fresh read is safe.
func (s *Service) attempt(ctx context.Context, req TradeRequest, symbol string, side domain.TradeSide) (TradeResponse, bool, error) {
	pf, err := s.portfolios.GetByID(ctx, req.PortfolioID)
	if err != nil {
		return TradeResponse{}, false, err
	}
	if pf == nil {
		return TradeResponse{}, false, domain.Ef(domain.KindNotFound, "portfolio %d not found", req.PortfolioID)
	}

	price, err := s.prices.LatestPrice(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrPriceUnavailable) {
			return TradeResponse{}, false, domain.Ef(domain.KindValidation, "no price available for %s", symbol)
		}
		return TradeResponse{}, false, domain.Wrap(domain.KindCollaborator, "price source failed", err)
	}

	quantity, err := orderQuantity(req, price)
	if err != nil {
		return TradeResponse{}, false, err
	}

	stored, err := s.positions.Get(ctx, req.PortfolioID, symbol)
	if err != nil {
		return TradeResponse{}, false, err
	}

	current := accounting.Position{}
	if stored != nil {
		current = accounting.Position{Quantity: stored.Quantity, AverageCost: stored.AveragePrice}
	}

	var (
		next     accounting.Position
		total    decimal.Decimal
		realized *decimal.Decimal
		newCash  decimal.Decimal
	)

	switch side {
	case domain.TradeSideBuy:
		result, err := accounting.ApplyBuy(current, quantity, price)
		if err != nil {
			return TradeResponse{}, false, err
		}
		if result.Cost.GreaterThan(pf.CashBalance) {
			return TradeResponse{}, false, domain.Ef(domain.KindInsufficientFunds,
				"order costs %s but only %s is available", result.Cost.Round(2), pf.CashBalance.Round(2))
		}
		next = result.Position
		total = result.Cost
		newCash = pf.CashBalance.Sub(result.Cost)

	case domain.TradeSideSell:
		result, err := accounting.ApplySell(current, quantity, price)
		if err != nil {
			return TradeResponse{}, false, err
		}
		next = result.Position
		total = result.Proceeds
		pnl := result.RealizedPnL
		realized = &pnl
		newCash = pf.CashBalance.Add(result.Proceeds)
	}

	// First write of the sequence. Everything before this point is
	// side-effect free.
	committed, err := s.portfolios.CompareAndUpdate(ctx, pf.ID, pf.Version,
		map[string]interface{}{"cash_balance": newCash})
	if err != nil {
		return TradeResponse{}, false, err
	}
	if !committed {
		return TradeResponse{}, true, domain.Ef(domain.KindInternal,
			"portfolio %d was modified concurrently", pf.ID)
	}

	executedAt := time.Now().UTC().Format(time.RFC3339)

	if err := s.writeTail(ctx, req.PortfolioID, symbol, side, quantity, price, next, executedAt); err != nil {
		return TradeResponse{}, false, err
	}

	pf.CashBalance = newCash
	if _, err := s.revaluer.Revalue(ctx, pf); err != nil {
		s.log.Warn().Err(err).Int64("portfolio_id", pf.ID).Msg("Post-trade revaluation failed")
	}

	s.log.Info().
		Int64("portfolio_id", pf.ID).
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("quantity", quantity.String()).
		Str("price", price.String()).
		Msg("Trade executed")

	return TradeResponse{
		PortfolioID: pf.ID,
		Symbol:      symbol,
		TradeType:   side,
		Quantity:    quantity,
		Price:       price,
		Total:       total.Round(2),
		RealizedPnL: realized,
		CashBalance: newCash.Round(2),
		ExecutedAt:  executedAt,
		Position: PositionSummary{
			Symbol:       symbol,
			Quantity:     next.Quantity,
			AveragePrice: next.AverageCost,
		},
	}, false, nil
}

// writeTail persists the position and trade after cash has committed.
// Failures here leave the records inconsistent, so they surface as
// partial updates rather than plain errors.
func (s *Service) writeTail(
	ctx context.Context,
	portfolioID int64,
	symbol string,
	side domain.TradeSide,
	quantity, price decimal.Decimal,
	next accounting.Position,
	executedAt string,
) error {
	pos := domain.Position{
		PortfolioID:  portfolioID,
		Symbol:       symbol,
		Quantity:     next.Quantity,
		AveragePrice: next.AverageCost,
	}
	if err := s.positions.Upsert(ctx, pos); err != nil {
		return domain.Wrap(domain.KindPartialUpdate, "cash committed but position write failed", err)
	}

	trade := domain.Trade{
		PortfolioID: portfolioID,
		Symbol:      symbol,
		TradeType:   side,
		Quantity:    quantity,
		Price:       price,
		ExecutedAt:  executedAt,
	}
	if err := s.trades.Append(ctx, trade); err != nil {
		return domain.Wrap(domain.KindPartialUpdate, "trade executed but log write failed", err)
	}

	return nil
}

func validateRequest(req TradeRequest) (string, error) {
	if req.PortfolioID <= 0 {
		return "", domain.E(domain.KindValidation, "portfolio_id is required")
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return "", domain.E(domain.KindValidation, "stock_symbol is required")
	}

	hasQuantity := req.Quantity.IsPositive()
	hasAmount := req.Amount.IsPositive()

	switch {
	case !hasQuantity && !hasAmount:
		return "", domain.E(domain.KindValidation, "either quantity or amount must be positive")
	case hasQuantity && hasAmount:
		return "", domain.E(domain.KindValidation, "provide quantity or amount, not both")
	}

	return symbol, nil
}

// orderQuantity resolves the share count, converting a cash amount at
// the fetched price when the caller sized the order in currency.
func orderQuantity(req TradeRequest, price decimal.Decimal) (decimal.Decimal, error) {
	if req.Quantity.IsPositive() {
		return req.Quantity, nil
	}

	if !price.IsPositive() {
		return decimal.Decimal{}, domain.Ef(domain.KindValidation,
			"cannot size an amount order at price %s", price)
	}

	return req.Amount.Div(price), nil
}
