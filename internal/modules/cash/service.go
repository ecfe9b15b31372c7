// Package cash records deposits and withdrawals and reports cash-side
// summaries. Movements share the portfolio's lock and version check
// with trading so balances never lose an update.
package cash

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/locks"
	"github.com/stockfolio/backend/internal/valuation"
)

const casAttempts = 2

// PortfolioStore is the portfolio persistence the service depends on
type PortfolioStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Portfolio, error)
	CompareAndUpdate(ctx context.Context, id, expectedVersion int64, fields map[string]interface{}) (bool, error)
}

// TransactionStore is the movement log the service writes and reads
type TransactionStore interface {
	Append(ctx context.Context, tx domain.Transaction) error
	ByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Transaction, error)
}

// Revaluer prices the portfolio for the summary endpoint
type Revaluer interface {
	Revalue(ctx context.Context, pf *domain.Portfolio) (valuation.Result, error)
}

// Service records cash movements and assembles cash reports
type Service struct {
	portfolios   PortfolioStore
	transactions TransactionStore
	revaluer     Revaluer
	locks        *locks.Keyed
	log          zerolog.Logger
}

// NewService creates a new cash service
func NewService(
	portfolios PortfolioStore,
	transactions TransactionStore,
	revaluer Revaluer,
	keyed *locks.Keyed,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios:   portfolios,
		transactions: transactions,
		revaluer:     revaluer,
		locks:        keyed,
		log:          log.With().Str("service", "cash").Logger(),
	}
}

// Deposit adds cash to the portfolio and logs the movement
func (s *Service) Deposit(ctx context.Context, req MovementRequest) (MovementResponse, error) {
	return s.move(ctx, req, domain.TransactionDeposit)
}

// Withdraw removes cash from the portfolio and logs the movement
func (s *Service) Withdraw(ctx context.Context, req MovementRequest) (MovementResponse, error) {
	return s.move(ctx, req, domain.TransactionWithdrawal)
}

func (s *Service) move(ctx context.Context, req MovementRequest, kind domain.TransactionType) (MovementResponse, error) {
	if req.PortfolioID <= 0 {
		return MovementResponse{}, domain.E(domain.KindValidation, "portfolio_id is required")
	}
	if !req.Amount.IsPositive() {
		return MovementResponse{}, domain.E(domain.KindValidation, "amount must be positive")
	}

	unlock := s.locks.Lock("portfolio:" + strconv.FormatInt(req.PortfolioID, 10))
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		resp, retry, err := s.attempt(ctx, req, kind)
		if err == nil {
			return resp, nil
		}
		if !retry {
			return MovementResponse{}, err
		}
		lastErr = err
	}

	return MovementResponse{}, lastErr
}

func (s *Service) attempt(ctx context.Context, req MovementRequest, kind domain.TransactionType) (MovementResponse, bool, error) {
	pf, err := s.portfolios.GetByID(ctx, req.PortfolioID)
	if err != nil {
		return MovementResponse{}, false, err
	}
	if pf == nil {
		return MovementResponse{}, false, domain.Ef(domain.KindNotFound, "portfolio %d not found", req.PortfolioID)
	}

	var newCash decimal.Decimal
	switch kind {
	case domain.TransactionDeposit:
		newCash = pf.CashBalance.Add(req.Amount)
	case domain.TransactionWithdrawal:
		if req.Amount.GreaterThan(pf.CashBalance) {
			return MovementResponse{}, false, domain.Ef(domain.KindInsufficientFunds,
				"withdrawal of %s exceeds balance %s", req.Amount.Round(2), pf.CashBalance.Round(2))
		}
		newCash = pf.CashBalance.Sub(req.Amount)
	}

	committed, err := s.portfolios.CompareAndUpdate(ctx, pf.ID, pf.Version,
		map[string]interface{}{"cash_balance": newCash})
	if err != nil {
		return MovementResponse{}, false, err
	}
	if !committed {
		return MovementResponse{}, true, domain.Ef(domain.KindInternal,
			"portfolio %d was modified concurrently", pf.ID)
	}

	tx := domain.Transaction{
		TransactionID:   uuid.NewString(),
		UserID:          pf.UserID,
		PortfolioID:     pf.ID,
		TransactionType: kind,
		Amount:          req.Amount,
		TransactionDate: time.Now().UTC().Format(time.RFC3339),
	}

	if err := s.transactions.Append(ctx, tx); err != nil {
		return MovementResponse{}, false, domain.Wrap(domain.KindPartialUpdate,
			"balance committed but transaction log write failed", err)
	}

	s.log.Info().
		Int64("portfolio_id", pf.ID).
		Str("type", string(kind)).
		Str("amount", req.Amount.String()).
		Msg("Cash movement recorded")

	return MovementResponse{
		TransactionID:   tx.TransactionID,
		PortfolioID:     pf.ID,
		TransactionType: kind,
		Amount:          req.Amount,
		CashBalance:     newCash.Round(2),
		TransactionDate: tx.TransactionDate,
	}, false, nil
}

// Summary reports balances, a fresh valuation and the invested capital
// denominator in one response.
func (s *Service) Summary(ctx context.Context, portfolioID int64) (SummaryView, error) {
	pf, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return SummaryView{}, err
	}
	if pf == nil {
		return SummaryView{}, domain.Ef(domain.KindNotFound, "portfolio %d not found", portfolioID)
	}

	result, err := s.revaluer.Revalue(ctx, pf)
	if err != nil {
		return SummaryView{}, err
	}

	txs, err := s.transactions.ByPortfolio(ctx, portfolioID)
	if err != nil {
		return SummaryView{}, err
	}

	invested := valuation.ComputeInvestedCapital(txs)

	return SummaryView{
		PortfolioID:     pf.ID,
		CashBalance:     pf.CashBalance.Round(2),
		StocksValue:     result.StocksValue.Round(2),
		TotalValue:      result.Total.Round(2),
		InvestedCapital: invested.Round(2),
		TotalReturn:     result.Total.Sub(invested).Round(2),
		Partial:         result.Partial,
		MissingSymbols:  result.MissingSymbols,
	}, nil
}

// Chart returns the cumulative invested capital series for charting
func (s *Service) Chart(ctx context.Context, portfolioID int64) (ChartView, error) {
	pf, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return ChartView{}, err
	}
	if pf == nil {
		return ChartView{}, domain.Ef(domain.KindNotFound, "portfolio %d not found", portfolioID)
	}

	txs, err := s.transactions.ByPortfolio(ctx, portfolioID)
	if err != nil {
		return ChartView{}, err
	}

	return ChartView{
		PortfolioID: portfolioID,
		Points:      valuation.InvestmentTimeline(txs),
	}, nil
}
