// Package jobs holds the scheduled background work. The revaluation job
// walks every portfolio, refreshes its valuation and appends a return
// snapshot, so history charts keep moving without user traffic.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/valuation"
)

const runTimeout = 5 * time.Minute

// PortfolioSource lists the portfolios to revalue
type PortfolioSource interface {
	GetAll(ctx context.Context) ([]domain.Portfolio, error)
}

// Revaluer prices one portfolio
type Revaluer interface {
	Revalue(ctx context.Context, pf *domain.Portfolio) (valuation.Result, error)
}

// TransactionSource provides the cash movement log for the invested
// capital denominator
type TransactionSource interface {
	ByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Transaction, error)
}

// SnapshotSink receives the computed return snapshots
type SnapshotSink interface {
	Append(ctx context.Context, snap domain.ReturnSnapshot) error
}

// Revaluation is the periodic batch revaluation job
type Revaluation struct {
	portfolios   PortfolioSource
	revaluer     Revaluer
	transactions TransactionSource
	snapshots    SnapshotSink
	workers      int
	log          zerolog.Logger
}

// NewRevaluation creates the revaluation job with a bounded worker count
func NewRevaluation(
	portfolios PortfolioSource,
	revaluer Revaluer,
	transactions TransactionSource,
	snapshots SnapshotSink,
	workers int,
	log zerolog.Logger,
) *Revaluation {
	if workers < 1 {
		workers = 1
	}

	return &Revaluation{
		portfolios:   portfolios,
		revaluer:     revaluer,
		transactions: transactions,
		snapshots:    snapshots,
		workers:      workers,
		log:          log.With().Str("job", "revaluation").Logger(),
	}
}

// Name implements scheduler.Job
func (j *Revaluation) Name() string {
	return "portfolio_revaluation"
}

// Run revalues every portfolio with bounded concurrency. A failing
// portfolio is logged and skipped; one bad symbol or record must not
// stall the whole batch.
func (j *Revaluation) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	portfolios, err := j.portfolios.GetAll(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)

	for i := range portfolios {
		pf := portfolios[i]
		g.Go(func() error {
			if err := j.revalueOne(ctx, &pf); err != nil {
				j.log.Error().Err(err).Int64("portfolio_id", pf.ID).Msg("Portfolio revaluation failed")
			}
			return nil
		})
	}

	_ = g.Wait()

	j.log.Info().Int("portfolios", len(portfolios)).Msg("Revaluation batch finished")
	return nil
}

func (j *Revaluation) revalueOne(ctx context.Context, pf *domain.Portfolio) error {
	result, err := j.revaluer.Revalue(ctx, pf)
	if err != nil {
		return err
	}

	txs, err := j.transactions.ByPortfolio(ctx, pf.ID)
	if err != nil {
		return err
	}

	snap := domain.ReturnSnapshot{
		PortfolioID:   pf.ID,
		ReturnValue:   result.Total.Round(2),
		InvestedValue: valuation.ComputeInvestedCapital(txs).Round(2),
		Partial:       result.Partial,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	return j.snapshots.Append(ctx, snap)
}
