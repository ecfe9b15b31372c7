package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/valuation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakePortfolioSource struct {
	portfolios []domain.Portfolio
}

func (f *fakePortfolioSource) GetAll(_ context.Context) ([]domain.Portfolio, error) {
	return f.portfolios, nil
}

type fakeRevaluer struct {
	mu      sync.Mutex
	results map[int64]valuation.Result
	fail    map[int64]bool
	calls   int
}

func (f *fakeRevaluer) Revalue(_ context.Context, pf *domain.Portfolio) (valuation.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[pf.ID] {
		return valuation.Result{}, domain.E(domain.KindCollaborator, "price source down")
	}
	return f.results[pf.ID], nil
}

type fakeTransactionSource struct{}

func (f *fakeTransactionSource) ByPortfolio(_ context.Context, _ int64) ([]domain.Transaction, error) {
	return []domain.Transaction{
		{TransactionType: domain.TransactionDeposit, Amount: d("1000")},
	}, nil
}

type fakeSnapshotSink struct {
	mu       sync.Mutex
	appended []domain.ReturnSnapshot
}

func (f *fakeSnapshotSink) Append(_ context.Context, snap domain.ReturnSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, snap)
	return nil
}

func TestRevaluation_SnapshotsEveryPortfolio(t *testing.T) {
	source := &fakePortfolioSource{portfolios: []domain.Portfolio{
		{ID: 1, CashBalance: d("100")},
		{ID: 2, CashBalance: d("200")},
	}}
	revaluer := &fakeRevaluer{results: map[int64]valuation.Result{
		1: {Total: d("1500")},
		2: {Total: d("900"), Partial: true, MissingSymbols: []string{"GONE"}},
	}}
	sink := &fakeSnapshotSink{}

	job := NewRevaluation(source, revaluer, &fakeTransactionSource{}, sink, 4, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, 2, revaluer.calls)
	require.Len(t, sink.appended, 2)

	byID := make(map[int64]domain.ReturnSnapshot)
	for _, snap := range sink.appended {
		byID[snap.PortfolioID] = snap
	}

	assert.True(t, byID[1].ReturnValue.Equal(d("1500")))
	assert.False(t, byID[1].Partial)
	assert.True(t, byID[1].InvestedValue.Equal(d("1000")))

	// Partial valuations still snapshot, flagged
	assert.True(t, byID[2].Partial)
	assert.True(t, byID[2].ReturnValue.Equal(d("900")))
}

func TestRevaluation_FailureDoesNotStallBatch(t *testing.T) {
	source := &fakePortfolioSource{portfolios: []domain.Portfolio{
		{ID: 1}, {ID: 2}, {ID: 3},
	}}
	revaluer := &fakeRevaluer{
		results: map[int64]valuation.Result{1: {Total: d("10")}, 3: {Total: d("30")}},
		fail:    map[int64]bool{2: true},
	}
	sink := &fakeSnapshotSink{}

	job := NewRevaluation(source, revaluer, &fakeTransactionSource{}, sink, 2, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, 3, revaluer.calls)
	assert.Len(t, sink.appended, 2)
}

func TestRevaluation_EmptyBatch(t *testing.T) {
	job := NewRevaluation(&fakePortfolioSource{}, &fakeRevaluer{}, &fakeTransactionSource{}, &fakeSnapshotSink{}, 1, zerolog.Nop())

	require.NoError(t, job.Run())
}
