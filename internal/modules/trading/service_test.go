package trading

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/locks"
	"github.com/stockfolio/backend/internal/valuation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakePortfolioStore struct {
	portfolio     domain.Portfolio
	casCalls      int
	lastFields    map[string]interface{}
	conflictsLeft int
}

func (f *fakePortfolioStore) GetByID(_ context.Context, id int64) (*domain.Portfolio, error) {
	if f.portfolio.ID != id {
		return nil, nil
	}
	pf := f.portfolio
	return &pf, nil
}

func (f *fakePortfolioStore) CompareAndUpdate(_ context.Context, _, expectedVersion int64, fields map[string]interface{}) (bool, error) {
	f.casCalls++
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		f.portfolio.Version++
		return false, nil
	}
	if expectedVersion != f.portfolio.Version {
		return false, nil
	}
	f.lastFields = fields
	f.portfolio.Version++
	if cash, ok := fields["cash_balance"].(decimal.Decimal); ok {
		f.portfolio.CashBalance = cash
	}
	return true, nil
}

type fakePositionStore struct {
	positions  map[string]domain.Position
	upserts    int
	failUpsert bool
}

func (f *fakePositionStore) Get(_ context.Context, _ int64, symbol string) (*domain.Position, error) {
	pos, ok := f.positions[symbol]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (f *fakePositionStore) Upsert(_ context.Context, pos domain.Position) error {
	if f.failUpsert {
		return errors.New("store unreachable")
	}
	f.upserts++
	if f.positions == nil {
		f.positions = make(map[string]domain.Position)
	}
	f.positions[pos.Symbol] = pos
	return nil
}

type fakeTradeStore struct {
	appended   []domain.Trade
	failAppend bool
}

func (f *fakeTradeStore) Append(_ context.Context, trade domain.Trade) error {
	if f.failAppend {
		return errors.New("store unreachable")
	}
	f.appended = append(f.appended, trade)
	return nil
}

func (f *fakeTradeStore) History(_ context.Context, _ int64, _ int) ([]domain.Trade, error) {
	return f.appended, nil
}

type fakePriceSource struct {
	prices map[string]decimal.Decimal
	calls  int
}

func (f *fakePriceSource) LatestPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.calls++
	price, ok := f.prices[symbol]
	if !ok {
		return decimal.Decimal{}, domain.ErrPriceUnavailable
	}
	return price, nil
}

type fakeRevaluer struct {
	calls int
}

func (f *fakeRevaluer) Revalue(_ context.Context, _ *domain.Portfolio) (valuation.Result, error) {
	f.calls++
	return valuation.Result{}, nil
}

type fixture struct {
	portfolios *fakePortfolioStore
	positions  *fakePositionStore
	trades     *fakeTradeStore
	prices     *fakePriceSource
	revaluer   *fakeRevaluer
	service    *Service
}

func newFixture(cash string, prices map[string]decimal.Decimal) *fixture {
	f := &fixture{
		portfolios: &fakePortfolioStore{portfolio: domain.Portfolio{ID: 1, UserID: "u1", CashBalance: d(cash), Version: 3}},
		positions:  &fakePositionStore{positions: make(map[string]domain.Position)},
		trades:     &fakeTradeStore{},
		prices:     &fakePriceSource{prices: prices},
		revaluer:   &fakeRevaluer{},
	}
	f.service = NewService(f.portfolios, f.positions, f.trades, f.prices, f.revaluer, locks.New(), zerolog.Nop())
	return f
}

func TestBuy_FirstLot(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{"AAPL": d("100")})

	resp, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "aapl", Quantity: d("5")})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", resp.Symbol)
	assert.True(t, resp.Total.Equal(d("500")))
	assert.True(t, resp.CashBalance.Equal(d("500")))
	assert.True(t, resp.Position.Quantity.Equal(d("5")))
	assert.True(t, resp.Position.AveragePrice.Equal(d("100")))
	assert.Nil(t, resp.RealizedPnL)

	// Exactly one write of each kind per accepted order
	assert.Equal(t, 1, f.portfolios.casCalls)
	assert.Equal(t, 1, f.positions.upserts)
	assert.Len(t, f.trades.appended, 1)
	assert.Equal(t, 1, f.revaluer.calls)
	assert.Equal(t, 1, f.prices.calls)
}

func TestBuy_BlendsAverage(t *testing.T) {
	f := newFixture("10000", map[string]decimal.Decimal{"AAPL": d("100")})

	_, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.NoError(t, err)

	f.prices.prices["AAPL"] = d("200")
	resp, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.NoError(t, err)

	assert.True(t, resp.Position.Quantity.Equal(d("10")))
	assert.True(t, resp.Position.AveragePrice.Equal(d("150")),
		"expected 150, got %s", resp.Position.AveragePrice)
}

func TestBuy_ByAmount(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{"AAPL": d("200")})

	resp, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Amount: d("500")})
	require.NoError(t, err)

	assert.True(t, resp.Quantity.Equal(d("2.5")))
	assert.True(t, resp.CashBalance.Equal(d("500")))
}

func TestBuy_InsufficientFunds(t *testing.T) {
	f := newFixture("100", map[string]decimal.Decimal{"AAPL": d("100")})

	_, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))

	// Rejected before any write
	assert.Equal(t, 0, f.portfolios.casCalls)
	assert.Equal(t, 0, f.positions.upserts)
	assert.Empty(t, f.trades.appended)
	assert.True(t, f.portfolios.portfolio.CashBalance.Equal(d("100")))
}

func TestBuy_UnknownSymbol(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{})

	_, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "NOPE", Quantity: d("1")})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestBuy_Validation(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{"AAPL": d("100")})

	cases := []struct {
		name string
		req  TradeRequest
	}{
		{"missing portfolio", TradeRequest{Symbol: "AAPL", Quantity: d("1")}},
		{"missing symbol", TradeRequest{PortfolioID: 1, Quantity: d("1")}},
		{"no sizing", TradeRequest{PortfolioID: 1, Symbol: "AAPL"}},
		{"both sizings", TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("1"), Amount: d("100")}},
		{"negative quantity", TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("-1")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Buy(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}

	assert.Equal(t, 0, f.prices.calls, "invalid requests must not reach the price source")
}

func TestSell_RealizesPnLAndKeepsBasis(t *testing.T) {
	f := newFixture("0", map[string]decimal.Decimal{"AAPL": d("120")})
	f.positions.positions["AAPL"] = domain.Position{PortfolioID: 1, Symbol: "AAPL", Quantity: d("10"), AveragePrice: d("150")}

	resp, err := f.service.Sell(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.NoError(t, err)

	require.NotNil(t, resp.RealizedPnL)
	assert.True(t, resp.RealizedPnL.Equal(d("-150")), "expected -150, got %s", resp.RealizedPnL)
	assert.True(t, resp.Total.Equal(d("600")))
	assert.True(t, resp.CashBalance.Equal(d("600")))
	assert.True(t, resp.Position.Quantity.Equal(d("5")))
	assert.True(t, resp.Position.AveragePrice.Equal(d("150")))
}

func TestSell_InsufficientQuantityNoWrites(t *testing.T) {
	f := newFixture("100", map[string]decimal.Decimal{"AAPL": d("100")})
	f.positions.positions["AAPL"] = domain.Position{PortfolioID: 1, Symbol: "AAPL", Quantity: d("2"), AveragePrice: d("90")}

	_, err := f.service.Sell(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("3")})
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientQuantity, domain.KindOf(err))

	assert.Equal(t, 0, f.portfolios.casCalls)
	assert.Equal(t, 0, f.positions.upserts)
	assert.Empty(t, f.trades.appended)
	assert.True(t, f.positions.positions["AAPL"].Quantity.Equal(d("2")))
}

func TestSell_NeverHeldSymbol(t *testing.T) {
	f := newFixture("100", map[string]decimal.Decimal{"AAPL": d("100")})

	_, err := f.service.Sell(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("1")})
	require.Error(t, err)
	assert.Equal(t, domain.KindInsufficientQuantity, domain.KindOf(err))
}

func TestSell_ClosingKeepsRecord(t *testing.T) {
	f := newFixture("0", map[string]decimal.Decimal{"AAPL": d("30")})
	f.positions.positions["AAPL"] = domain.Position{PortfolioID: 1, Symbol: "AAPL", Quantity: d("4"), AveragePrice: d("25")}

	resp, err := f.service.Sell(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("4")})
	require.NoError(t, err)

	assert.True(t, resp.Position.Quantity.IsZero())
	assert.True(t, resp.Position.AveragePrice.IsZero())

	// The row is written back zeroed, not removed
	stored, ok := f.positions.positions["AAPL"]
	require.True(t, ok)
	assert.True(t, stored.Quantity.IsZero())
}

func TestBuy_VersionConflictRetriesOnce(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{"AAPL": d("100")})
	f.portfolios.conflictsLeft = 1

	resp, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.NoError(t, err)

	// First attempt lost the version race and wrote nothing; the rerun
	// committed exactly one position write and one trade
	assert.Equal(t, 2, f.portfolios.casCalls)
	assert.Equal(t, 1, f.positions.upserts)
	assert.Len(t, f.trades.appended, 1)
	assert.True(t, resp.CashBalance.Equal(d("500")))
}

func TestBuy_PersistentConflictFails(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{"AAPL": d("100")})
	f.portfolios.conflictsLeft = 10

	_, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.Error(t, err)

	assert.Equal(t, 0, f.positions.upserts)
	assert.Empty(t, f.trades.appended)
}

func TestBuy_PositionWriteFailureIsPartialUpdate(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{"AAPL": d("100")})
	f.positions.failUpsert = true

	_, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.Error(t, err)
	assert.Equal(t, domain.KindPartialUpdate, domain.KindOf(err))

	// Cash committed before the failure; nothing after it was written
	assert.Equal(t, 1, f.portfolios.casCalls)
	assert.True(t, f.portfolios.portfolio.CashBalance.Equal(d("500")))
	assert.Empty(t, f.trades.appended)
	assert.Equal(t, 0, f.revaluer.calls)
}

func TestSell_TradeLogFailureIsPartialUpdate(t *testing.T) {
	f := newFixture("0", map[string]decimal.Decimal{"AAPL": d("120")})
	f.positions.positions["AAPL"] = domain.Position{PortfolioID: 1, Symbol: "AAPL", Quantity: d("10"), AveragePrice: d("100")}
	f.trades.failAppend = true

	_, err := f.service.Sell(context.Background(), TradeRequest{PortfolioID: 1, Symbol: "AAPL", Quantity: d("5")})
	require.Error(t, err)
	assert.Equal(t, domain.KindPartialUpdate, domain.KindOf(err))

	// Cash and position already committed when the log write failed
	assert.True(t, f.portfolios.portfolio.CashBalance.Equal(d("600")))
	assert.Equal(t, 1, f.positions.upserts)
	assert.Empty(t, f.trades.appended)
}

func TestBuy_UnknownPortfolio(t *testing.T) {
	f := newFixture("1000", map[string]decimal.Decimal{"AAPL": d("100")})

	_, err := f.service.Buy(context.Background(), TradeRequest{PortfolioID: 99, Symbol: "AAPL", Quantity: d("1")})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}
