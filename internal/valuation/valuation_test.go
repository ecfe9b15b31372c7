package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/stockfolio/backend/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestComputeTotalValue_CashPlusPosition(t *testing.T) {
	result := ComputeTotalValue(d("1000"), []Holding{
		{Symbol: "AAPL", Quantity: d("10"), Price: dp("50")},
	})

	assert.True(t, result.Total.Equal(d("1500")), "expected 1500, got %s", result.Total)
	assert.True(t, result.StocksValue.Equal(d("500")))
	assert.False(t, result.Partial)
	assert.Empty(t, result.MissingSymbols)
}

func TestComputeTotalValue_ZeroQuantityIgnored(t *testing.T) {
	// Closed positions contribute nothing even with no price attached
	result := ComputeTotalValue(d("100"), []Holding{
		{Symbol: "MSFT", Quantity: decimal.Zero, Price: nil},
		{Symbol: "AAPL", Quantity: d("2"), Price: dp("10")},
	})

	assert.True(t, result.Total.Equal(d("120")))
	assert.False(t, result.Partial)
}

func TestComputeTotalValue_MissingPriceFlagsPartial(t *testing.T) {
	result := ComputeTotalValue(d("1000"), []Holding{
		{Symbol: "AAPL", Quantity: d("10"), Price: dp("50")},
		{Symbol: "GONE", Quantity: d("5"), Price: nil},
	})

	// The unpriced holding is skipped, never valued at zero, and the
	// result says so
	assert.True(t, result.Total.Equal(d("1500")))
	assert.True(t, result.Partial)
	assert.Equal(t, []string{"GONE"}, result.MissingSymbols)
}

func TestComputeTotalValue_NoHoldings(t *testing.T) {
	result := ComputeTotalValue(d("250.50"), nil)

	assert.True(t, result.Total.Equal(d("250.50")))
	assert.True(t, result.StocksValue.IsZero())
}

func TestComputeInvestedCapital(t *testing.T) {
	txs := []domain.Transaction{
		{TransactionType: domain.TransactionDeposit, Amount: d("1000")},
		{TransactionType: domain.TransactionDeposit, Amount: d("500")},
		{TransactionType: domain.TransactionWithdrawal, Amount: d("200")},
	}

	invested := ComputeInvestedCapital(txs)
	assert.True(t, invested.Equal(d("1300")), "expected 1300, got %s", invested)
}

func TestComputeInvestedCapital_Empty(t *testing.T) {
	assert.True(t, ComputeInvestedCapital(nil).IsZero())
}

func TestInvestmentTimeline(t *testing.T) {
	txs := []domain.Transaction{
		{TransactionType: domain.TransactionDeposit, Amount: d("1000"), TransactionDate: "2024-01-01"},
		{TransactionType: domain.TransactionWithdrawal, Amount: d("300"), TransactionDate: "2024-02-01"},
		{TransactionType: domain.TransactionDeposit, Amount: d("50"), TransactionDate: "2024-03-01"},
	}

	points := InvestmentTimeline(txs)

	assert.Len(t, points, 3)
	assert.True(t, points[0].InvestedAmount.Equal(d("1000")))
	assert.True(t, points[1].InvestedAmount.Equal(d("700")))
	assert.True(t, points[2].InvestedAmount.Equal(d("750")))
	assert.Equal(t, "2024-02-01", points[1].Date)
}
