// Package valuation computes portfolio market value and invested
// capital. A holding with no known price is skipped and reported, never
// valued at zero.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
)

// Holding pairs a position's quantity with its current price, when one
// is known.
type Holding struct {
	Symbol   string
	Quantity decimal.Decimal
	Price    *decimal.Decimal // nil when the price source had nothing
}

// Result is a valuation outcome. Partial means at least one held symbol
// had no price and its contribution was skipped.
type Result struct {
	Total          decimal.Decimal
	StocksValue    decimal.Decimal
	Partial        bool
	MissingSymbols []string
}

// ComputeTotalValue returns cash plus the market value of all open
// holdings. Holdings with zero quantity contribute nothing and never
// error, whatever their cost fields hold.
func ComputeTotalValue(cash decimal.Decimal, holdings []Holding) Result {
	result := Result{}

	for _, h := range holdings {
		if !h.Quantity.IsPositive() {
			continue
		}

		if h.Price == nil {
			result.Partial = true
			result.MissingSymbols = append(result.MissingSymbols, h.Symbol)
			continue
		}

		result.StocksValue = result.StocksValue.Add(h.Quantity.Mul(*h.Price))
	}

	result.Total = cash.Add(result.StocksValue)
	return result
}

// ComputeInvestedCapital sums deposits minus withdrawals. It is a
// reporting denominator only and is never written back to portfolio
// records.
func ComputeInvestedCapital(transactions []domain.Transaction) decimal.Decimal {
	invested := decimal.Zero

	for _, tx := range transactions {
		switch tx.TransactionType {
		case domain.TransactionDeposit:
			invested = invested.Add(tx.Amount)
		case domain.TransactionWithdrawal:
			invested = invested.Sub(tx.Amount)
		}
	}

	return invested
}

// TimelinePoint is the cumulative invested amount after one transaction
type TimelinePoint struct {
	Date           string          `json:"date"`
	InvestedAmount decimal.Decimal `json:"invested_amount"`
}

// InvestmentTimeline converts a transaction log (assumed ordered by
// date) into the running cumulative invested series used for charting.
func InvestmentTimeline(transactions []domain.Transaction) []TimelinePoint {
	cumulative := decimal.Zero
	points := make([]TimelinePoint, 0, len(transactions))

	for _, tx := range transactions {
		switch tx.TransactionType {
		case domain.TransactionDeposit:
			cumulative = cumulative.Add(tx.Amount)
		case domain.TransactionWithdrawal:
			cumulative = cumulative.Sub(tx.Amount)
		default:
			continue
		}

		points = append(points, TimelinePoint{
			Date:           tx.TransactionDate,
			InvestedAmount: cumulative,
		})
	}

	return points
}
