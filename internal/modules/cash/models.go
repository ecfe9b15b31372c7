package cash

import (
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/valuation"
)

// MovementRequest is the body of deposit and withdraw calls
type MovementRequest struct {
	PortfolioID int64           `json:"portfolio_id"`
	Amount      decimal.Decimal `json:"amount"`
}

// MovementResponse reports one recorded cash movement and the balance
// it left behind
type MovementResponse struct {
	TransactionID   string                 `json:"transaction_id"`
	PortfolioID     int64                  `json:"portfolio_id"`
	TransactionType domain.TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal        `json:"amount"`
	CashBalance     decimal.Decimal        `json:"cash_balance"`
	TransactionDate string                 `json:"transaction_date"`
}

// SummaryView is the cash summary endpoint response
type SummaryView struct {
	PortfolioID     int64           `json:"portfolio_id"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	StocksValue     decimal.Decimal `json:"total_stocks_value"`
	TotalValue      decimal.Decimal `json:"total_value"`
	InvestedCapital decimal.Decimal `json:"invested_capital"`
	TotalReturn     decimal.Decimal `json:"total_return"`
	Partial         bool            `json:"partial"`
	MissingSymbols  []string        `json:"missing_symbols,omitempty"`
}

// ChartView is the invested-capital timeline used for charting
type ChartView struct {
	PortfolioID int64                     `json:"portfolio_id"`
	Points      []valuation.TimelinePoint `json:"points"`
}
