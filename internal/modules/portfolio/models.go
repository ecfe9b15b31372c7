package portfolio

import "github.com/shopspring/decimal"

// PositionView is the API shape of one holding with its live market data
type PositionView struct {
	Symbol       string           `json:"stock_symbol"`
	Quantity     decimal.Decimal  `json:"quantity"`
	AveragePrice decimal.Decimal  `json:"average_price"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	CurrentValue *decimal.Decimal `json:"current_value,omitempty"`
}

// View is the API shape of a portfolio with a live valuation attached
type View struct {
	PortfolioID    int64           `json:"portfolio_id"`
	UserID         string          `json:"user_id"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	TotalValue     decimal.Decimal `json:"total_value"`
	StocksValue    decimal.Decimal `json:"total_stocks_value"`
	Partial        bool            `json:"partial"`
	MissingSymbols []string        `json:"missing_symbols,omitempty"`
	Positions      []PositionView  `json:"positions"`
}

// Performance summarizes a portfolio's snapshot series
type Performance struct {
	TotalReturnPct       float64 `json:"total_return_pct"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	MaxDrawdown          float64 `json:"max_drawdown"`
}

// HistoryView is the API shape of the return history endpoint
type HistoryView struct {
	PortfolioID int64             `json:"portfolio_id"`
	Snapshots   []SnapshotView    `json:"snapshots"`
	Performance Performance       `json:"performance"`
}

// SnapshotView is one persisted return snapshot
type SnapshotView struct {
	ReturnValue   decimal.Decimal `json:"return_value"`
	InvestedValue decimal.Decimal `json:"invested_value"`
	Partial       bool            `json:"partial"`
	CreatedAt     string          `json:"created_at"`
}
