package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Portfolio represents a user's portfolio row.
// The version column backs the optimistic concurrency check on every
// cash/value write; it is never exposed to API clients.
type Portfolio struct {
	ID          int64           `json:"portfolio_id"`
	UserID      string          `json:"user_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Version     int64           `json:"version"`
}

// Position represents the holding of one symbol within a portfolio.
// A fully-sold position stays on record with quantity and average price
// zeroed; rows are never deleted.
type Position struct {
	PortfolioID  int64           `json:"portfolio_id"`
	Symbol       string          `json:"stock_symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// Closed reports whether the position holds no quantity.
func (p Position) Closed() bool {
	return !p.Quantity.IsPositive()
}

// TradeSide is the direction of a trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// Trade is an immutable record of one executed buy or sell
type Trade struct {
	ID          int64           `json:"id,omitempty"`
	PortfolioID int64           `json:"portfolio_id"`
	Symbol      string          `json:"stock_symbol"`
	TradeType   TradeSide       `json:"trade_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ExecutedAt  string          `json:"executed_at,omitempty"` // ISO datetime
}

// TransactionType is the direction of a cash movement
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// Transaction is an immutable record of a cash movement independent of
// trading
type Transaction struct {
	TransactionID   string          `json:"transaction_id"`
	UserID          string          `json:"user_id"`
	PortfolioID     int64           `json:"portfolio_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate string          `json:"transaction_date"` // ISO datetime
}

// ReturnSnapshot is a periodic record of portfolio value and cumulative
// invested capital, appended by the batch revaluation job.
type ReturnSnapshot struct {
	PortfolioID   int64           `json:"portfolio_id"`
	ReturnValue   decimal.Decimal `json:"return_value"`
	InvestedValue decimal.Decimal `json:"invested_value"`
	Partial       bool            `json:"partial"`
	CreatedAt     string          `json:"created_at"` // ISO datetime
}

// Watchlist is a named list of symbols a user follows
type Watchlist struct {
	ID     int64  `json:"watchlist_id"`
	UserID string `json:"user_id"`
	Name   string `json:"watchlist_name"`
}

// WatchlistStock is one symbol on a watchlist
type WatchlistStock struct {
	WatchlistID int64  `json:"watchlist_id"`
	Symbol      string `json:"stock_symbol"`
}

// AuthUser is the identity returned by the hosted auth provider
type AuthUser struct {
	ID    string
	Email string
}

// PriceSource provides the latest known trade price for a symbol.
// Implementations return ErrPriceUnavailable when the symbol is unknown
// or no recent price exists.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}
