package trading

import (
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
)

// TradeRequest is the body of buy and sell calls. Callers size the
// order either by share quantity or by cash amount, never both.
type TradeRequest struct {
	PortfolioID int64           `json:"portfolio_id"`
	Symbol      string          `json:"stock_symbol"`
	Quantity    decimal.Decimal `json:"quantity,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
}

// PositionSummary is the post-trade state of the traded symbol
type PositionSummary struct {
	Symbol       string          `json:"stock_symbol"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// TradeResponse reports one executed trade and the state it left behind
type TradeResponse struct {
	PortfolioID int64            `json:"portfolio_id"`
	Symbol      string           `json:"stock_symbol"`
	TradeType   domain.TradeSide `json:"trade_type"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       decimal.Decimal  `json:"price"`
	Total       decimal.Decimal  `json:"total"`
	RealizedPnL *decimal.Decimal `json:"realized_pnl,omitempty"`
	CashBalance decimal.Decimal  `json:"cash_balance"`
	ExecutedAt  string           `json:"executed_at"`
	Position    PositionSummary  `json:"position"`
}
