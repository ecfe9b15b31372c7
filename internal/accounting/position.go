// Package accounting implements weighted-average-cost position
// accounting. All arithmetic is decimal; rounding happens only at the
// persistence/display boundary.
package accounting

import (
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
)

// Position is the accounting state for one symbol: quantity held and the
// quantity-weighted average cost per unit. The zero value is a valid
// empty (closed) position.
type Position struct {
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
}

// Closed reports whether the position holds no quantity
func (p Position) Closed() bool {
	return !p.Quantity.IsPositive()
}

// BuyResult is the outcome of applying a buy
type BuyResult struct {
	Position Position
	Cost     decimal.Decimal // quantity x price, the cash to deduct
}

// SellResult is the outcome of applying a sell
type SellResult struct {
	Position    Position
	Proceeds    decimal.Decimal // quantity x price, the cash to credit
	RealizedPnL decimal.Decimal // (price - average cost) x quantity
}

// ApplyBuy blends a new lot into the position:
//
//	avg' = (q*c + qty*price) / (q + qty)
//	q'   = q + qty
//
// A buy into an empty or closed position simply becomes the new lot.
func ApplyBuy(pos Position, quantity, price decimal.Decimal) (BuyResult, error) {
	if !quantity.IsPositive() {
		return BuyResult{}, domain.E(domain.KindValidation, "buy quantity must be positive")
	}
	if price.IsNegative() {
		return BuyResult{}, domain.E(domain.KindValidation, "buy price must not be negative")
	}

	cost := quantity.Mul(price)

	if pos.Closed() {
		return BuyResult{
			Position: Position{Quantity: quantity, AverageCost: price},
			Cost:     cost,
		}, nil
	}

	newQuantity := pos.Quantity.Add(quantity)
	newAverage := pos.Quantity.Mul(pos.AverageCost).Add(cost).Div(newQuantity)

	return BuyResult{
		Position: Position{Quantity: newQuantity, AverageCost: newAverage},
		Cost:     cost,
	}, nil
}

// ApplySell reduces the position and realizes P&L against the average
// cost. Selling never changes the cost basis of what remains; a sell
// that empties the position closes it, zeroing both quantity and average
// cost.
func ApplySell(pos Position, quantity, price decimal.Decimal) (SellResult, error) {
	if !quantity.IsPositive() {
		return SellResult{}, domain.E(domain.KindValidation, "sell quantity must be positive")
	}
	if price.IsNegative() {
		return SellResult{}, domain.E(domain.KindValidation, "sell price must not be negative")
	}
	if quantity.GreaterThan(pos.Quantity) {
		return SellResult{}, domain.Ef(domain.KindInsufficientQuantity,
			"cannot sell %s, only %s held", quantity.String(), pos.Quantity.String())
	}

	proceeds := quantity.Mul(price)
	realized := price.Sub(pos.AverageCost).Mul(quantity)

	remaining := Position{
		Quantity:    pos.Quantity.Sub(quantity),
		AverageCost: pos.AverageCost,
	}
	if remaining.Quantity.IsZero() {
		remaining.AverageCost = decimal.Zero
	}

	return SellResult{
		Position:    remaining,
		Proceeds:    proceeds,
		RealizedPnL: realized,
	}, nil
}
