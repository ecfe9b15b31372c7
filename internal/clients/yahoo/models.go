package yahoo

import "time"

// Quote is a point-in-time snapshot of a symbol used to enrich watchlist
// entries.
type Quote struct {
	Symbol           string  `json:"stock_symbol"`
	Name             string  `json:"company_name"`
	Price            float64 `json:"current_price"`
	PreviousClose    float64 `json:"previous_close"`
	DailyReturnPct   float64 `json:"daily_return"`
	DayLow           float64 `json:"day_low"`
	DayHigh          float64 `json:"day_high"`
	FiftyTwoWeekLow  float64 `json:"fifty_two_week_low"`
	FiftyTwoWeekHigh float64 `json:"fifty_two_week_high"`
}

// Candle is one bar of historical OHLCV data
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
