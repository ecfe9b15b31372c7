// Package yahoo is the market-data client: latest trade prices, quote
// snapshots and historical OHLCV series from the public chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
)

// Config holds client settings
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client fetches market data. It implements domain.PriceSource.
type Client struct {
	client     *resty.Client
	maxRetries int
	log        zerolog.Logger
}

// New creates a new market-data client
func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		// The public endpoint rejects default client agents
		SetHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36").
		SetHeader("Accept", "application/json")

	return &Client{
		client:     client,
		maxRetries: cfg.MaxRetries,
		log:        log.With().Str("client", "yahoo").Logger(),
	}
}

// LatestPrice returns the last known trade price for a symbol, retrying
// transient failures with exponential backoff. Unknown or delisted
// symbols yield domain.ErrPriceUnavailable.
func (c *Client) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Warn().
				Str("symbol", symbol).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Retrying price fetch")

			select {
			case <-ctx.Done():
				return decimal.Zero, domain.Wrap(domain.KindCollaborator, "price fetch cancelled", ctx.Err())
			case <-time.After(wait):
			}
		}

		result, err := c.fetchChart(ctx, symbol, "1d", "1d")
		if err != nil {
			lastErr = err
			// Unknown or delisted symbols don't become known on retry;
			// backoff is reserved for transient collaborator failures
			if errors.Is(err, domain.ErrPriceUnavailable) {
				break
			}
			continue
		}

		price := result.Meta.RegularMarketPrice
		if price == 0 {
			if closes := lastClose(result); closes > 0 {
				price = closes
			}
		}

		if price > 0 {
			return decimal.NewFromFloat(price), nil
		}

		lastErr = domain.ErrPriceUnavailable
		break
	}

	if errors.Is(lastErr, domain.ErrPriceUnavailable) {
		return decimal.Zero, fmt.Errorf("no recent price for %s: %w", symbol, domain.ErrPriceUnavailable)
	}

	return decimal.Zero, domain.Wrap(domain.KindCollaborator, fmt.Sprintf("price fetch for %s failed after %d attempts", symbol, c.maxRetries), lastErr)
}

// GetQuote returns the enriched snapshot used by the watchlist: current
// price, daily move, day range and 52-week range.
func (c *Client) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	result, err := c.fetchChart(ctx, symbol, "5d", "1d")
	if err != nil {
		return Quote{}, err
	}

	meta := result.Meta

	price := meta.RegularMarketPrice
	if price == 0 {
		price = lastClose(result)
	}
	if price == 0 {
		return Quote{}, fmt.Errorf("no quote data for %s: %w", symbol, domain.ErrPriceUnavailable)
	}

	previousClose := previousDayClose(result)
	if previousClose == 0 {
		previousClose = meta.ChartPreviousClose
	}

	dailyReturn := 0.0
	if previousClose > 0 {
		dailyReturn = (price - previousClose) / previousClose * 100
	}

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	if name == "" {
		name = symbol
	}

	return Quote{
		Symbol:           symbol,
		Name:             name,
		Price:            price,
		PreviousClose:    previousClose,
		DailyReturnPct:   dailyReturn,
		DayLow:           meta.RegularMarketDayLow,
		DayHigh:          meta.RegularMarketDayHigh,
		FiftyTwoWeekLow:  meta.FiftyTwoWeekLow,
		FiftyTwoWeekHigh: meta.FiftyTwoWeekHigh,
	}, nil
}

// timeframes maps the externally accepted timeframe names to the chart
// API's (range, interval) pairs.
var timeframes = map[string][2]string{
	"5m":  {"7d", "5m"},
	"15m": {"14d", "15m"},
	"30m": {"30d", "30m"},
	"60m": {"60d", "60m"},
	"1d":  {"6mo", "1d"},
	"5d":  {"1y", "5d"},
	"1mo": {"1y", "1wk"},
	"3mo": {"3y", "1mo"},
	"6mo": {"5y", "1mo"},
	"ytd": {"ytd", "1d"},
	"1y":  {"1y", "1wk"},
	"2y":  {"2y", "1wk"},
	"5y":  {"5y", "1mo"},
	"max": {"max", "1mo"},
}

// maxHistoryPoints caps history responses to keep payloads bounded
const maxHistoryPoints = 1000

// History fetches historical bars for a symbol over a named timeframe
func (c *Client) History(ctx context.Context, symbol, timeframe string) ([]Candle, error) {
	mapping, ok := timeframes[timeframe]
	if !ok {
		return nil, domain.Ef(domain.KindValidation, "invalid timeframe %q", timeframe)
	}

	result, err := c.fetchChart(ctx, symbol, mapping[0], mapping[1])
	if err != nil {
		return nil, err
	}

	if len(result.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in history response")
		return []Candle{}, nil
	}

	quote := result.Indicators.Quote[0]
	timestamps := result.Timestamp

	var candles []Candle
	for i := range timestamps {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// The API returns zeroed rows for missing bars
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		candles = append(candles, Candle{
			Date:   time.Unix(timestamps[i], 0).UTC(),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: volume,
		})
	}

	if len(candles) > maxHistoryPoints {
		candles = candles[len(candles)-maxHistoryPoints:]
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Int("count", len(candles)).
		Msg("Fetched history")

	return candles, nil
}

type chartResult struct {
	Meta struct {
		Symbol               string  `json:"symbol"`
		ShortName            string  `json:"shortName"`
		LongName             string  `json:"longName"`
		RegularMarketPrice   float64 `json:"regularMarketPrice"`
		ChartPreviousClose   float64 `json:"chartPreviousClose"`
		RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
		RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
		FiftyTwoWeekLow      float64 `json:"fiftyTwoWeekLow"`
		FiftyTwoWeekHigh     float64 `json:"fiftyTwoWeekHigh"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []float64 `json:"open"`
			High   []float64 `json:"high"`
			Low    []float64 `json:"low"`
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) fetchChart(ctx context.Context, symbol, chartRange, interval string) (*chartResult, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"range":    chartRange,
			"interval": interval,
		}).
		Get("/v8/finance/chart/" + symbol)
	if err != nil {
		return nil, domain.Wrap(domain.KindCollaborator, fmt.Sprintf("chart request for %s failed", symbol), err)
	}

	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("unknown symbol %s: %w", symbol, domain.ErrPriceUnavailable)
	}

	if resp.IsError() {
		return nil, domain.Ef(domain.KindCollaborator, "chart request for %s returned status %d", symbol, resp.StatusCode())
	}

	var parsed struct {
		Chart struct {
			Result []chartResult `json:"result"`
			Error  interface{}   `json:"error"`
		} `json:"chart"`
	}

	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, domain.Wrap(domain.KindCollaborator, fmt.Sprintf("chart response for %s malformed", symbol), err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s (%v): %w", symbol, parsed.Chart.Error, domain.ErrPriceUnavailable)
	}

	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s: %w", symbol, domain.ErrPriceUnavailable)
	}

	return &parsed.Chart.Result[0], nil
}

func lastClose(result *chartResult) float64 {
	if len(result.Indicators.Quote) == 0 {
		return 0
	}

	closes := result.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] > 0 {
			return closes[i]
		}
	}
	return 0
}

func previousDayClose(result *chartResult) float64 {
	if len(result.Indicators.Quote) == 0 {
		return 0
	}

	closes := result.Indicators.Quote[0].Close
	seen := 0
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] > 0 {
			seen++
			if seen == 2 {
				return closes[i]
			}
		}
	}
	return 0
}
