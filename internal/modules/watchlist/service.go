// Package watchlist manages the symbols a user follows and enriches
// them with live market data on read.
package watchlist

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/clients/yahoo"
	"github.com/stockfolio/backend/internal/domain"
)

const defaultName = "My Watchlist"

// Store is the watchlist persistence the service depends on
type Store interface {
	GetByUser(ctx context.Context, userID string) (*domain.Watchlist, error)
	Create(ctx context.Context, userID, name string) (*domain.Watchlist, error)
	Symbols(ctx context.Context, watchlistID int64) ([]string, error)
	AddSymbol(ctx context.Context, watchlistID int64, symbol string) error
	RemoveSymbol(ctx context.Context, watchlistID int64, symbol string) error
}

// QuoteSource provides full quotes for watchlist enrichment
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (yahoo.Quote, error)
}

// EntryView is one watched symbol with market data attached when the
// quote source had it
type EntryView struct {
	Symbol         string   `json:"stock_symbol"`
	Name           string   `json:"name,omitempty"`
	Price          *float64 `json:"price,omitempty"`
	DailyReturnPct *float64 `json:"daily_return_pct,omitempty"`
}

// View is the watchlist endpoint response
type View struct {
	WatchlistID int64       `json:"watchlist_id"`
	Name        string      `json:"watchlist_name"`
	Entries     []EntryView `json:"entries"`
}

// Service manages watchlists
type Service struct {
	repo   Store
	quotes QuoteSource
	log    zerolog.Logger
}

// NewService creates a new watchlist service
func NewService(repo Store, quotes QuoteSource, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quotes,
		log:    log.With().Str("service", "watchlist").Logger(),
	}
}

// Get returns the user's watchlist with quotes attached. A user with no
// watchlist yet gets an empty view, not an error.
func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	if userID == "" {
		return View{}, domain.E(domain.KindValidation, "user_id is required")
	}

	wl, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if wl == nil {
		return View{Name: defaultName, Entries: []EntryView{}}, nil
	}

	symbols, err := s.repo.Symbols(ctx, wl.ID)
	if err != nil {
		return View{}, err
	}

	entries := make([]EntryView, 0, len(symbols))
	for _, symbol := range symbols {
		entry := EntryView{Symbol: symbol}

		quote, err := s.quotes.GetQuote(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		} else {
			price := quote.Price
			ret := quote.DailyReturnPct
			entry.Name = quote.Name
			entry.Price = &price
			entry.DailyReturnPct = &ret
		}

		entries = append(entries, entry)
	}

	return View{WatchlistID: wl.ID, Name: wl.Name, Entries: entries}, nil
}

// Add puts a symbol on the user's watchlist, creating the default list
// on first use. The symbol must be quotable; adding it twice is
// idempotent.
func (s *Service) Add(ctx context.Context, userID, symbol string) (View, error) {
	if userID == "" {
		return View{}, domain.E(domain.KindValidation, "user_id is required")
	}

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return View{}, domain.E(domain.KindValidation, "stock_symbol is required")
	}

	if _, err := s.quotes.GetQuote(ctx, symbol); err != nil {
		return View{}, domain.Ef(domain.KindValidation, "unknown symbol %s", symbol)
	}

	wl, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if wl == nil {
		wl, err = s.repo.Create(ctx, userID, defaultName)
		if err != nil {
			return View{}, err
		}
	}

	symbols, err := s.repo.Symbols(ctx, wl.ID)
	if err != nil {
		return View{}, err
	}

	if !contains(symbols, symbol) {
		if err := s.repo.AddSymbol(ctx, wl.ID, symbol); err != nil {
			return View{}, err
		}
	}

	return s.Get(ctx, userID)
}

// Remove takes a symbol off the user's watchlist. A symbol that was not
// on the list is a not-found.
func (s *Service) Remove(ctx context.Context, userID, symbol string) (View, error) {
	if userID == "" {
		return View{}, domain.E(domain.KindValidation, "user_id is required")
	}

	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return View{}, domain.E(domain.KindValidation, "stock_symbol is required")
	}

	wl, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return View{}, err
	}
	if wl == nil {
		return View{}, domain.Ef(domain.KindNotFound, "%s is not on the watchlist", symbol)
	}

	symbols, err := s.repo.Symbols(ctx, wl.ID)
	if err != nil {
		return View{}, err
	}
	if !contains(symbols, symbol) {
		return View{}, domain.Ef(domain.KindNotFound, "%s is not on the watchlist", symbol)
	}

	if err := s.repo.RemoveSymbol(ctx, wl.ID, symbol); err != nil {
		return View{}, err
	}

	return s.Get(ctx, userID)
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func contains(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
