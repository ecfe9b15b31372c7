package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/clients/supabase"
	"github.com/stockfolio/backend/internal/clients/yahoo"
	"github.com/stockfolio/backend/internal/config"
	"github.com/stockfolio/backend/internal/jobs"
	"github.com/stockfolio/backend/internal/locks"
	"github.com/stockfolio/backend/internal/modules/auth"
	"github.com/stockfolio/backend/internal/modules/cash"
	"github.com/stockfolio/backend/internal/modules/marketdata"
	"github.com/stockfolio/backend/internal/modules/portfolio"
	"github.com/stockfolio/backend/internal/modules/trading"
	"github.com/stockfolio/backend/internal/modules/watchlist"
	"github.com/stockfolio/backend/internal/scheduler"
	"github.com/stockfolio/backend/internal/server"
	"github.com/stockfolio/backend/pkg/logger"
)

func main() {
	// Monetary fields marshal as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		errLog := logger.New(logger.Config{Level: "error"})
		errLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	logger.SetGlobalLogger(log)

	log.Info().Int("port", cfg.Port).Bool("dev_mode", cfg.DevMode).Msg("Starting backend")

	// Clients
	store := supabase.New(supabase.Config{
		BaseURL: cfg.SupabaseURL,
		APIKey:  cfg.SupabaseAPIKey,
		Timeout: cfg.SupabaseTimeout,
	}, log)

	quotes := yahoo.New(yahoo.Config{
		BaseURL:    cfg.QuotesBaseURL,
		Timeout:    cfg.QuotesTimeout,
		MaxRetries: cfg.QuotesRetries,
	}, log)

	// Repositories
	portfolioRepo := portfolio.NewPortfolioRepository(store, log)
	positionRepo := portfolio.NewPositionRepository(store, log)
	returnsRepo := portfolio.NewReturnsRepository(store, log)
	tradeRepo := trading.NewTradeRepository(store, log)
	transactionRepo := cash.NewTransactionRepository(store, log)
	watchlistRepo := watchlist.NewRepository(store, log)

	// Services
	portfolioLocks := locks.New()
	portfolioService := portfolio.NewService(portfolioRepo, positionRepo, returnsRepo, quotes, log)
	tradingService := trading.NewService(portfolioRepo, positionRepo, tradeRepo, quotes, portfolioService, portfolioLocks, log)
	cashService := cash.NewService(portfolioRepo, transactionRepo, portfolioService, portfolioLocks, log)
	watchlistService := watchlist.NewService(watchlistRepo, quotes, log)
	authService := auth.NewService(store, portfolioRepo, decimal.NewFromFloat(cfg.InitialCashBalance), log)

	// Background jobs
	sched := scheduler.New(log)
	revaluationJob := jobs.NewRevaluation(portfolioRepo, portfolioService, transactionRepo, returnsRepo, cfg.RevaluationWorkers, log)
	if err := sched.AddJob(cfg.RevaluationSchedule, revaluationJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register revaluation job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Log:     log,
		Handlers: server.Handlers{
			Auth:       auth.NewHandlers(authService, log),
			Cash:       cash.NewHandlers(cashService, log),
			MarketData: marketdata.NewHandlers(quotes, log),
			Portfolio:  portfolio.NewHandlers(portfolioService, log),
			Trading:    trading.NewHandlers(tradingService, log),
			Watchlist:  watchlist.NewHandlers(watchlistService, log),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Stopped")
}
