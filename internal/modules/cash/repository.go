package cash

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/storage"
)

// TransactionRepository handles the append-only cash movement log
type TransactionRepository struct {
	store storage.Store
	log   zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(store storage.Store, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		store: store,
		log:   log.With().Str("repo", "transaction").Logger(),
	}
}

// Append records one cash movement
func (r *TransactionRepository) Append(ctx context.Context, tx domain.Transaction) error {
	if err := r.store.Insert(ctx, "transactions", tx, nil); err != nil {
		return fmt.Errorf("failed to append %s transaction: %w", tx.TransactionType, err)
	}

	return nil
}

// ByPortfolio returns a portfolio's cash movements, oldest first
func (r *TransactionRepository) ByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Transaction, error) {
	var rows []domain.Transaction
	filter := storage.Filter{"portfolio_id": strconv.FormatInt(portfolioID, 10)}

	err := r.store.Select(ctx, "transactions", filter, &rows, storage.WithOrder("transaction_date.asc"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for portfolio %d: %w", portfolioID, err)
	}

	return rows, nil
}
