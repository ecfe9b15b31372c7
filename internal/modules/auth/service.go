// Package auth fronts the hosted auth provider and provisions a
// portfolio for first-time users.
package auth

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/stockfolio/backend/internal/domain"
)

// Authenticator verifies credentials against the hosted auth provider
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.AuthUser, error)
}

// PortfolioProvider looks up and provisions user portfolios
type PortfolioProvider interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Portfolio, error)
	Create(ctx context.Context, userID string, initialCash decimal.Decimal) (*domain.Portfolio, error)
}

// LoginResult is the login response body
type LoginResult struct {
	UserID      string          `json:"user_id"`
	Email       string          `json:"email"`
	PortfolioID int64           `json:"portfolio_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	NewUser     bool            `json:"new_user"`
}

// Service authenticates users and guarantees each one has a portfolio
type Service struct {
	auth        Authenticator
	portfolios  PortfolioProvider
	initialCash decimal.Decimal
	log         zerolog.Logger
}

// NewService creates a new auth service
func NewService(auth Authenticator, portfolios PortfolioProvider, initialCash decimal.Decimal, log zerolog.Logger) *Service {
	return &Service{
		auth:        auth,
		portfolios:  portfolios,
		initialCash: initialCash,
		log:         log.With().Str("service", "auth").Logger(),
	}
}

// Login verifies credentials and returns the user's portfolio,
// provisioning one with the starting balance on first login.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, domain.E(domain.KindValidation, "email and password are required")
	}

	user, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}

	pf, err := s.portfolios.GetByUserID(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	newUser := false
	if pf == nil {
		pf, err = s.portfolios.Create(ctx, user.ID, s.initialCash)
		if err != nil {
			return LoginResult{}, err
		}
		newUser = true
		s.log.Info().Str("user_id", user.ID).Msg("Provisioned portfolio on first login")
	}

	return LoginResult{
		UserID:      user.ID,
		Email:       user.Email,
		PortfolioID: pf.ID,
		CashBalance: pf.CashBalance,
		NewUser:     newUser,
	}, nil
}
