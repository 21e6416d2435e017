package service

import (
	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// BalanceService exposes a user's running balances
type BalanceService struct {
	userRepo domain.UserRepository
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(userRepo domain.UserRepository) *BalanceService {
	return &BalanceService{userRepo: userRepo}
}

// Balances is the read model for the three running balances
type Balances struct {
	Cash     decimal.Decimal `json:"cash"`
	Bank     decimal.Decimal `json:"bank"`
	Digital  decimal.Decimal `json:"digital"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// GetBalances returns the user's stored balances. The values are running
// totals, never recomputed from transaction history.
func (s *BalanceService) GetBalances(userID uuid.UUID) (*Balances, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return &Balances{
		Cash:     user.CashBalance,
		Bank:     user.BankBalance,
		Digital:  user.DigitalBalance,
		Total:    user.CashBalance.Add(user.BankBalance).Add(user.DigitalBalance),
		Currency: user.Currency,
	}, nil
}
