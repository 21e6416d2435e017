package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceField identifies one of the three running balance columns on a user.
type BalanceField string

const (
	BalanceFieldCash    BalanceField = "cash_balance"
	BalanceFieldBank    BalanceField = "bank_balance"
	BalanceFieldDigital BalanceField = "digital_balance"
)

// User represents a user in the system. The three balances are running
// totals mutated only through the ledger's increment operation; they are
// never recomputed from transaction history.
type User struct {
	ID             uuid.UUID       `json:"id"`
	AuthID         string          `json:"authId"`
	Email          string          `json:"email"`
	Name           *string         `json:"name"`
	Currency       string          `json:"currency"`
	CashBalance    decimal.Decimal `json:"cashBalance"`
	BankBalance    decimal.Decimal `json:"bankBalance"`
	DigitalBalance decimal.Decimal `json:"digitalBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Balance returns the balance stored in the given field.
func (u *User) Balance(field BalanceField) decimal.Decimal {
	switch field {
	case BalanceFieldBank:
		return u.BankBalance
	case BalanceFieldDigital:
		return u.DigitalBalance
	default:
		return u.CashBalance
	}
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	GetByID(id uuid.UUID) (*User, error)
	GetByAuthID(authID string) (*User, error)
	CreateOrGetByAuthID(authID, email string, name *string) (*User, error)
}
