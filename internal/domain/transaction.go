package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType partitions a user's total balance.
type AccountType string

const (
	AccountTypeCash    AccountType = "cash"
	AccountTypeBank    AccountType = "bank"
	AccountTypeDigital AccountType = "digital"
)

// Valid reports whether a is a known account type.
func (a AccountType) Valid() bool {
	return a == AccountTypeCash || a == AccountTypeBank || a == AccountTypeDigital
}

// BalanceFieldForAccount maps an account type to its balance column.
// Unknown or missing values fall back to cash; that fallback is a documented
// default for legacy selectors, not a validation failure.
func BalanceFieldForAccount(a AccountType) BalanceField {
	switch a {
	case AccountTypeBank:
		return BalanceFieldBank
	case AccountTypeDigital:
		return BalanceFieldDigital
	default:
		return BalanceFieldCash
	}
}

// Transaction stores a positive magnitude only; the owning category's type
// decides the sign applied to balances and budgets.
type Transaction struct {
	ID              int32           `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	CategoryID      int32           `json:"categoryId"`
	Amount          decimal.Decimal `json:"amount"`
	AccountType     AccountType     `json:"accountType"`
	TransactionDate time.Time       `json:"transactionDate"`
	Notes           *string         `json:"notes,omitempty"`
	Recurrence      *string         `json:"recurrence,omitempty"`
	ReceiptKey      *string         `json:"receiptKey,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type TransactionFilters struct {
	CategoryID  *int32
	AccountType *AccountType
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int32
	PageSize    int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
	TotalPages int32          `json:"totalPages"`
}

// TransactionRepository is the read-side surface. All mutations go through
// the ledger store so they stay inside one atomic unit of work.
type TransactionRepository interface {
	GetByID(userID uuid.UUID, id int32) (*Transaction, error)
	GetByUser(userID uuid.UUID, filters *TransactionFilters) (*PaginatedTransactions, error)
	SumExpensesByCategoryAndRange(userID uuid.UUID, categoryID int32, startDate, endDate time.Time) (decimal.Decimal, error)
	SetReceiptKey(userID uuid.UUID, id int32, key *string) (*Transaction, error)
}
