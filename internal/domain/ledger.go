package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Effect captures everything a single transaction does to derived state:
// which balance it moves and, for expenses, which budget window it consumes.
type Effect struct {
	Account    AccountType
	CategoryID int32
	Expense    bool
	Amount     decimal.Decimal
	Date       time.Time
}

// NewEffect builds the effect of a transaction given its category's type.
func NewEffect(t *Transaction, categoryType CategoryType) Effect {
	return Effect{
		Account:    t.AccountType,
		CategoryID: t.CategoryID,
		Expense:    categoryType == CategoryTypeExpense,
		Amount:     t.Amount,
		Date:       t.TransactionDate,
	}
}

// BalanceDelta returns the signed amount the effect applies to its balance:
// negative for expenses, positive for revenue.
func (e Effect) BalanceDelta() decimal.Decimal {
	if e.Expense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// BalanceChange is one increment to apply to a user balance column.
type BalanceChange struct {
	Field BalanceField
	Delta decimal.Decimal
}

// BudgetChange is one increment to apply to whichever budgets cover the
// given category and date. Delta is signed.
type BudgetChange struct {
	CategoryID int32
	Date       time.Time
	Delta      decimal.Decimal
}

// Reconcile computes the increments that move derived state from the old
// effect to the new one. A nil old is a create, a nil new is a delete, and
// both set is an update; the account-changed/category-changed cross product
// reduces to reversing the old effect and applying the new one. Increments
// that target the same balance field, or the same category on the same date,
// are netted, and zero increments are dropped, so a semantic no-op update
// yields no work at all.
func Reconcile(oldEffect, newEffect *Effect) ([]BalanceChange, []BudgetChange) {
	var balances []BalanceChange
	var budgets []BudgetChange

	addBalance := func(field BalanceField, delta decimal.Decimal) {
		for i := range balances {
			if balances[i].Field == field {
				balances[i].Delta = balances[i].Delta.Add(delta)
				return
			}
		}
		balances = append(balances, BalanceChange{Field: field, Delta: delta})
	}
	addBudget := func(categoryID int32, date time.Time, delta decimal.Decimal) {
		for i := range budgets {
			if budgets[i].CategoryID == categoryID && budgets[i].Date.Equal(date) {
				budgets[i].Delta = budgets[i].Delta.Add(delta)
				return
			}
		}
		budgets = append(budgets, BudgetChange{CategoryID: categoryID, Date: date, Delta: delta})
	}

	if oldEffect != nil {
		addBalance(BalanceFieldForAccount(oldEffect.Account), oldEffect.BalanceDelta().Neg())
		if oldEffect.Expense {
			addBudget(oldEffect.CategoryID, oldEffect.Date, oldEffect.Amount.Neg())
		}
	}
	if newEffect != nil {
		addBalance(BalanceFieldForAccount(newEffect.Account), newEffect.BalanceDelta())
		if newEffect.Expense {
			addBudget(newEffect.CategoryID, newEffect.Date, newEffect.Amount)
		}
	}

	balances = dropZeroBalances(balances)
	budgets = dropZeroBudgets(budgets)
	return balances, budgets
}

func dropZeroBalances(in []BalanceChange) []BalanceChange {
	out := in[:0]
	for _, c := range in {
		if !c.Delta.IsZero() {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dropZeroBudgets(in []BudgetChange) []BudgetChange {
	out := in[:0]
	for _, c := range in {
		if !c.Delta.IsZero() {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// LedgerStore is the persistent record store surface the engine mutates
// through. WithTransaction wraps fn in one atomic unit of work with at least
// read-committed isolation and row-level locking on touched rows; every
// write method expresses its change as an increment issued to the store so
// concurrent mutations cannot lose an update. Aborting the context aborts
// the unit of work.
type LedgerStore interface {
	WithTransaction(ctx context.Context, fn func(LedgerStore) error) error

	InsertTransaction(ctx context.Context, t *Transaction) (*Transaction, error)
	GetTransactionForUpdate(ctx context.Context, userID uuid.UUID, id int32) (*Transaction, error)
	UpdateTransactionRow(ctx context.Context, t *Transaction) (*Transaction, error)
	DeleteTransactionRow(ctx context.Context, userID uuid.UUID, id int32) error

	IncrementBalance(ctx context.Context, userID uuid.UUID, field BalanceField, delta decimal.Decimal) error
	FindCoveringBudgets(ctx context.Context, userID uuid.UUID, categoryID int32, date time.Time) ([]*Budget, error)
	IncrementBudgetSpent(ctx context.Context, budgetID int32, delta decimal.Decimal) (*Budget, error)
	SetAlertFlag(ctx context.Context, budgetID int32, kind AlertKind, at time.Time) error
}
