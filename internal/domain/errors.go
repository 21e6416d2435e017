package domain

import "errors"

// Domain errors
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternalError       = errors.New("internal error")
	ErrUserNotFound        = errors.New("user not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidPeriod       = errors.New("invalid budget period")
	ErrInvalidThreshold    = errors.New("alert threshold must be between 0 and 100")
	ErrInvalidWindow       = errors.New("budget end date must not precede start date")
	ErrBudgetOverlap       = errors.New("budget overlaps an existing budget for this category and period")
	ErrCategoryNotExpense  = errors.New("budgets can only track expense categories")
	ErrNotesTooLong        = errors.New("notes exceed maximum length")
)

// Validation constants
const (
	MaxNotesLength = 1000
)
