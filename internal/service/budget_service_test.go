package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/okanehq/okane-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func newBudgetTestEnv() (*testutil.MockBudgetRepository, *testutil.MockCategoryRepository, *testutil.MockTransactionRepository, *BudgetService, uuid.UUID) {
	budgetRepo := testutil.NewMockBudgetRepository()
	categoryRepo := testutil.NewMockCategoryRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	budgetService := NewBudgetService(budgetRepo, categoryRepo, transactionRepo)
	return budgetRepo, categoryRepo, transactionRepo, budgetService, uuid.New()
}

func TestCreateBudget_SeedsSpentFromExistingTransactions(t *testing.T) {
	_, categoryRepo, transactionRepo, budgetService, userID := newBudgetTestEnv()

	categoryRepo.AddCategory(&domain.Category{
		ID:     1,
		UserID: userID,
		Name:   "Groceries",
		Type:   domain.CategoryTypeExpense,
	})

	// Two transactions already inside the June window, one outside.
	transactionRepo.AddTransaction(&domain.Transaction{
		UserID:          userID,
		CategoryID:      1,
		Amount:          decimal.RequireFromString("25.50"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
	})
	transactionRepo.AddTransaction(&domain.Transaction{
		UserID:          userID,
		CategoryID:      1,
		Amount:          decimal.RequireFromString("10"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
	})
	transactionRepo.AddTransaction(&domain.Transaction{
		UserID:          userID,
		CategoryID:      1,
		Amount:          decimal.RequireFromString("99"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC),
	})

	budget, err := budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:  1,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		LimitAmount: decimal.RequireFromString("200"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !budget.Spent.Equal(decimal.RequireFromString("35.50")) {
		t.Errorf("Expected spent seeded to 35.50, got %s", budget.Spent.String())
	}
	if budget.AlertThreshold != domain.DefaultAlertThreshold {
		t.Errorf("Expected default threshold %d, got %d", domain.DefaultAlertThreshold, budget.AlertThreshold)
	}
	if !budget.StartDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected start date 2025-06-01, got %v", budget.StartDate)
	}
	if !budget.EndDate.Equal(time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected monthly window to end 2025-06-30, got %v", budget.EndDate)
	}
}

func TestCreateBudget_RejectsSamePeriodOverlap(t *testing.T) {
	budgetRepo, categoryRepo, _, budgetService, userID := newBudgetTestEnv()

	categoryRepo.AddCategory(&domain.Category{
		ID:     1,
		UserID: userID,
		Name:   "Groceries",
		Type:   domain.CategoryTypeExpense,
	})
	budgetRepo.AddBudget(&domain.Budget{
		UserID:      userID,
		CategoryID:  1,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		LimitAmount: decimal.RequireFromString("100"),
	})

	_, err := budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:  1,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		LimitAmount: decimal.RequireFromString("50"),
	})
	if !errors.Is(err, domain.ErrBudgetOverlap) {
		t.Errorf("Expected ErrBudgetOverlap, got %v", err)
	}

	// A different granularity may share the window.
	weekly, err := budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:  1,
		Period:      domain.BudgetPeriodWeekly,
		StartDate:   time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		LimitAmount: decimal.RequireFromString("50"),
	})
	if err != nil {
		t.Fatalf("Expected weekly budget over the same dates to be allowed, got %v", err)
	}
	if !weekly.EndDate.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected weekly window to end 2025-06-15, got %v", weekly.EndDate)
	}
}

func TestCreateBudget_Validation(t *testing.T) {
	_, categoryRepo, _, budgetService, userID := newBudgetTestEnv()

	categoryRepo.AddCategory(&domain.Category{
		ID:     1,
		UserID: userID,
		Name:   "Groceries",
		Type:   domain.CategoryTypeExpense,
	})
	categoryRepo.AddCategory(&domain.Category{
		ID:     2,
		UserID: userID,
		Name:   "Salary",
		Type:   domain.CategoryTypeRevenue,
	})

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:  1,
		Period:      domain.BudgetPeriod("quarterly"),
		StartDate:   start,
		LimitAmount: decimal.RequireFromString("100"),
	})
	if !errors.Is(err, domain.ErrInvalidPeriod) {
		t.Errorf("Expected ErrInvalidPeriod, got %v", err)
	}

	_, err = budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:  1,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   start,
		LimitAmount: decimal.Zero,
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	badThreshold := int32(120)
	_, err = budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:     1,
		Period:         domain.BudgetPeriodMonthly,
		StartDate:      start,
		LimitAmount:    decimal.RequireFromString("100"),
		AlertThreshold: &badThreshold,
	})
	if !errors.Is(err, domain.ErrInvalidThreshold) {
		t.Errorf("Expected ErrInvalidThreshold, got %v", err)
	}

	_, err = budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:  2,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   start,
		LimitAmount: decimal.RequireFromString("100"),
	})
	if !errors.Is(err, domain.ErrCategoryNotExpense) {
		t.Errorf("Expected ErrCategoryNotExpense, got %v", err)
	}

	earlier := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = budgetService.CreateBudget(userID, CreateBudgetInput{
		CategoryID:  1,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   start,
		EndDate:     &earlier,
		LimitAmount: decimal.RequireFromString("100"),
	})
	if !errors.Is(err, domain.ErrInvalidWindow) {
		t.Errorf("Expected ErrInvalidWindow, got %v", err)
	}
}

func TestUpdateBudget_DoesNotResetLatchedAlert(t *testing.T) {
	budgetRepo, _, _, budgetService, userID := newBudgetTestEnv()

	warnedAt := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	budgetRepo.AddBudget(&domain.Budget{
		UserID:             userID,
		CategoryID:         1,
		Period:             domain.BudgetPeriodMonthly,
		StartDate:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		LimitAmount:        decimal.RequireFromString("100"),
		Spent:              decimal.RequireFromString("85"),
		AlertThreshold:     80,
		WarningAlertSentAt: &warnedAt,
	})

	updated, err := budgetService.UpdateBudget(userID, 1, UpdateBudgetInput{
		LimitAmount:    decimal.RequireFromString("500"),
		AlertThreshold: 90,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !updated.LimitAmount.Equal(decimal.RequireFromString("500")) {
		t.Errorf("Expected limit 500, got %s", updated.LimitAmount.String())
	}
	if updated.WarningAlertSentAt == nil {
		t.Error("Expected latched warning flag to survive a limit raise")
	}

	_, err = budgetService.UpdateBudget(userID, 1, UpdateBudgetInput{
		LimitAmount:    decimal.Zero,
		AlertThreshold: 90,
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
}

func TestRefreshBudgetSpent_OverwritesDrift(t *testing.T) {
	budgetRepo, _, transactionRepo, budgetService, userID := newBudgetTestEnv()

	budgetRepo.AddBudget(&domain.Budget{
		UserID:      userID,
		CategoryID:  1,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		LimitAmount: decimal.RequireFromString("100"),
		Spent:       decimal.RequireFromString("999"), // drifted
	})
	transactionRepo.AddTransaction(&domain.Transaction{
		UserID:          userID,
		CategoryID:      1,
		Amount:          decimal.RequireFromString("42"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	})

	refreshed, err := budgetService.RefreshBudgetSpent(userID, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !refreshed.Spent.Equal(decimal.RequireFromString("42")) {
		t.Errorf("Expected spent recomputed to 42, got %s", refreshed.Spent.String())
	}

	_, err = budgetService.RefreshBudgetSpent(userID, 99)
	if !errors.Is(err, domain.ErrBudgetNotFound) {
		t.Errorf("Expected ErrBudgetNotFound, got %v", err)
	}
}

func TestDeleteBudget(t *testing.T) {
	budgetRepo, _, _, budgetService, userID := newBudgetTestEnv()

	budgetRepo.AddBudget(&domain.Budget{
		UserID:      userID,
		CategoryID:  1,
		Period:      domain.BudgetPeriodMonthly,
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		LimitAmount: decimal.RequireFromString("100"),
	})

	if err := budgetService.DeleteBudget(userID, 1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := budgetService.DeleteBudget(userID, 1); !errors.Is(err, domain.ErrBudgetNotFound) {
		t.Errorf("Expected ErrBudgetNotFound, got %v", err)
	}
}
