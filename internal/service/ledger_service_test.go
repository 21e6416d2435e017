package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/okanehq/okane-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ledgerTestEnv struct {
	store        *testutil.MemoryLedgerStore
	categoryRepo *testutil.MockCategoryRepository
	dispatcher   *testutil.MockDispatcher
	service      *LedgerService
	userID       uuid.UUID
}

func newLedgerTestEnv() *ledgerTestEnv {
	store := testutil.NewMemoryLedgerStore()
	categoryRepo := testutil.NewMockCategoryRepository()
	dispatcher := testutil.NewMockDispatcher()
	return &ledgerTestEnv{
		store:        store,
		categoryRepo: categoryRepo,
		dispatcher:   dispatcher,
		service:      NewLedgerService(store, categoryRepo, dispatcher, zerolog.Nop()),
		userID:       uuid.New(),
	}
}

func (env *ledgerTestEnv) addExpenseCategory(id int32, name string) {
	env.categoryRepo.AddCategory(&domain.Category{
		ID:     id,
		UserID: env.userID,
		Name:   name,
		Type:   domain.CategoryTypeExpense,
	})
}

func (env *ledgerTestEnv) addRevenueCategory(id int32, name string) {
	env.categoryRepo.AddCategory(&domain.Category{
		ID:     id,
		UserID: env.userID,
		Name:   name,
		Type:   domain.CategoryTypeRevenue,
	})
}

func (env *ledgerTestEnv) addBudget(categoryID int32, limit string, threshold int32) *domain.Budget {
	budget := &domain.Budget{
		UserID:         env.userID,
		CategoryID:     categoryID,
		Period:         domain.BudgetPeriodMonthly,
		StartDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		LimitAmount:    decimal.RequireFromString(limit),
		Spent:          decimal.Zero,
		AlertThreshold: threshold,
	}
	env.store.AddBudget(budget)
	return budget
}

var midJune = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func TestCreateTransaction_ExpenseUpdatesBalanceAndBudget(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	created, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("40"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created.ID == 0 {
		t.Error("Expected created transaction to have an ID")
	}

	cash := env.store.Balance(env.userID, domain.BalanceFieldCash)
	if !cash.Equal(decimal.RequireFromString("-40")) {
		t.Errorf("Expected cash balance -40, got %s", cash.String())
	}

	stored := env.store.Budgets[budget.ID]
	if !stored.Spent.Equal(decimal.RequireFromString("40")) {
		t.Errorf("Expected spent 40, got %s", stored.Spent.String())
	}
	if stored.WarningAlertSentAt != nil {
		t.Error("Expected no warning alert at 40% usage")
	}
	if len(env.dispatcher.Sent) != 0 {
		t.Errorf("Expected no notifications, got %d", len(env.dispatcher.Sent))
	}
}

func TestCreateTransaction_WarningAlertLatchedOnce(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	_, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("40"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	second, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("45"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored := env.store.Budgets[budget.ID]
	if !stored.Spent.Equal(decimal.RequireFromString("85")) {
		t.Errorf("Expected spent 85, got %s", stored.Spent.String())
	}
	if stored.WarningAlertSentAt == nil {
		t.Fatal("Expected warning alert to be latched at 85% usage")
	}
	if stored.ExceededAlertSentAt != nil {
		t.Error("Expected exceeded alert to stay unset")
	}

	if len(env.dispatcher.Sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(env.dispatcher.Sent))
	}
	sent := env.dispatcher.Sent[0]
	if sent.UserID != env.userID {
		t.Errorf("Expected notification for user %s, got %s", env.userID, sent.UserID)
	}
	if sent.Notification.Data["type"] != "budget.warning" {
		t.Errorf("Expected type 'budget.warning', got %s", sent.Notification.Data["type"])
	}
	if !strings.Contains(sent.Notification.Body, "Groceries") {
		t.Errorf("Expected body to name the category, got %q", sent.Notification.Body)
	}

	// Deleting the second transaction drops spent back under the threshold,
	// but the latched flag must survive and no new alert may fire.
	if err := env.service.DeleteTransaction(context.Background(), env.userID, second.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored = env.store.Budgets[budget.ID]
	if !stored.Spent.Equal(decimal.RequireFromString("40")) {
		t.Errorf("Expected spent 40 after delete, got %s", stored.Spent.String())
	}
	if stored.WarningAlertSentAt == nil {
		t.Error("Expected warning alert to stay latched after spent dropped")
	}

	// Crossing the threshold again stays silent for this budget instance.
	_, err = env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("45"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(env.dispatcher.Sent) != 1 {
		t.Errorf("Expected no repeat notification, got %d total", len(env.dispatcher.Sent))
	}
}

func TestCreateTransaction_ConcurrentLatchSuppressesDuplicateAlert(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	// Simulate a concurrent expense committing between the covering-budget
	// read and the locked spent increment: by the time this mutation holds
	// the row, the warning flag is already latched. The alert evaluation
	// must see the committed flag and stay silent.
	latchedAt := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	env.store.BeforeBudgetIncrement = func(budgetID int32) {
		b := env.store.Budgets[budgetID]
		b.Spent = b.Spent.Add(decimal.RequireFromString("85"))
		b.WarningAlertSentAt = &latchedAt
	}

	_, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("5"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored := env.store.Budgets[budget.ID]
	if !stored.Spent.Equal(decimal.RequireFromString("90")) {
		t.Errorf("Expected spent 90, got %s", stored.Spent.String())
	}
	if stored.WarningAlertSentAt == nil || !stored.WarningAlertSentAt.Equal(latchedAt) {
		t.Errorf("Expected the concurrently latched timestamp to survive, got %v", stored.WarningAlertSentAt)
	}
	if len(env.dispatcher.Sent) != 0 {
		t.Errorf("Expected no duplicate one-shot alert, got %d notification(s)", len(env.dispatcher.Sent))
	}
}

func TestCreateTransaction_JumpLatchesExceededOnly(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Dining")
	budget := env.addBudget(1, "100", 80)

	_, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("150"),
		AccountType:     domain.AccountTypeBank,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored := env.store.Budgets[budget.ID]
	if stored.ExceededAlertSentAt == nil {
		t.Fatal("Expected exceeded alert to be latched")
	}
	if stored.WarningAlertSentAt != nil {
		t.Error("Expected warning flag to stay unset on a direct jump to exceeded")
	}

	if len(env.dispatcher.Sent) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(env.dispatcher.Sent))
	}
	if env.dispatcher.Sent[0].Notification.Data["type"] != "budget.exceeded" {
		t.Errorf("Expected type 'budget.exceeded', got %s", env.dispatcher.Sent[0].Notification.Data["type"])
	}
}

func TestCreateTransaction_RevenueTouchesNoBudget(t *testing.T) {
	env := newLedgerTestEnv()
	env.addRevenueCategory(2, "Salary")
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	_, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      2,
		Amount:          decimal.RequireFromString("2500"),
		AccountType:     domain.AccountTypeBank,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	bank := env.store.Balance(env.userID, domain.BalanceFieldBank)
	if !bank.Equal(decimal.RequireFromString("2500")) {
		t.Errorf("Expected bank balance 2500, got %s", bank.String())
	}
	if !env.store.Budgets[budget.ID].Spent.IsZero() {
		t.Errorf("Expected budget untouched by revenue, got spent %s", env.store.Budgets[budget.ID].Spent.String())
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")

	_, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:  1,
		Amount:      decimal.RequireFromString("-5"),
		AccountType: domain.AccountTypeCash,
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	_, err = env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:  1,
		Amount:      decimal.RequireFromString("5"),
		AccountType: domain.AccountType("crypto"),
	})
	if !errors.Is(err, domain.ErrInvalidAccountType) {
		t.Errorf("Expected ErrInvalidAccountType, got %v", err)
	}

	longNotes := strings.Repeat("x", domain.MaxNotesLength+1)
	_, err = env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:  1,
		Amount:      decimal.RequireFromString("5"),
		AccountType: domain.AccountTypeCash,
		Notes:       &longNotes,
	})
	if !errors.Is(err, domain.ErrNotesTooLong) {
		t.Errorf("Expected ErrNotesTooLong, got %v", err)
	}

	_, err = env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:  99,
		Amount:      decimal.RequireFromString("5"),
		AccountType: domain.AccountTypeCash,
	})
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Errorf("Expected ErrCategoryNotFound, got %v", err)
	}
}

func TestDeleteTransaction_ReversesEffectExactly(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	created, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("33.33"),
		AccountType:     domain.AccountTypeDigital,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := env.service.DeleteTransaction(context.Background(), env.userID, created.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	digital := env.store.Balance(env.userID, domain.BalanceFieldDigital)
	if !digital.IsZero() {
		t.Errorf("Expected digital balance to return exactly to zero, got %s", digital.String())
	}
	if !env.store.Budgets[budget.ID].Spent.IsZero() {
		t.Errorf("Expected spent to return exactly to zero, got %s", env.store.Budgets[budget.ID].Spent.String())
	}

	if err := env.service.DeleteTransaction(context.Background(), env.userID, created.ID); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound on second delete, got %v", err)
	}
}

func TestUpdateTransaction_NoopProducesNoChanges(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	created, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("40"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	sameAmount := decimal.RequireFromString("40")
	_, err = env.service.UpdateTransaction(context.Background(), env.userID, created.ID, UpdateTransactionInput{
		Amount: &sameAmount,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	cash := env.store.Balance(env.userID, domain.BalanceFieldCash)
	if !cash.Equal(decimal.RequireFromString("-40")) {
		t.Errorf("Expected cash balance unchanged at -40, got %s", cash.String())
	}
	if !env.store.Budgets[budget.ID].Spent.Equal(decimal.RequireFromString("40")) {
		t.Errorf("Expected spent unchanged at 40, got %s", env.store.Budgets[budget.ID].Spent.String())
	}
}

func TestUpdateTransaction_AccountMove(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")

	created, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("60"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	bank := domain.AccountTypeBank
	_, err = env.service.UpdateTransaction(context.Background(), env.userID, created.ID, UpdateTransactionInput{
		AccountType: &bank,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := env.store.Balance(env.userID, domain.BalanceFieldCash); !got.IsZero() {
		t.Errorf("Expected cash balance restored to zero, got %s", got.String())
	}
	if got := env.store.Balance(env.userID, domain.BalanceFieldBank); !got.Equal(decimal.RequireFromString("-60")) {
		t.Errorf("Expected bank balance -60, got %s", got.String())
	}
}

func TestUpdateTransaction_CategoryMove(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	env.addExpenseCategory(2, "Dining")
	groceries := env.addBudget(1, "100", 80)
	dining := env.addBudget(2, "100", 80)

	created, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("50"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	diningID := int32(2)
	_, err = env.service.UpdateTransaction(context.Background(), env.userID, created.ID, UpdateTransactionInput{
		CategoryID: &diningID,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !env.store.Budgets[groceries.ID].Spent.IsZero() {
		t.Errorf("Expected old budget spent back to zero, got %s", env.store.Budgets[groceries.ID].Spent.String())
	}
	if !env.store.Budgets[dining.ID].Spent.Equal(decimal.RequireFromString("50")) {
		t.Errorf("Expected new budget spent 50, got %s", env.store.Budgets[dining.ID].Spent.String())
	}

	cash := env.store.Balance(env.userID, domain.BalanceFieldCash)
	if !cash.Equal(decimal.RequireFromString("-50")) {
		t.Errorf("Expected cash balance unchanged at -50, got %s", cash.String())
	}
}

func TestUpdateTransaction_DateMovesOutOfWindow(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	created, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("70"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	july := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	_, err = env.service.UpdateTransaction(context.Background(), env.userID, created.ID, UpdateTransactionInput{
		TransactionDate: &july,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !env.store.Budgets[budget.ID].Spent.IsZero() {
		t.Errorf("Expected spent reversed to zero after date left window, got %s", env.store.Budgets[budget.ID].Spent.String())
	}
	cash := env.store.Balance(env.userID, domain.BalanceFieldCash)
	if !cash.Equal(decimal.RequireFromString("-70")) {
		t.Errorf("Expected cash balance unchanged at -70, got %s", cash.String())
	}
}

func TestUpdateTransaction_NotFound(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")

	amount := decimal.RequireFromString("10")
	_, err := env.service.UpdateTransaction(context.Background(), env.userID, 999, UpdateTransactionInput{
		Amount: &amount,
	})
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
}

func TestCreateTransaction_RollbackOnBudgetFailure(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)

	env.store.IncrementBudgetSpentErr = errors.New("deadlock detected")

	_, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("40"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err == nil {
		t.Fatal("Expected error when budget increment fails")
	}

	if got := env.store.Balance(env.userID, domain.BalanceFieldCash); !got.IsZero() {
		t.Errorf("Expected cash balance rolled back to zero, got %s", got.String())
	}
	if !env.store.Budgets[budget.ID].Spent.IsZero() {
		t.Errorf("Expected spent rolled back to zero, got %s", env.store.Budgets[budget.ID].Spent.String())
	}
	if len(env.store.Transactions) != 0 {
		t.Errorf("Expected transaction row rolled back, found %d rows", len(env.store.Transactions))
	}
	if len(env.dispatcher.Sent) != 0 {
		t.Errorf("Expected no notifications from an aborted unit of work, got %d", len(env.dispatcher.Sent))
	}
}

func TestCreateTransaction_DispatchFailureDoesNotFailMutation(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")
	budget := env.addBudget(1, "100", 80)
	env.dispatcher.NotifyErr = errors.New("connection reset")

	_, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:      1,
		Amount:          decimal.RequireFromString("90"),
		AccountType:     domain.AccountTypeCash,
		TransactionDate: &midJune,
	})
	if err != nil {
		t.Fatalf("Expected mutation to succeed despite dispatch failure, got %v", err)
	}

	stored := env.store.Budgets[budget.ID]
	if !stored.Spent.Equal(decimal.RequireFromString("90")) {
		t.Errorf("Expected spent 90, got %s", stored.Spent.String())
	}
	if stored.WarningAlertSentAt == nil {
		t.Error("Expected warning flag latched even when delivery failed")
	}
}

func TestCreateTransaction_NormalizesNotes(t *testing.T) {
	env := newLedgerTestEnv()
	env.addExpenseCategory(1, "Groceries")

	blank := "   "
	created, err := env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:  1,
		Amount:      decimal.RequireFromString("5"),
		AccountType: domain.AccountTypeCash,
		Notes:       &blank,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created.Notes != nil {
		t.Errorf("Expected blank notes stored as nil, got %q", *created.Notes)
	}

	padded := "  weekly shop  "
	created, err = env.service.CreateTransaction(context.Background(), env.userID, CreateTransactionInput{
		CategoryID:  1,
		Amount:      decimal.RequireFromString("5"),
		AccountType: domain.AccountTypeCash,
		Notes:       &padded,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created.Notes == nil || *created.Notes != "weekly shop" {
		t.Errorf("Expected trimmed notes 'weekly shop', got %v", created.Notes)
	}
}
