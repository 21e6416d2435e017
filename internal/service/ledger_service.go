package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerService orchestrates transaction mutations. Every create, update and
// delete runs inside one unit of work that writes the transaction row, the
// affected balance columns and the covering budgets' spent totals together,
// then evaluates budget alerts. Notifications go out only after commit.
type LedgerService struct {
	store        domain.LedgerStore
	categoryRepo domain.CategoryRepository
	dispatcher   domain.Dispatcher
	logger       zerolog.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(store domain.LedgerStore, categoryRepo domain.CategoryRepository, dispatcher domain.Dispatcher, logger zerolog.Logger) *LedgerService {
	return &LedgerService{
		store:        store,
		categoryRepo: categoryRepo,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// CreateTransactionInput holds the input for creating a transaction
type CreateTransactionInput struct {
	CategoryID      int32
	Amount          decimal.Decimal
	AccountType     domain.AccountType
	TransactionDate *time.Time
	Notes           *string
	Recurrence      *string
}

// CreateTransaction records a new transaction and applies its effect to the
// owner's balance and any covering budgets.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID uuid.UUID, input CreateTransactionInput) (*domain.Transaction, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if !input.AccountType.Valid() {
		return nil, domain.ErrInvalidAccountType
	}
	notes, err := normalizeNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetByID(userID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	transactionDate := time.Now().UTC().Truncate(24 * time.Hour)
	if input.TransactionDate != nil {
		transactionDate = *input.TransactionDate
	}

	var created *domain.Transaction
	var events []domain.AlertEvent
	err = s.store.WithTransaction(ctx, func(ls domain.LedgerStore) error {
		created, err = ls.InsertTransaction(ctx, &domain.Transaction{
			UserID:          userID,
			CategoryID:      input.CategoryID,
			Amount:          input.Amount,
			AccountType:     input.AccountType,
			TransactionDate: transactionDate,
			Notes:           notes,
			Recurrence:      input.Recurrence,
		})
		if err != nil {
			return err
		}

		effect := domain.NewEffect(created, category.Type)
		balances, budgets := domain.Reconcile(nil, &effect)
		events, err = s.applyChanges(ctx, ls, userID, balances, budgets, map[int32]string{category.ID: category.Name})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(userID, events)
	return created, nil
}

// UpdateTransactionInput holds the input for updating a transaction. Nil
// fields are left unchanged.
type UpdateTransactionInput struct {
	CategoryID      *int32
	Amount          *decimal.Decimal
	AccountType     *domain.AccountType
	TransactionDate *time.Time
	Notes           *string
	Recurrence      *string
}

// UpdateTransaction edits a transaction and reconciles derived state from the
// old effect to the new one: the old amount is reversed on its old targets
// and the new amount applied to the new ones, netted into minimal increments.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID uuid.UUID, id int32, input UpdateTransactionInput) (*domain.Transaction, error) {
	if input.Amount != nil && input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if input.AccountType != nil && !input.AccountType.Valid() {
		return nil, domain.ErrInvalidAccountType
	}
	var notes *string
	if input.Notes != nil {
		n, err := normalizeNotes(input.Notes)
		if err != nil {
			return nil, err
		}
		notes = n
	}

	var updated *domain.Transaction
	var events []domain.AlertEvent
	err := s.store.WithTransaction(ctx, func(ls domain.LedgerStore) error {
		old, err := ls.GetTransactionForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}

		oldCategory, err := s.categoryRepo.GetByID(userID, old.CategoryID)
		if err != nil {
			return err
		}
		newCategory := oldCategory
		if input.CategoryID != nil && *input.CategoryID != old.CategoryID {
			newCategory, err = s.categoryRepo.GetByID(userID, *input.CategoryID)
			if err != nil {
				return err
			}
		}

		next := *old
		next.CategoryID = newCategory.ID
		if input.Amount != nil {
			next.Amount = *input.Amount
		}
		if input.AccountType != nil {
			next.AccountType = *input.AccountType
		}
		if input.TransactionDate != nil {
			next.TransactionDate = *input.TransactionDate
		}
		if input.Notes != nil {
			next.Notes = notes
		}
		if input.Recurrence != nil {
			next.Recurrence = input.Recurrence
		}

		updated, err = ls.UpdateTransactionRow(ctx, &next)
		if err != nil {
			return err
		}

		oldEffect := domain.NewEffect(old, oldCategory.Type)
		newEffect := domain.NewEffect(updated, newCategory.Type)
		balances, budgets := domain.Reconcile(&oldEffect, &newEffect)
		events, err = s.applyChanges(ctx, ls, userID, balances, budgets, map[int32]string{
			oldCategory.ID: oldCategory.Name,
			newCategory.ID: newCategory.Name,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(userID, events)
	return updated, nil
}

// DeleteTransaction removes a transaction and reverses its effect. Alert
// flags on affected budgets stay latched even when spent drops back under a
// threshold.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID uuid.UUID, id int32) error {
	return s.store.WithTransaction(ctx, func(ls domain.LedgerStore) error {
		old, err := ls.GetTransactionForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		category, err := s.categoryRepo.GetByID(userID, old.CategoryID)
		if err != nil {
			return err
		}
		if err := ls.DeleteTransactionRow(ctx, userID, id); err != nil {
			return err
		}

		effect := domain.NewEffect(old, category.Type)
		balances, budgets := domain.Reconcile(&effect, nil)
		_, err = s.applyChanges(ctx, ls, userID, balances, budgets, map[int32]string{category.ID: category.Name})
		return err
	})
}

// applyChanges issues the reconciled increments against the store and
// evaluates alerts on every budget whose spent moved. Returned events are
// already latched; the caller dispatches them after commit.
func (s *LedgerService) applyChanges(ctx context.Context, ls domain.LedgerStore, userID uuid.UUID, balances []domain.BalanceChange, budgets []domain.BudgetChange, categoryNames map[int32]string) ([]domain.AlertEvent, error) {
	for _, change := range balances {
		if err := ls.IncrementBalance(ctx, userID, change.Field, change.Delta); err != nil {
			return nil, err
		}
	}

	var events []domain.AlertEvent
	for _, change := range budgets {
		covering, err := ls.FindCoveringBudgets(ctx, userID, change.CategoryID, change.Date)
		if err != nil {
			return nil, err
		}
		for _, budget := range covering {
			updated, err := ls.IncrementBudgetSpent(ctx, budget.ID, change.Delta)
			if err != nil {
				return nil, err
			}

			// The current state must come from the post-increment row: it is
			// read under the row lock, so a flag latched by a concurrent
			// mutation is visible here and the alert stays one-shot.
			current := updated.AlertState()
			next := domain.NextAlertState(updated.Spent, updated.LimitAmount, updated.AlertThreshold, current)
			if next == current {
				continue
			}

			kind := domain.AlertKindWarning
			if next == domain.AlertStateExceeded {
				kind = domain.AlertKindExceeded
			}
			at := time.Now().UTC()
			if err := ls.SetAlertFlag(ctx, budget.ID, kind, at); err != nil {
				return nil, err
			}
			events = append(events, domain.AlertEvent{
				BudgetID:     budget.ID,
				CategoryName: categoryNames[change.CategoryID],
				Kind:         kind,
				Spent:        updated.Spent,
				Limit:        updated.LimitAmount,
				At:           at,
			})
		}
	}
	return events, nil
}

// dispatch delivers latched alert events best-effort after commit. A
// delivery failure is logged and swallowed; the committed mutation stands.
func (s *LedgerService) dispatch(userID uuid.UUID, events []domain.AlertEvent) {
	for _, e := range events {
		if err := s.dispatcher.Notify(userID, alertNotification(e)); err != nil {
			s.logger.Warn().Err(err).
				Int32("budget_id", e.BudgetID).
				Str("kind", string(e.Kind)).
				Msg("failed to dispatch budget alert")
		}
	}
}

func alertNotification(e domain.AlertEvent) domain.Notification {
	title := "Budget warning"
	body := fmt.Sprintf("Spending on %s reached %s of your %s limit", e.CategoryName, e.Spent.StringFixed(2), e.Limit.StringFixed(2))
	if e.Kind == domain.AlertKindExceeded {
		title = "Budget exceeded"
		body = fmt.Sprintf("Spending on %s passed your %s limit (now %s)", e.CategoryName, e.Limit.StringFixed(2), e.Spent.StringFixed(2))
	}
	return domain.Notification{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":     "budget." + string(e.Kind),
			"budgetId": strconv.FormatInt(int64(e.BudgetID), 10),
		},
	}
}

func normalizeNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > domain.MaxNotesLength {
		return nil, domain.ErrNotesTooLong
	}
	return &trimmed, nil
}
