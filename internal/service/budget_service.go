package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// BudgetService handles budget lifecycle: creation with spent seeding,
// overlap checks, edits and the explicit full-recompute refresh.
type BudgetService struct {
	budgetRepo      domain.BudgetRepository
	categoryRepo    domain.CategoryRepository
	transactionRepo domain.TransactionRepository
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(budgetRepo domain.BudgetRepository, categoryRepo domain.CategoryRepository, transactionRepo domain.TransactionRepository) *BudgetService {
	return &BudgetService{
		budgetRepo:      budgetRepo,
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
	}
}

// CreateBudgetInput holds the input for creating a budget
type CreateBudgetInput struct {
	CategoryID     int32
	Period         domain.BudgetPeriod
	StartDate      time.Time
	EndDate        *time.Time
	LimitAmount    decimal.Decimal
	AlertThreshold *int32
}

// CreateBudget creates a budget instance over an inclusive window. Spent is
// seeded from the expense transactions already inside the window, so a budget
// created mid-period starts consistent. A budget of the same period
// granularity whose window intersects is rejected; budgets of a different
// granularity may overlap.
func (s *BudgetService) CreateBudget(userID uuid.UUID, input CreateBudgetInput) (*domain.Budget, error) {
	if !input.Period.Valid() {
		return nil, domain.ErrInvalidPeriod
	}
	if input.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	threshold := int32(domain.DefaultAlertThreshold)
	if input.AlertThreshold != nil {
		threshold = *input.AlertThreshold
		if threshold < 0 || threshold > 100 {
			return nil, domain.ErrInvalidThreshold
		}
	}

	category, err := s.categoryRepo.GetByID(userID, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if category.Type != domain.CategoryTypeExpense {
		return nil, domain.ErrCategoryNotExpense
	}

	startDate, endDate := domain.PeriodWindow(input.Period, input.StartDate)
	if input.EndDate != nil {
		endDate = input.EndDate.Truncate(24 * time.Hour)
	}
	if endDate.Before(startDate) {
		return nil, domain.ErrInvalidWindow
	}

	existing, err := s.budgetRepo.FindOverlapping(userID, input.CategoryID, input.Period, startDate, endDate)
	if err != nil && err != domain.ErrBudgetNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrBudgetOverlap
	}

	spent, err := s.transactionRepo.SumExpensesByCategoryAndRange(userID, input.CategoryID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	return s.budgetRepo.Create(&domain.Budget{
		UserID:         userID,
		CategoryID:     input.CategoryID,
		Period:         input.Period,
		StartDate:      startDate,
		EndDate:        endDate,
		LimitAmount:    input.LimitAmount,
		Spent:          spent,
		AlertThreshold: threshold,
	})
}

// GetBudgets retrieves all budgets for a user
func (s *BudgetService) GetBudgets(userID uuid.UUID) ([]*domain.Budget, error) {
	return s.budgetRepo.GetAllByUser(userID)
}

// GetBudgetByID retrieves a budget by ID
func (s *BudgetService) GetBudgetByID(userID uuid.UUID, id int32) (*domain.Budget, error) {
	return s.budgetRepo.GetByID(userID, id)
}

// UpdateBudgetInput holds the input for updating a budget
type UpdateBudgetInput struct {
	LimitAmount    decimal.Decimal
	AlertThreshold int32
}

// UpdateBudget updates a budget's limit and alert threshold. Latched alert
// flags are not reset; raising the limit after an alert does not re-arm it
// for the current instance.
func (s *BudgetService) UpdateBudget(userID uuid.UUID, id int32, input UpdateBudgetInput) (*domain.Budget, error) {
	if input.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}
	if input.AlertThreshold < 0 || input.AlertThreshold > 100 {
		return nil, domain.ErrInvalidThreshold
	}
	return s.budgetRepo.Update(userID, id, &domain.UpdateBudgetData{
		LimitAmount:    input.LimitAmount,
		AlertThreshold: input.AlertThreshold,
	})
}

// DeleteBudget removes a budget
func (s *BudgetService) DeleteBudget(userID uuid.UUID, id int32) error {
	return s.budgetRepo.Delete(userID, id)
}

// RefreshBudgetSpent recomputes a budget's spent total from the transactions
// in its window and overwrites the running value. This is the only write path
// that does not go through increments; it exists to reconcile drift.
func (s *BudgetService) RefreshBudgetSpent(userID uuid.UUID, id int32) (*domain.Budget, error) {
	budget, err := s.budgetRepo.GetByID(userID, id)
	if err != nil {
		return nil, err
	}
	spent, err := s.transactionRepo.SumExpensesByCategoryAndRange(userID, budget.CategoryID, budget.StartDate, budget.EndDate)
	if err != nil {
		return nil, err
	}
	return s.budgetRepo.SetSpent(userID, id, spent)
}
