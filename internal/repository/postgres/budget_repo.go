package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const budgetColumns = `id, user_id, category_id, period, start_date, end_date, limit_amount, spent, alert_threshold, warning_alert_sent_at, exceeded_alert_sent_at, created_at, updated_at`

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var (
		b           domain.Budget
		userID      pgtype.UUID
		startDate   pgtype.Date
		endDate     pgtype.Date
		limitAmount pgtype.Numeric
		spent       pgtype.Numeric
		warningAt   pgtype.Timestamptz
		exceededAt  pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := row.Scan(&b.ID, &userID, &b.CategoryID, &b.Period, &startDate, &endDate, &limitAmount, &spent, &b.AlertThreshold, &warningAt, &exceededAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	b.UserID = pgToUUID(userID)
	b.StartDate = startDate.Time
	b.EndDate = endDate.Time
	b.LimitAmount = pgNumericToDecimal(limitAmount)
	b.Spent = pgNumericToDecimal(spent)
	if warningAt.Valid {
		b.WarningAlertSentAt = &warningAt.Time
	}
	if exceededAt.Valid {
		b.ExceededAlertSentAt = &exceededAt.Time
	}
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time
	return &b, nil
}

// BudgetRepository implements domain.BudgetRepository using PostgreSQL
type BudgetRepository struct {
	pool *pgxpool.Pool
}

// NewBudgetRepository creates a new BudgetRepository
func NewBudgetRepository(pool *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{pool: pool}
}

// Create creates a new budget
func (r *BudgetRepository) Create(budget *domain.Budget) (*domain.Budget, error) {
	ctx := context.Background()

	limitAmount, err := decimalToPgNumeric(budget.LimitAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid limit: %w", err)
	}
	spent, err := decimalToPgNumeric(budget.Spent)
	if err != nil {
		return nil, fmt.Errorf("invalid spent: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category_id, period, start_date, end_date, limit_amount, spent, alert_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+budgetColumns,
		uuidToPg(budget.UserID), budget.CategoryID, string(budget.Period),
		pgtype.Date{Time: budget.StartDate, Valid: true}, pgtype.Date{Time: budget.EndDate, Valid: true},
		limitAmount, spent, budget.AlertThreshold,
	)
	return scanBudget(row)
}

// GetByID retrieves a budget by ID scoped to its owner
func (r *BudgetRepository) GetByID(userID uuid.UUID, id int32) (*domain.Budget, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 AND id = $2`,
		uuidToPg(userID), id,
	)
	b, err := scanBudget(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetAllByUser retrieves all budgets for a user
func (r *BudgetRepository) GetAllByUser(userID uuid.UUID) ([]*domain.Budget, error) {
	ctx := context.Background()
	rows, err := r.pool.Query(ctx, `
		SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 ORDER BY start_date DESC, id DESC`,
		uuidToPg(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []*domain.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// Update updates a budget's limit and alert threshold
func (r *BudgetRepository) Update(userID uuid.UUID, id int32, data *domain.UpdateBudgetData) (*domain.Budget, error) {
	ctx := context.Background()

	limitAmount, err := decimalToPgNumeric(data.LimitAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid limit: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE budgets
		SET limit_amount = $3, alert_threshold = $4, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+budgetColumns,
		uuidToPg(userID), id, limitAmount, data.AlertThreshold,
	)
	b, err := scanBudget(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return b, nil
}

// Delete removes a budget
func (r *BudgetRepository) Delete(userID uuid.UUID, id int32) error {
	ctx := context.Background()
	tag, err := r.pool.Exec(ctx, `DELETE FROM budgets WHERE user_id = $1 AND id = $2`, uuidToPg(userID), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}
	return nil
}

// FindOverlapping finds a budget of the same period granularity for the
// category whose window intersects [startDate, endDate].
func (r *BudgetRepository) FindOverlapping(userID uuid.UUID, categoryID int32, period domain.BudgetPeriod, startDate, endDate time.Time) (*domain.Budget, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE user_id = $1 AND category_id = $2 AND period = $3 AND start_date <= $5 AND end_date >= $4
		ORDER BY start_date
		LIMIT 1`,
		uuidToPg(userID), categoryID, string(period),
		pgtype.Date{Time: startDate, Valid: true}, pgtype.Date{Time: endDate, Valid: true},
	)
	b, err := scanBudget(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return b, nil
}

// SetSpent overwrites a budget's spent total. Used only by the explicit
// refresh operation that reconciles drift by full recomputation.
func (r *BudgetRepository) SetSpent(userID uuid.UUID, id int32, spent decimal.Decimal) (*domain.Budget, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(spent)
	if err != nil {
		return nil, fmt.Errorf("invalid spent: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE budgets SET spent = $3, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+budgetColumns,
		uuidToPg(userID), id, amount,
	)
	b, err := scanBudget(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBudgetNotFound
		}
		return nil, err
	}
	return b, nil
}
