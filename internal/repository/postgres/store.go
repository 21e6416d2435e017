package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every Store method
// runs against the pool or inside an open transaction transparently.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements domain.LedgerStore using PostgreSQL. Balance and spent
// mutations are issued as SQL increments, never read-modify-write, so the
// database's row locks serialize concurrent mutations of the same counters.
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewStore creates a new Store backed by the given pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// WithTransaction runs fn inside a single database transaction. Any error
// from fn rolls the whole unit of work back; a cancelled context aborts it.
func (s *Store) WithTransaction(ctx context.Context, fn func(domain.LedgerStore) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const transactionColumns = `id, user_id, category_id, amount, account_type, transaction_date, notes, recurrence, receipt_key, created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t               domain.Transaction
		userID          pgtype.UUID
		amount          pgtype.Numeric
		transactionDate pgtype.Date
		notes           pgtype.Text
		recurrence      pgtype.Text
		receiptKey      pgtype.Text
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)
	err := row.Scan(&t.ID, &userID, &t.CategoryID, &amount, &t.AccountType, &transactionDate, &notes, &recurrence, &receiptKey, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.UserID = pgToUUID(userID)
	t.Amount = pgNumericToDecimal(amount)
	t.TransactionDate = transactionDate.Time
	t.Notes = textToPtr(notes)
	t.Recurrence = textToPtr(recurrence)
	t.ReceiptKey = textToPtr(receiptKey)
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return &t, nil
}

// InsertTransaction creates a new transaction row
func (s *Store) InsertTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, category_id, amount, account_type, transaction_date, notes, recurrence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+transactionColumns,
		uuidToPg(t.UserID), t.CategoryID, amount, string(t.AccountType),
		pgtype.Date{Time: t.TransactionDate, Valid: true}, ptrToText(t.Notes), ptrToText(t.Recurrence),
	)
	return scanTransaction(row)
}

// GetTransactionForUpdate loads a transaction row and locks it for the
// remainder of the unit of work.
func (s *Store) GetTransactionForUpdate(ctx context.Context, userID uuid.UUID, id int32) (*domain.Transaction, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND id = $2
		FOR UPDATE`,
		uuidToPg(userID), id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// UpdateTransactionRow overwrites a transaction's mutable fields
func (s *Store) UpdateTransactionRow(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE transactions
		SET category_id = $3, amount = $4, account_type = $5, transaction_date = $6, notes = $7, recurrence = $8, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+transactionColumns,
		uuidToPg(t.UserID), t.ID, t.CategoryID, amount, string(t.AccountType),
		pgtype.Date{Time: t.TransactionDate, Valid: true}, ptrToText(t.Notes), ptrToText(t.Recurrence),
	)
	updated, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return updated, nil
}

// DeleteTransactionRow removes a transaction row
func (s *Store) DeleteTransactionRow(ctx context.Context, userID uuid.UUID, id int32) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1 AND id = $2`, uuidToPg(userID), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// IncrementBalance applies a signed delta to one of the user's balance
// columns as a single SQL increment.
func (s *Store) IncrementBalance(ctx context.Context, userID uuid.UUID, field domain.BalanceField, delta decimal.Decimal) error {
	var column string
	switch field {
	case domain.BalanceFieldCash:
		column = "cash_balance"
	case domain.BalanceFieldBank:
		column = "bank_balance"
	case domain.BalanceFieldDigital:
		column = "digital_balance"
	default:
		return fmt.Errorf("unknown balance field %q", field)
	}

	amount, err := decimalToPgNumeric(delta)
	if err != nil {
		return fmt.Errorf("invalid delta: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET `+column+` = `+column+` + $1, updated_at = now() WHERE id = $2`,
		amount, uuidToPg(userID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// FindCoveringBudgets returns every budget for the category whose inclusive
// window contains the date. Cross-period overlaps (e.g. a monthly and a
// yearly budget) produce multiple rows and each is kept consistent.
func (s *Store) FindCoveringBudgets(ctx context.Context, userID uuid.UUID, categoryID int32, date time.Time) ([]*domain.Budget, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+budgetColumns+`
		FROM budgets
		WHERE user_id = $1 AND category_id = $2 AND start_date <= $3 AND end_date >= $3
		ORDER BY start_date, id`,
		uuidToPg(userID), categoryID, pgtype.Date{Time: date, Valid: true},
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

// IncrementBudgetSpent applies a signed delta to a budget's spent total and
// returns the updated row for alert evaluation.
func (s *Store) IncrementBudgetSpent(ctx context.Context, budgetID int32, delta decimal.Decimal) (*domain.Budget, error) {
	amount, err := decimalToPgNumeric(delta)
	if err != nil {
		return nil, fmt.Errorf("invalid delta: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE budgets
		SET spent = spent + $1, updated_at = now()
		WHERE id = $2
		RETURNING `+budgetColumns,
		amount, budgetID,
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

// SetAlertFlag latches an alert timestamp. COALESCE keeps the first value,
// so a flag already set is never overwritten or cleared.
func (s *Store) SetAlertFlag(ctx context.Context, budgetID int32, kind domain.AlertKind, at time.Time) error {
	var column string
	switch kind {
	case domain.AlertKindWarning:
		column = "warning_alert_sent_at"
	case domain.AlertKindExceeded:
		column = "exceeded_alert_sent_at"
	default:
		return fmt.Errorf("unknown alert kind %q", kind)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE budgets SET `+column+` = COALESCE(`+column+`, $1), updated_at = now() WHERE id = $2`,
		pgtype.Timestamptz{Time: at, Valid: true}, budgetID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBudgetNotFound
	}
	return nil
}
