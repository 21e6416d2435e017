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

// TransactionRepository implements the read-side domain.TransactionRepository
// using PostgreSQL. Mutations go through the ledger Store.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// GetByID retrieves a transaction by its ID scoped to its owner
func (r *TransactionRepository) GetByID(userID uuid.UUID, id int32) (*domain.Transaction, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 AND id = $2`,
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

// GetByUser retrieves transactions for a user with optional filters and pagination
func (r *TransactionRepository) GetByUser(userID uuid.UUID, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	ctx := context.Background()

	page := int32(1)
	pageSize := int32(domain.DefaultPageSize)
	if filters != nil {
		if filters.Page > 0 {
			page = filters.Page
		}
		if filters.PageSize > 0 {
			pageSize = filters.PageSize
			if pageSize > domain.MaxPageSize {
				pageSize = domain.MaxPageSize
			}
		}
	}
	offset := (page - 1) * pageSize

	where := `WHERE user_id = $1`
	args := []any{uuidToPg(userID)}
	if filters != nil {
		if filters.CategoryID != nil {
			args = append(args, *filters.CategoryID)
			where += fmt.Sprintf(` AND category_id = $%d`, len(args))
		}
		if filters.AccountType != nil {
			args = append(args, string(*filters.AccountType))
			where += fmt.Sprintf(` AND account_type = $%d`, len(args))
		}
		if filters.StartDate != nil {
			args = append(args, pgtype.Date{Time: *filters.StartDate, Valid: true})
			where += fmt.Sprintf(` AND transaction_date >= $%d`, len(args))
		}
		if filters.EndDate != nil {
			args = append(args, pgtype.Date{Time: *filters.EndDate, Valid: true})
			where += fmt.Sprintf(` AND transaction_date <= $%d`, len(args))
		}
	}

	var totalItems int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions `+where, args...).Scan(&totalItems); err != nil {
		return nil, err
	}

	listArgs := append(args, pageSize, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM transactions %s
		ORDER BY transaction_date DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)+1, len(args)+2),
		listArgs...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := int32(totalItems / int64(pageSize))
	if totalItems%int64(pageSize) > 0 {
		totalPages++
	}

	return &domain.PaginatedTransactions{
		Data:       result,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}, nil
}

// SumExpensesByCategoryAndRange sums transaction amounts for a category
// within an inclusive date range. Callers ensure the category is an expense
// category; a category's type is fixed so the sum needs no join.
func (r *TransactionRepository) SumExpensesByCategoryAndRange(userID uuid.UUID, categoryID int32, startDate, endDate time.Time) (decimal.Decimal, error) {
	ctx := context.Background()

	var total pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND category_id = $2 AND transaction_date >= $3 AND transaction_date <= $4`,
		uuidToPg(userID), categoryID,
		pgtype.Date{Time: startDate, Valid: true}, pgtype.Date{Time: endDate, Valid: true},
	).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(total), nil
}

// SetReceiptKey attaches or clears the stored receipt object key
func (r *TransactionRepository) SetReceiptKey(userID uuid.UUID, id int32, key *string) (*domain.Transaction, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		UPDATE transactions SET receipt_key = $3, updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+transactionColumns,
		uuidToPg(userID), id, ptrToText(key),
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
