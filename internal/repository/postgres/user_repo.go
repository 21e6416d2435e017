package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okanehq/okane-backend/internal/domain"
)

const userColumns = `id, auth_id, email, name, currency, cash_balance, bank_balance, digital_balance, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u              domain.User
		id             pgtype.UUID
		name           pgtype.Text
		cashBalance    pgtype.Numeric
		bankBalance    pgtype.Numeric
		digitalBalance pgtype.Numeric
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
	)
	err := row.Scan(&id, &u.AuthID, &u.Email, &name, &u.Currency, &cashBalance, &bankBalance, &digitalBalance, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.ID = pgToUUID(id)
	u.Name = textToPtr(name)
	u.CashBalance = pgNumericToDecimal(cashBalance)
	u.BankBalance = pgNumericToDecimal(bankBalance)
	u.DigitalBalance = pgNumericToDecimal(digitalBalance)
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time
	return &u, nil
}

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id uuid.UUID) (*domain.User, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuidToPg(id))
	u, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// GetByAuthID retrieves a user by its external auth subject
func (r *UserRepository) GetByAuthID(authID string) (*domain.User, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth_id = $1`, authID)
	u, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// CreateOrGetByAuthID provisions a user row for an auth subject on first
// sight and returns the existing row afterwards.
func (r *UserRepository) CreateOrGetByAuthID(authID, email string, name *string) (*domain.User, error) {
	ctx := context.Background()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, auth_id, email, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (auth_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING `+userColumns,
		uuidToPg(uuid.New()), authID, email, ptrToText(name),
	)
	return scanUser(row)
}
