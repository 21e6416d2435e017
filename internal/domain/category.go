package domain

import (
	"time"

	"github.com/google/uuid"
)

// CategoryType is fixed at category creation. It alone determines the sign
// a transaction applies to balances; transactions never carry a sign.
type CategoryType string

const (
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeRevenue CategoryType = "revenue"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeExpense || t == CategoryTypeRevenue
}

type Category struct {
	ID        int32        `json:"id"`
	UserID    uuid.UUID    `json:"userId"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Icon      *string      `json:"icon,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// CategoryRepository resolves categories scoped to their owner. Category
// management lives outside the engine; the engine only reads.
type CategoryRepository interface {
	GetByID(userID uuid.UUID, id int32) (*Category, error)
	GetAllByUser(userID uuid.UUID) ([]*Category, error)
}
