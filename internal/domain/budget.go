package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BudgetPeriod string

const (
	BudgetPeriodDaily   BudgetPeriod = "daily"
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Valid reports whether p is a known budget period.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodDaily, BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		return true
	}
	return false
}

// DefaultAlertThreshold is the percentage at which a warning alert fires
// when no threshold is configured.
const DefaultAlertThreshold = 80

// Budget is one instance covering a category over an inclusive date window.
// Spent is a running total mutated only by increment-by-delta; the alert
// timestamps latch once per instance and are never cleared by the engine.
type Budget struct {
	ID                  int32           `json:"id"`
	UserID              uuid.UUID       `json:"userId"`
	CategoryID          int32           `json:"categoryId"`
	Period              BudgetPeriod    `json:"period"`
	StartDate           time.Time       `json:"startDate"`
	EndDate             time.Time       `json:"endDate"`
	LimitAmount         decimal.Decimal `json:"limitAmount"`
	Spent               decimal.Decimal `json:"spent"`
	AlertThreshold      int32           `json:"alertThreshold"`
	WarningAlertSentAt  *time.Time      `json:"warningAlertSentAt,omitempty"`
	ExceededAlertSentAt *time.Time      `json:"exceededAlertSentAt,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Covers reports whether date falls inside the budget's inclusive window.
func (b *Budget) Covers(date time.Time) bool {
	return !date.Before(b.StartDate) && !date.After(b.EndDate)
}

// UsagePercent returns spent/limit as a percentage. Zero limit yields zero.
func (b *Budget) UsagePercent() decimal.Decimal {
	if b.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return b.Spent.Div(b.LimitAmount).Mul(decimal.NewFromInt(100))
}

// PeriodWindow derives the default inclusive window for a period starting at
// start: the rest of the day, the next seven days, the calendar month, or
// the calendar year.
func PeriodWindow(period BudgetPeriod, start time.Time) (time.Time, time.Time) {
	start = start.Truncate(24 * time.Hour)
	switch period {
	case BudgetPeriodDaily:
		return start, start
	case BudgetPeriodWeekly:
		return start, start.AddDate(0, 0, 6)
	case BudgetPeriodYearly:
		return start, start.AddDate(1, 0, -1)
	default:
		return start, start.AddDate(0, 1, -1)
	}
}

// UpdateBudgetData carries the mutable budget fields.
type UpdateBudgetData struct {
	LimitAmount    decimal.Decimal
	AlertThreshold int32
}

type BudgetRepository interface {
	Create(budget *Budget) (*Budget, error)
	GetByID(userID uuid.UUID, id int32) (*Budget, error)
	GetAllByUser(userID uuid.UUID) ([]*Budget, error)
	Update(userID uuid.UUID, id int32, data *UpdateBudgetData) (*Budget, error)
	Delete(userID uuid.UUID, id int32) error
	FindOverlapping(userID uuid.UUID, categoryID int32, period BudgetPeriod, startDate, endDate time.Time) (*Budget, error)
	SetSpent(userID uuid.UUID, id int32, spent decimal.Decimal) (*Budget, error)
}
