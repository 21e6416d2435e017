package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertState is the per-budget alert machine: Normal -> Warning -> Exceeded,
// strictly forward. The ordering of the constants is what enforces that a
// state never regresses; comparisons rely on it.
type AlertState int

const (
	AlertStateNormal AlertState = iota
	AlertStateWarning
	AlertStateExceeded
)

func (s AlertState) String() string {
	switch s {
	case AlertStateWarning:
		return "warning"
	case AlertStateExceeded:
		return "exceeded"
	default:
		return "normal"
	}
}

// AlertKind identifies which latched flag a transition sets.
type AlertKind string

const (
	AlertKindWarning  AlertKind = "warning"
	AlertKindExceeded AlertKind = "exceeded"
)

// AlertState derives the current state from the latched timestamps.
func (b *Budget) AlertState() AlertState {
	if b.ExceededAlertSentAt != nil {
		return AlertStateExceeded
	}
	if b.WarningAlertSentAt != nil {
		return AlertStateWarning
	}
	return AlertStateNormal
}

var hundred = decimal.NewFromInt(100)

// NextAlertState evaluates spent against the limit and returns the state the
// budget should latch to. It never returns a state below current, so a
// spent decrease after an alert leaves the flag set and a repeat crossing of
// the same line stays silent.
func NextAlertState(spent, limit decimal.Decimal, threshold int32, current AlertState) AlertState {
	if limit.LessThanOrEqual(decimal.Zero) {
		return current
	}
	pct := spent.Div(limit).Mul(hundred)

	computed := AlertStateNormal
	switch {
	case pct.GreaterThanOrEqual(hundred):
		computed = AlertStateExceeded
	case pct.GreaterThanOrEqual(decimal.NewFromInt32(threshold)):
		computed = AlertStateWarning
	}

	if computed > current {
		return computed
	}
	return current
}

// AlertEvent describes a latched transition, carried out of the unit of work
// for post-commit dispatch.
type AlertEvent struct {
	BudgetID     int32
	CategoryName string
	Kind         AlertKind
	Spent        decimal.Decimal
	Limit        decimal.Decimal
	At           time.Time
}
