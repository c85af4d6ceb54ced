/*
types.go - Core entities of the period and metrics engine

PURPOSE:
  Pharmacies own periods and daily logs; periods own one metrics row per
  accounting basis. Identifiers are store-assigned integers. Money is
  decimal, counts are int, dates are whole calendar days.

PERIOD LIFECYCLE:
  open -> pending_approval -> closed
  open -> closed
  pending_approval -> open        (sent back for correction)
  closed -> open                  (ReopenPeriod only, administrative)

  Closing stamps locked_at on the period's metrics. The stamp is an
  audit mark: it is kept when a period is reopened.

SEE ALSO:
  - metrics.go: RawInputs, KPIs, PeriodMetrics
  - store.go: Persistence contract
*/
package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/pharmacy-ledger/calendar"
)

type PharmacyID int64

type PeriodID int64

// Basis is the accounting convention metrics are computed under.
type Basis string

const BasisCash Basis = "cash"

// =============================================================================
// PHARMACY
// =============================================================================

type Pharmacy struct {
	ID        PharmacyID
	Title     string
	CreatedAt time.Time
}

// =============================================================================
// PERIOD
// =============================================================================

type PeriodStatus string

const (
	StatusOpen            PeriodStatus = "open"
	StatusPendingApproval PeriodStatus = "pending_approval"
	StatusClosed          PeriodStatus = "closed"
)

var transitions = map[PeriodStatus][]PeriodStatus{
	StatusOpen:            {StatusPendingApproval, StatusClosed},
	StatusPendingApproval: {StatusClosed, StatusOpen},
	StatusClosed:          {},
}

// ParsePeriodStatus validates a status string.
func ParsePeriodStatus(s string) (PeriodStatus, error) {
	st := PeriodStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", invalid("status", s, "must be open, pending_approval or closed")
	}
	return st, nil
}

// CanTransitionTo reports whether SetStatus may move s to next.
func (s PeriodStatus) CanTransitionTo(next PeriodStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether raw inputs may still change.
func (s PeriodStatus) Editable() bool {
	return s != StatusClosed
}

// Period is a bounded accounting interval for one pharmacy.
type Period struct {
	ID         PeriodID
	PharmacyID PharmacyID
	Title      string
	Start      calendar.Date
	End        calendar.Date
	Status     PeriodStatus
	CreatedAt  time.Time
}

// Range returns the inclusive span of the period.
func (p Period) Range() calendar.Range {
	return calendar.Range{Start: p.Start, End: p.End}
}

// Days is the inclusive length of the period.
func (p Period) Days() int {
	return p.Range().Len()
}

func (p Period) String() string {
	return fmt.Sprintf("period %d %q %s (%s)", p.ID, p.Title, p.Range(), p.Status)
}

// =============================================================================
// DAILY LOG
// =============================================================================

// DailyLog is one pharmacy's entry for one calendar day. A second write for
// the same day replaces the first.
type DailyLog struct {
	PharmacyID   PharmacyID
	Date         calendar.Date
	SalesCash    decimal.Decimal
	SalesIns     decimal.Decimal
	VarPurchases decimal.Decimal
	OpexOther    decimal.Decimal
	Visits       int
	// VisitsValid is false when the stored visit value could not be read
	// as a whole number. Such days are skipped from visit totals.
	VisitsValid bool
	Note        string
	CreatedAt   time.Time
}

// Validate rejects negative quantities.
func (l DailyLog) Validate() error {
	if l.Date.IsZero() {
		return invalid("log_date", "", "required")
	}
	money := []struct {
		field string
		value decimal.Decimal
	}{
		{"sales_cash", l.SalesCash},
		{"sales_ins", l.SalesIns},
		{"var_purchases", l.VarPurchases},
		{"opex_other", l.OpexOther},
	}
	for _, m := range money {
		if m.value.IsNegative() {
			return invalid(m.field, m.value.String(), "must not be negative")
		}
	}
	if l.Visits < 0 {
		return invalid("visits", fmt.Sprint(l.Visits), "must not be negative")
	}
	return nil
}
