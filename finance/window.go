/*
window.go - Rolling seven-day window over daily logs

PURPOSE:
  Builds the short report shown for a period: the last seven days of the
  period (or fewer when the period is shorter), one row per calendar day
  whether or not anything was logged, plus running totals.

WINDOW BOUNDS:
  With a period:    end = period end
                    start = max(period start, end - 6) when the period has
                    at least 7 days, else period start
  Without a period: [today - 6, today]
  A period stored with end before start is read with its bounds swapped.
  If end < start after all of the above, the window collapses to [end, end].
*/
package finance

import (
	"github.com/shopspring/decimal"

	"github.com/warp/pharmacy-ledger/calendar"
)

// WindowLength is the maximum number of days in a window.
const WindowLength = 7

// WindowDay is one calendar day of the window.
type WindowDay struct {
	Date         calendar.Date
	HasEntry     bool
	SalesCash    decimal.Decimal
	SalesIns     decimal.Decimal
	VarPurchases decimal.Decimal
	OpexOther    decimal.Decimal
	Visits       int
	VisitsValid  bool
	Note         string
}

// WindowTotals sums the window. Days with unreadable visits add nothing to Visits.
type WindowTotals struct {
	SalesCash    decimal.Decimal
	SalesIns     decimal.Decimal
	VarPurchases decimal.Decimal
	OpexOther    decimal.Decimal
	Visits       int
}

// WindowReport is the aggregated result.
type WindowReport struct {
	PharmacyID    PharmacyID
	PeriodID      PeriodID // zero when no period bounded the window
	Start         calendar.Date
	End           calendar.Date
	Days          []WindowDay
	Totals        WindowTotals
	DaysWithEntry int
	SkippedVisits int
}

// WindowBounds computes the window for period (nil when there is none).
func WindowBounds(period *Period, today calendar.Date) (calendar.Date, calendar.Date) {
	if period == nil || period.Start.IsZero() || period.End.IsZero() {
		return today.AddDays(-(WindowLength - 1)), today
	}

	periodStart, periodEnd := period.Start, period.End
	if periodEnd.Before(periodStart) {
		periodStart, periodEnd = periodEnd, periodStart
	}

	end := periodEnd
	start := periodStart
	if calendar.DaysBetween(periodStart, periodEnd)+1 >= WindowLength {
		start = calendar.MaxDate(periodStart, end.AddDays(-(WindowLength - 1)))
	}
	if end.Before(start) {
		start = end
	}
	return start, end
}

// AggregateWindow emits one row per day in [start, end] and sums the logs.
// Logs outside the window are ignored. Missing days contribute zero.
func AggregateWindow(start, end calendar.Date, logs []DailyLog) WindowReport {
	if end.Before(start) {
		start = end
	}

	byDate := make(map[string]DailyLog, len(logs))
	for _, l := range logs {
		byDate[l.Date.String()] = l
	}

	report := WindowReport{
		Start: start,
		End:   end,
		Totals: WindowTotals{
			SalesCash:    decimal.Zero,
			SalesIns:     decimal.Zero,
			VarPurchases: decimal.Zero,
			OpexOther:    decimal.Zero,
		},
	}

	for _, day := range (calendar.Range{Start: start, End: end}).Days() {
		row := WindowDay{
			Date:         day,
			SalesCash:    decimal.Zero,
			SalesIns:     decimal.Zero,
			VarPurchases: decimal.Zero,
			OpexOther:    decimal.Zero,
			VisitsValid:  true,
		}
		if l, ok := byDate[day.String()]; ok {
			row.HasEntry = true
			row.SalesCash = l.SalesCash
			row.SalesIns = l.SalesIns
			row.VarPurchases = l.VarPurchases
			row.OpexOther = l.OpexOther
			row.Visits = l.Visits
			row.VisitsValid = l.VisitsValid
			row.Note = l.Note
			report.DaysWithEntry++
		}

		t := &report.Totals
		t.SalesCash = t.SalesCash.Add(row.SalesCash)
		t.SalesIns = t.SalesIns.Add(row.SalesIns)
		t.VarPurchases = t.VarPurchases.Add(row.VarPurchases)
		t.OpexOther = t.OpexOther.Add(row.OpexOther)
		if row.VisitsValid {
			t.Visits += row.Visits
		} else {
			report.SkippedVisits++
		}

		report.Days = append(report.Days, row)
	}
	return report
}
