package finance

import (
	"github.com/shopspring/decimal"
)

// MetricKind tells a renderer how to present a compared value.
type MetricKind string

const (
	KindMoney MetricKind = "money"
	KindCount MetricKind = "count"
	KindRatio MetricKind = "ratio" // a fraction, shown as a percentage
)

// DeltaState qualifies ComparisonRow.Delta.
type DeltaState string

const (
	DeltaDefined       DeltaState = "defined"
	DeltaUndefined     DeltaState = "undefined"      // A is zero, B is not
	DeltaNotApplicable DeltaState = "not_applicable" // both zero
)

// ComparisonRow is one tracked metric of two snapshots.
type ComparisonRow struct {
	Key   string
	Kind  MetricKind
	A     decimal.Decimal
	B     decimal.Decimal
	Delta decimal.Decimal // (B - A) / |A|, zero unless DeltaState is defined
	// PointChange is B - A. For ratio rows this is the change in
	// percentage points (as a fraction).
	PointChange decimal.Decimal
	DeltaState  DeltaState
}

// Comparison lists rows in a fixed key order.
type Comparison struct {
	PeriodA PeriodID
	PeriodB PeriodID
	Rows    []ComparisonRow
}

// Row finds a row by key.
func (c Comparison) Row(key string) (ComparisonRow, bool) {
	for _, r := range c.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return ComparisonRow{}, false
}

type trackedMetric struct {
	key  string
	kind MetricKind
	get  func(PeriodMetrics) decimal.Decimal
}

func count(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

var trackedMetrics = []trackedMetric{
	{"sales_cash", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.SalesCash }},
	{"sales_ins", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.SalesIns }},
	{"sales_total", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.SalesTotal }},
	{"var_total", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.VarTotal }},
	{"fixed_rent", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.FixedRent }},
	{"fixed_staff", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.FixedStaff }},
	{"fixed_total", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.FixedTotal }},
	{"opex_other_total", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.OpexOtherTotal }},
	{"visits_total", KindCount, func(m PeriodMetrics) decimal.Decimal { return count(m.VisitsTotal) }},
	{"days_count", KindCount, func(m PeriodMetrics) decimal.Decimal { return count(m.DaysCount) }},
	{"gross_profit", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.GrossProfit }},
	{"net_profit_operational", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.NetProfitOperational }},
	{"contrib_margin", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.ContribMargin }},
	{"cm_ratio", KindRatio, func(m PeriodMetrics) decimal.Decimal { return m.CMRatio }},
	{"np_ratio", KindRatio, func(m PeriodMetrics) decimal.Decimal { return m.NPRatio }},
	{"breakeven_sales", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.BreakevenSales }},
	{"avg_daily_sales", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.AvgDailySales }},
	{"avg_sale_per_visit", KindMoney, func(m PeriodMetrics) decimal.Decimal { return m.AvgSalePerVisit }},
}

// TrackedKeys returns the compared metric keys in display order.
func TrackedKeys() []string {
	keys := make([]string, len(trackedMetrics))
	for i, t := range trackedMetrics {
		keys[i] = t.key
	}
	return keys
}

// RelativeDelta returns (b - a) / |a| with its state. A zero a never
// produces an infinite or NaN value.
func RelativeDelta(a, b decimal.Decimal) (decimal.Decimal, DeltaState) {
	switch {
	case !a.IsZero():
		return b.Sub(a).Div(a.Abs()), DeltaDefined
	case !b.IsZero():
		return decimal.Zero, DeltaUndefined
	default:
		return decimal.Zero, DeltaNotApplicable
	}
}

// Compare computes per-metric deltas from snapshot a to snapshot b.
func Compare(a, b PeriodMetrics) Comparison {
	c := Comparison{PeriodA: a.PeriodID, PeriodB: b.PeriodID}
	for _, t := range trackedMetrics {
		av, bv := t.get(a), t.get(b)
		delta, state := RelativeDelta(av, bv)
		c.Rows = append(c.Rows, ComparisonRow{
			Key:         t.key,
			Kind:        t.kind,
			A:           av,
			B:           bv,
			Delta:       delta,
			PointChange: bv.Sub(av),
			DeltaState:  state,
		})
	}
	return c
}
