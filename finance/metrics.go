/*
metrics.go - Derived KPI computation

PURPOSE:
  One pure formula set turns raw period aggregates into cost-accounting
  KPIs. The recompute path and the what-if simulator both call
  ComputeKPIs, so the two never disagree on a zero or negative margin.

FORMULAS:
  sales_total            = sales_cash + sales_ins
  fixed_total            = fixed_rent + fixed_staff
  gross_profit           = sales_total - var_total
  net_profit_operational = gross_profit - fixed_total - opex_other_total
  contrib_margin         = sales_total - var_total
  cm_ratio               = contrib_margin / sales_total      (0 if sales_total == 0)
  np_ratio               = net_profit_operational / sales_total (0 if sales_total == 0)
  breakeven_sales        = fixed_total / cm_ratio            (0 if cm_ratio <= 0)
  avg_daily_sales        = sales_total / days_count          (0 if days_count == 0)
  avg_sale_per_visit     = sales_total / visits_total        (0 if visits_total == 0)

  A zero denominator is defined behaviour, never an error.
*/
package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawInputs are the aggregates a period's KPIs derive from.
type RawInputs struct {
	SalesCash      decimal.Decimal
	SalesIns       decimal.Decimal
	VarTotal       decimal.Decimal
	FixedRent      decimal.Decimal
	FixedStaff     decimal.Decimal
	OpexOtherTotal decimal.Decimal
	VisitsTotal    int
	DaysCount      int
}

// Validate rejects negative money and counts.
func (r RawInputs) Validate() error {
	money := []struct {
		field string
		value decimal.Decimal
	}{
		{"sales_cash", r.SalesCash},
		{"sales_ins", r.SalesIns},
		{"var_total", r.VarTotal},
		{"fixed_rent", r.FixedRent},
		{"fixed_staff", r.FixedStaff},
		{"opex_other_total", r.OpexOtherTotal},
	}
	for _, m := range money {
		if m.value.IsNegative() {
			return invalid(m.field, m.value.String(), "must not be negative")
		}
	}
	if r.VisitsTotal < 0 {
		return invalid("visits_total", fmt.Sprint(r.VisitsTotal), "must not be negative")
	}
	if r.DaysCount < 0 {
		return invalid("days_count", fmt.Sprint(r.DaysCount), "must not be negative")
	}
	return nil
}

// KPIs are the derived fields. Never edited independently of RawInputs.
type KPIs struct {
	SalesTotal           decimal.Decimal
	FixedTotal           decimal.Decimal
	GrossProfit          decimal.Decimal
	NetProfitOperational decimal.Decimal
	ContribMargin        decimal.Decimal
	CMRatio              decimal.Decimal
	NPRatio              decimal.Decimal
	BreakevenSales       decimal.Decimal
	AvgDailySales        decimal.Decimal
	AvgSalePerVisit      decimal.Decimal
}

// ComputeKPIs applies the formula set. It is pure and deterministic.
func ComputeKPIs(r RawInputs) KPIs {
	salesTotal := r.SalesCash.Add(r.SalesIns)
	fixedTotal := r.FixedRent.Add(r.FixedStaff)
	return derive(salesTotal, r.VarTotal, fixedTotal, r.OpexOtherTotal, r.VisitsTotal, r.DaysCount)
}

// derive works from totals so the simulator can scale sales and fixed
// costs without splitting them back into components.
func derive(salesTotal, varTotal, fixedTotal, opexOther decimal.Decimal, visits, days int) KPIs {
	gross := salesTotal.Sub(varTotal)
	net := gross.Sub(fixedTotal).Sub(opexOther)

	k := KPIs{
		SalesTotal:           salesTotal,
		FixedTotal:           fixedTotal,
		GrossProfit:          gross,
		NetProfitOperational: net,
		ContribMargin:        gross,
		CMRatio:              decimal.Zero,
		NPRatio:              decimal.Zero,
		BreakevenSales:       decimal.Zero,
		AvgDailySales:        decimal.Zero,
		AvgSalePerVisit:      decimal.Zero,
	}
	if !salesTotal.IsZero() {
		k.CMRatio = gross.Div(salesTotal)
		k.NPRatio = net.Div(salesTotal)
	}
	if k.CMRatio.IsPositive() {
		k.BreakevenSales = fixedTotal.Div(k.CMRatio)
	}
	if days > 0 {
		k.AvgDailySales = salesTotal.Div(decimal.NewFromInt(int64(days)))
	}
	if visits > 0 {
		k.AvgSalePerVisit = salesTotal.Div(decimal.NewFromInt(int64(visits)))
	}
	return k
}

// PeriodMetrics is the persisted snapshot for one (pharmacy, period, basis).
type PeriodMetrics struct {
	PharmacyID PharmacyID
	PeriodID   PeriodID
	Basis      Basis
	RawInputs
	KPIs
	ComputedAt *time.Time
	LockedAt   *time.Time
}

// Locked reports whether the owning period was ever closed.
func (m PeriodMetrics) Locked() bool {
	return m.LockedAt != nil
}

// seedMetrics is the zeroed row created alongside a new period.
func seedMetrics(p Period, basis Basis) PeriodMetrics {
	raw := RawInputs{
		SalesCash:      decimal.Zero,
		SalesIns:       decimal.Zero,
		VarTotal:       decimal.Zero,
		FixedRent:      decimal.Zero,
		FixedStaff:     decimal.Zero,
		OpexOtherTotal: decimal.Zero,
		DaysCount:      p.Days(),
	}
	return PeriodMetrics{
		PharmacyID: p.PharmacyID,
		PeriodID:   p.ID,
		Basis:      basis,
		RawInputs:  raw,
		KPIs:       ComputeKPIs(raw),
	}
}
