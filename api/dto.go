/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Money and counts in requests are strings in shorthand form ("850k",
  "1.2m", Persian digits) and parsed with finance.ParseAmount/ParseCount.
  An empty string means zero. Money in responses is a decimal string.

DATES:
  Always ISO YYYY-MM-DD. Secondary-calendar dates appear next to them as
  display fields only.

VALIDATION:
  Struct tags are checked with go-playground/validator before the handler
  touches the engine. Business rules (overlap, negatives, status machine)
  stay in the engine.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/pharmacy-ledger/calendar"
	"github.com/warp/pharmacy-ledger/finance"
)

// =============================================================================
// PHARMACIES
// =============================================================================

type PharmacyDTO struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type CreatePharmacyRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// =============================================================================
// PERIODS
// =============================================================================

type PeriodDTO struct {
	ID             int64  `json:"id"`
	PharmacyID     int64  `json:"pharmacy_id"`
	Title          string `json:"title"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	StartSecondary string `json:"start_secondary,omitempty"`
	EndSecondary   string `json:"end_secondary,omitempty"`
	Days           int    `json:"days"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

type CreatePeriodRequest struct {
	Title     string `json:"title" validate:"max=200"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// MonthPeriodDTO is the result of a get-or-create month call.
type MonthPeriodDTO struct {
	Period  PeriodDTO `json:"period"`
	Created bool      `json:"created"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open pending_approval closed"`
}

// =============================================================================
// METRICS
// =============================================================================

type MetricsDTO struct {
	PharmacyID     int64           `json:"pharmacy_id"`
	PeriodID       int64           `json:"period_id"`
	Basis          string          `json:"basis"`
	SalesCash      decimal.Decimal `json:"sales_cash"`
	SalesIns       decimal.Decimal `json:"sales_ins"`
	VarTotal       decimal.Decimal `json:"var_total"`
	FixedRent      decimal.Decimal `json:"fixed_rent"`
	FixedStaff     decimal.Decimal `json:"fixed_staff"`
	OpexOtherTotal decimal.Decimal `json:"opex_other_total"`
	VisitsTotal    int             `json:"visits_total"`
	DaysCount      int             `json:"days_count"`
	KPIsDTO
	ComputedAt *string `json:"computed_at"`
	LockedAt   *string `json:"locked_at"`
}

type KPIsDTO struct {
	SalesTotal           decimal.Decimal `json:"sales_total"`
	FixedTotal           decimal.Decimal `json:"fixed_total"`
	GrossProfit          decimal.Decimal `json:"gross_profit"`
	NetProfitOperational decimal.Decimal `json:"net_profit_operational"`
	ContribMargin        decimal.Decimal `json:"contrib_margin"`
	CMRatio              decimal.Decimal `json:"cm_ratio"`
	NPRatio              decimal.Decimal `json:"np_ratio"`
	BreakevenSales       decimal.Decimal `json:"breakeven_sales"`
	AvgDailySales        decimal.Decimal `json:"avg_daily_sales"`
	AvgSalePerVisit      decimal.Decimal `json:"avg_sale_per_visit"`
}

// RecomputeRequest carries the raw inputs of a period. DaysCount defaults
// to the period length when omitted.
type RecomputeRequest struct {
	SalesCash      string `json:"sales_cash" validate:"required"`
	SalesIns       string `json:"sales_ins"`
	VarTotal       string `json:"var_total"`
	FixedRent      string `json:"fixed_rent"`
	FixedStaff     string `json:"fixed_staff"`
	OpexOtherTotal string `json:"opex_other_total"`
	VisitsTotal    string `json:"visits_total"`
	DaysCount      *int   `json:"days_count,omitempty" validate:"omitempty,min=0"`
}

type FromDailyLogsRequest struct {
	FixedRent  string `json:"fixed_rent"`
	FixedStaff string `json:"fixed_staff"`
}

// =============================================================================
// DAILY LOGS
// =============================================================================

type DailyLogDTO struct {
	PharmacyID    int64           `json:"pharmacy_id"`
	Date          string          `json:"date"`
	DateSecondary string          `json:"date_secondary,omitempty"`
	SalesCash     decimal.Decimal `json:"sales_cash"`
	SalesIns      decimal.Decimal `json:"sales_ins"`
	VarPurchases  decimal.Decimal `json:"var_purchases"`
	OpexOther     decimal.Decimal `json:"opex_other"`
	Visits        *int            `json:"visits"` // null when the stored value is unreadable
	Note          string          `json:"note,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type DailyLogRequest struct {
	SalesCash    string `json:"sales_cash"`
	SalesIns     string `json:"sales_ins"`
	VarPurchases string `json:"var_purchases"`
	OpexOther    string `json:"opex_other"`
	Visits       string `json:"visits"`
	Note         string `json:"note" validate:"max=500"`
}

// =============================================================================
// WINDOW, COMPARISON, SUMMARY
// =============================================================================

type WindowDayDTO struct {
	Date         string          `json:"date"`
	HasEntry     bool            `json:"has_entry"`
	SalesCash    decimal.Decimal `json:"sales_cash"`
	SalesIns     decimal.Decimal `json:"sales_ins"`
	VarPurchases decimal.Decimal `json:"var_purchases"`
	OpexOther    decimal.Decimal `json:"opex_other"`
	Visits       *int            `json:"visits"`
	Note         string          `json:"note,omitempty"`
}

type WindowDTO struct {
	PharmacyID    int64          `json:"pharmacy_id"`
	PeriodID      *int64         `json:"period_id"`
	StartDate     string         `json:"start_date"`
	EndDate       string         `json:"end_date"`
	Days          []WindowDayDTO `json:"days"`
	DaysWithEntry int            `json:"days_with_entry"`
	SkippedVisits int            `json:"skipped_visits"`
	Totals        struct {
		SalesCash    decimal.Decimal `json:"sales_cash"`
		SalesIns     decimal.Decimal `json:"sales_ins"`
		VarPurchases decimal.Decimal `json:"var_purchases"`
		OpexOther    decimal.Decimal `json:"opex_other"`
		Visits       int             `json:"visits"`
	} `json:"totals"`
}

type ComparisonRowDTO struct {
	Key         string          `json:"key"`
	Kind        string          `json:"kind"`
	A           decimal.Decimal `json:"a"`
	B           decimal.Decimal `json:"b"`
	Delta       *string         `json:"delta"` // null unless delta_state is "defined"
	PointChange decimal.Decimal `json:"point_change"`
	DeltaState  string          `json:"delta_state"`
}

type ComparisonDTO struct {
	PeriodA int64              `json:"period_a"`
	PeriodB int64              `json:"period_b"`
	Rows    []ComparisonRowDTO `json:"rows"`
}

type MonthlySummaryDTO struct {
	Month                  MonthDTO    `json:"month"`
	Period                 PeriodDTO   `json:"period"`
	Metrics                MetricsDTO  `json:"metrics"`
	PreviousPeriod         *PeriodDTO  `json:"previous_period"`
	PreviousMetrics        *MetricsDTO `json:"previous_metrics"`
	GrossProfitChange      *string     `json:"gross_profit_change"`
	GrossProfitChangeState string      `json:"gross_profit_change_state"`
}

// =============================================================================
// SIMULATOR
// =============================================================================

type DeltasDTO struct {
	Sales decimal.Decimal `json:"sales"`
	Var   decimal.Decimal `json:"var"`
	Fixed decimal.Decimal `json:"fixed"`
}

type BaselineDTO struct {
	SalesTotal     decimal.Decimal `json:"sales_total"`
	VarTotal       decimal.Decimal `json:"var_total"`
	FixedTotal     decimal.Decimal `json:"fixed_total"`
	OpexOtherTotal decimal.Decimal `json:"opex_other_total"`
	VisitsTotal    int             `json:"visits_total"`
	DaysCount      int             `json:"days_count"`
}

type SimulationDTO struct {
	Session    string      `json:"session"`
	PharmacyID int64       `json:"pharmacy_id"`
	PeriodID   int64       `json:"period_id"`
	Deltas     DeltasDTO   `json:"deltas"`
	Baseline   BaselineDTO `json:"baseline"`
	Adjusted   BaselineDTO `json:"adjusted"`
	KPIs       KPIsDTO     `json:"kpis"`
}

// AdjustRequest moves one lever by a step of ±0.05 or ±0.10.
type AdjustRequest struct {
	Lever string `json:"lever" validate:"required,oneof=sales var fixed"`
	Step  string `json:"step" validate:"required,numeric"`
}

// =============================================================================
// CALENDAR
// =============================================================================

type CalendarDayDTO struct {
	Date      string                 `json:"date"`
	Secondary calendar.SecondaryDate `json:"secondary"`
	Display   string                 `json:"display"`
	Month     MonthDTO               `json:"month"`
}

type MonthDTO struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPharmacyDTO(p finance.Pharmacy) PharmacyDTO {
	return PharmacyDTO{
		ID:        int64(p.ID),
		Title:     p.Title,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toPeriodDTO(p finance.Period, conv calendar.Converter) PeriodDTO {
	dto := PeriodDTO{
		ID:         int64(p.ID),
		PharmacyID: int64(p.PharmacyID),
		Title:      p.Title,
		StartDate:  p.Start.String(),
		EndDate:    p.End.String(),
		Days:       p.Days(),
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
	if s, err := conv.ToSecondary(p.Start); err == nil {
		dto.StartSecondary = s.String()
	}
	if s, err := conv.ToSecondary(p.End); err == nil {
		dto.EndSecondary = s.String()
	}
	return dto
}

func toKPIsDTO(k finance.KPIs) KPIsDTO {
	return KPIsDTO{
		SalesTotal:           k.SalesTotal,
		FixedTotal:           k.FixedTotal,
		GrossProfit:          k.GrossProfit,
		NetProfitOperational: k.NetProfitOperational,
		ContribMargin:        k.ContribMargin,
		CMRatio:              k.CMRatio,
		NPRatio:              k.NPRatio,
		BreakevenSales:       k.BreakevenSales,
		AvgDailySales:        k.AvgDailySales,
		AvgSalePerVisit:      k.AvgSalePerVisit,
	}
}

func toMetricsDTO(m finance.PeriodMetrics) MetricsDTO {
	return MetricsDTO{
		PharmacyID:     int64(m.PharmacyID),
		PeriodID:       int64(m.PeriodID),
		Basis:          string(m.Basis),
		SalesCash:      m.SalesCash,
		SalesIns:       m.SalesIns,
		VarTotal:       m.VarTotal,
		FixedRent:      m.FixedRent,
		FixedStaff:     m.FixedStaff,
		OpexOtherTotal: m.OpexOtherTotal,
		VisitsTotal:    m.VisitsTotal,
		DaysCount:      m.DaysCount,
		KPIsDTO:        toKPIsDTO(m.KPIs),
		ComputedAt:     timePtr(m.ComputedAt),
		LockedAt:       timePtr(m.LockedAt),
	}
}

func toDailyLogDTO(l finance.DailyLog, conv calendar.Converter) DailyLogDTO {
	dto := DailyLogDTO{
		PharmacyID:   int64(l.PharmacyID),
		Date:         l.Date.String(),
		SalesCash:    l.SalesCash,
		SalesIns:     l.SalesIns,
		VarPurchases: l.VarPurchases,
		OpexOther:    l.OpexOther,
		Visits:       visitsPtr(l.Visits, l.VisitsValid),
		Note:         l.Note,
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
	}
	if s, err := conv.ToSecondary(l.Date); err == nil {
		dto.DateSecondary = s.String()
	}
	return dto
}

func toWindowDTO(r finance.WindowReport) WindowDTO {
	dto := WindowDTO{
		PharmacyID:    int64(r.PharmacyID),
		StartDate:     r.Start.String(),
		EndDate:       r.End.String(),
		Days:          make([]WindowDayDTO, len(r.Days)),
		DaysWithEntry: r.DaysWithEntry,
		SkippedVisits: r.SkippedVisits,
	}
	if r.PeriodID != 0 {
		id := int64(r.PeriodID)
		dto.PeriodID = &id
	}
	for i, d := range r.Days {
		dto.Days[i] = WindowDayDTO{
			Date:         d.Date.String(),
			HasEntry:     d.HasEntry,
			SalesCash:    d.SalesCash,
			SalesIns:     d.SalesIns,
			VarPurchases: d.VarPurchases,
			OpexOther:    d.OpexOther,
			Visits:       visitsPtr(d.Visits, d.VisitsValid),
			Note:         d.Note,
		}
	}
	dto.Totals.SalesCash = r.Totals.SalesCash
	dto.Totals.SalesIns = r.Totals.SalesIns
	dto.Totals.VarPurchases = r.Totals.VarPurchases
	dto.Totals.OpexOther = r.Totals.OpexOther
	dto.Totals.Visits = r.Totals.Visits
	return dto
}

func toComparisonDTO(c finance.Comparison) ComparisonDTO {
	dto := ComparisonDTO{
		PeriodA: int64(c.PeriodA),
		PeriodB: int64(c.PeriodB),
		Rows:    make([]ComparisonRowDTO, len(c.Rows)),
	}
	for i, r := range c.Rows {
		dto.Rows[i] = ComparisonRowDTO{
			Key:         r.Key,
			Kind:        string(r.Kind),
			A:           r.A,
			B:           r.B,
			Delta:       deltaPtr(r.Delta, r.DeltaState),
			PointChange: r.PointChange,
			DeltaState:  string(r.DeltaState),
		}
	}
	return dto
}

func toMonthDTO(m calendar.Month) MonthDTO {
	return MonthDTO{
		Year:      m.Year,
		Month:     m.Month,
		Name:      calendar.MonthName(m.Month),
		Title:     m.Title(),
		StartDate: m.Start.String(),
		EndDate:   m.End.String(),
		Days:      m.Days,
	}
}

func toBaselineDTO(b finance.Baseline) BaselineDTO {
	return BaselineDTO{
		SalesTotal:     b.SalesTotal,
		VarTotal:       b.VarTotal,
		FixedTotal:     b.FixedTotal,
		OpexOtherTotal: b.OpexOtherTotal,
		VisitsTotal:    b.VisitsTotal,
		DaysCount:      b.DaysCount,
	}
}

func toSimulationDTO(s finance.Simulation) SimulationDTO {
	r := s.Result()
	return SimulationDTO{
		Session:    s.Key.Session,
		PharmacyID: int64(s.Key.PharmacyID),
		PeriodID:   int64(s.Key.PeriodID),
		Deltas: DeltasDTO{
			Sales: s.Deltas.Sales,
			Var:   s.Deltas.Var,
			Fixed: s.Deltas.Fixed,
		},
		Baseline: toBaselineDTO(r.Baseline),
		Adjusted: toBaselineDTO(r.Adjusted),
		KPIs:     toKPIsDTO(r.KPIs),
	}
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func visitsPtr(n int, valid bool) *int {
	if !valid {
		return nil
	}
	return &n
}

func deltaPtr(d decimal.Decimal, state finance.DeltaState) *string {
	if state != finance.DeltaDefined {
		return nil
	}
	s := d.String()
	return &s
}
