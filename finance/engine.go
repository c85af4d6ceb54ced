/*
engine.go - Period and metrics engine

PURPOSE:
  The single entry point the transport layer talks to. It owns the
  rules the store cannot express on its own:
  - periods of one pharmacy never overlap
  - a period is never visible without its seeded metrics row
  - derived KPIs are only ever written together with their raw inputs
  - closed periods keep their numbers

CONCURRENCY:
  CreatePeriod / GetOrCreateMonthPeriod: per-pharmacy mutex + store tx
      around check-then-insert, so two creators cannot both pass the
      overlap check.
  RecomputeCash / SetStatus: per-(pharmacy, period, basis) mutex + store
      tx, so raw and derived fields are never interleaved and a close
      cannot race a recompute.

USAGE:
  engine := finance.NewEngine(store,
      finance.WithCalendar(conv),
      finance.WithLogger(log))

  period, created, err := engine.GetOrCreateMonthPeriod(ctx, pharmacyID, 1403, 1)
  metrics, err := engine.RecomputeCash(ctx, pharmacyID, period.ID, raw)

SEE ALSO:
  - store.go: Persistence contract
  - metrics.go, window.go, compare.go, simulate.go: Pure computations
*/
package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/pharmacy-ledger/calendar"
	"github.com/warp/pharmacy-ledger/logger"
)

// Engine orchestrates the stores and pure computations.
type Engine struct {
	store TxStore
	cal   calendar.Converter
	now   func() time.Time
	log   *logger.Logger

	pharmacyLocks *keyedMutex
	metricsLocks  *keyedMutex
}

type Option func(*Engine)

// WithCalendar selects the secondary calendar converter.
func WithCalendar(c calendar.Converter) Option {
	return func(e *Engine) { e.cal = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func NewEngine(store TxStore, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		cal:           calendar.Default(),
		now:           time.Now,
		log:           logger.Nop(),
		pharmacyLocks: newKeyedMutex(),
		metricsLocks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("finance")
	return e
}

// Calendar returns the configured converter.
func (e *Engine) Calendar() calendar.Converter {
	return e.cal
}

// Today returns the engine clock's calendar day.
func (e *Engine) Today() calendar.Date {
	return calendar.FromTime(e.now())
}

// Ping checks the backing store when it holds a connection.
func (e *Engine) Ping(ctx context.Context) error {
	if p, ok := e.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Reset wipes all data. Demo scenarios only.
func (e *Engine) Reset(ctx context.Context) error {
	return e.store.Reset(ctx)
}

// =============================================================================
// PHARMACIES
// =============================================================================

func (e *Engine) CreatePharmacy(ctx context.Context, title string) (Pharmacy, error) {
	title = trimTitle(title)
	if title == "" {
		return Pharmacy{}, invalid("title", "", "required")
	}
	p, err := e.store.CreatePharmacy(ctx, title, e.now().UTC())
	if err != nil {
		return Pharmacy{}, fmt.Errorf("create pharmacy: %w", err)
	}
	e.log.WithContext(ctx).Infow("pharmacy created", "pharmacy_id", p.ID, "title", p.Title)
	return p, nil
}

func (e *Engine) GetPharmacy(ctx context.Context, id PharmacyID) (Pharmacy, error) {
	return e.store.GetPharmacy(ctx, id)
}

func (e *Engine) ListPharmacies(ctx context.Context) ([]Pharmacy, error) {
	return e.store.ListPharmacies(ctx)
}

// =============================================================================
// PERIODS
// =============================================================================

// CreatePeriod inserts an open period and its zeroed cash metrics.
// An intersecting period yields *OverlapError and changes nothing.
func (e *Engine) CreatePeriod(ctx context.Context, pharmacyID PharmacyID, title string, start, end calendar.Date) (Period, error) {
	if err := validateBounds(start, end); err != nil {
		return Period{}, err
	}
	if _, err := e.store.GetPharmacy(ctx, pharmacyID); err != nil {
		return Period{}, err
	}
	title = trimTitle(title)
	if title == "" {
		title = start.String() + " .. " + end.String()
	}

	unlock := e.pharmacyLocks.Lock(pharmacyKey(pharmacyID))
	defer unlock()

	var created Period
	err := e.store.WithTx(ctx, func(s Store) error {
		var err error
		created, err = e.createPeriodTx(ctx, s, pharmacyID, title, start, end)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	return created, nil
}

// GetOrCreateMonthPeriod returns the period spanning the secondary month,
// creating it with a generated title when absent. created reports which.
func (e *Engine) GetOrCreateMonthPeriod(ctx context.Context, pharmacyID PharmacyID, year, month int) (period Period, created bool, err error) {
	m, err := calendar.MonthBounds(e.cal, year, month)
	if err != nil {
		return Period{}, false, err
	}
	if _, err := e.store.GetPharmacy(ctx, pharmacyID); err != nil {
		return Period{}, false, err
	}

	unlock := e.pharmacyLocks.Lock(pharmacyKey(pharmacyID))
	defer unlock()

	err = e.store.WithTx(ctx, func(s Store) error {
		existing, err := s.FindPeriodByBounds(ctx, pharmacyID, m.Start, m.End)
		if err == nil {
			period = existing
			return nil
		}
		if !IsNotFound(err) {
			return err
		}
		period, err = e.createPeriodTx(ctx, s, pharmacyID, m.Title(), m.Start, m.End)
		created = err == nil
		return err
	})
	if err != nil {
		return Period{}, false, err
	}
	return period, created, nil
}

func (e *Engine) createPeriodTx(ctx context.Context, s Store, pharmacyID PharmacyID, title string, start, end calendar.Date) (Period, error) {
	span := calendar.Range{Start: start, End: end}
	conflicts, err := s.FindOverlapping(ctx, pharmacyID, span)
	if err != nil {
		return Period{}, fmt.Errorf("check overlap: %w", err)
	}
	if len(conflicts) > 0 {
		c := conflicts[0]
		e.log.WithContext(ctx).Warnw("period overlap rejected",
			"pharmacy_id", pharmacyID, "start", start, "end", end, "period_id", c.ID)
		return Period{}, &OverlapError{
			PharmacyID:          pharmacyID,
			Start:               start,
			End:                 end,
			ConflictingPeriodID: c.ID,
			ConflictingRange:    c.Range(),
		}
	}

	p := Period{
		PharmacyID: pharmacyID,
		Title:      title,
		Start:      start,
		End:        end,
		Status:     StatusOpen,
		CreatedAt:  e.now().UTC(),
	}
	id, err := s.InsertPeriod(ctx, p)
	if err != nil {
		return Period{}, fmt.Errorf("insert period: %w", err)
	}
	p.ID = id

	if err := s.SaveMetrics(ctx, seedMetrics(p, BasisCash)); err != nil {
		return Period{}, fmt.Errorf("seed metrics: %w", err)
	}

	e.log.WithContext(ctx).Infow("period created",
		"pharmacy_id", pharmacyID, "period_id", id, "start", start, "end", end)
	return p, nil
}

// FindMonthPeriod looks up the period of a secondary month without creating it.
func (e *Engine) FindMonthPeriod(ctx context.Context, pharmacyID PharmacyID, year, month int) (Period, error) {
	m, err := calendar.MonthBounds(e.cal, year, month)
	if err != nil {
		return Period{}, err
	}
	return e.store.FindPeriodByBounds(ctx, pharmacyID, m.Start, m.End)
}

// FindPeriodByBounds is an exact-match lookup. It never creates.
func (e *Engine) FindPeriodByBounds(ctx context.Context, pharmacyID PharmacyID, start, end calendar.Date) (Period, error) {
	return e.store.FindPeriodByBounds(ctx, pharmacyID, start, end)
}

func (e *Engine) GetPeriod(ctx context.Context, id PeriodID) (Period, error) {
	return e.store.GetPeriod(ctx, id)
}

// ListPeriods returns a pharmacy's periods, most recent first.
func (e *Engine) ListPeriods(ctx context.Context, pharmacyID PharmacyID) ([]Period, error) {
	if _, err := e.store.GetPharmacy(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return e.store.ListPeriods(ctx, pharmacyID)
}

// SetStatus moves a period along the status machine. Closing stamps
// locked_at on the cash metrics; nothing ever clears it.
func (e *Engine) SetStatus(ctx context.Context, periodID PeriodID, status PeriodStatus) (Period, error) {
	return e.changeStatus(ctx, periodID, status, func(from PeriodStatus) bool {
		return from.CanTransitionTo(status)
	})
}

// ReopenPeriod is the administrative exit from closed. locked_at is kept.
func (e *Engine) ReopenPeriod(ctx context.Context, periodID PeriodID) (Period, error) {
	return e.changeStatus(ctx, periodID, StatusOpen, func(from PeriodStatus) bool {
		return from == StatusClosed
	})
}

func (e *Engine) changeStatus(ctx context.Context, periodID PeriodID, to PeriodStatus, allowed func(PeriodStatus) bool) (Period, error) {
	if _, err := ParsePeriodStatus(string(to)); err != nil {
		return Period{}, err
	}
	current, err := e.store.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}

	unlock := e.metricsLocks.Lock(metricsKey(current.PharmacyID, periodID, BasisCash))
	defer unlock()

	var updated Period
	err = e.store.WithTx(ctx, func(s Store) error {
		p, err := s.GetPeriod(ctx, periodID)
		if err != nil {
			return err
		}
		if !allowed(p.Status) {
			return &TransitionError{PeriodID: periodID, From: p.Status, To: to}
		}
		if err := s.UpdatePeriodStatus(ctx, periodID, to); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if to == StatusClosed {
			if err := s.LockMetrics(ctx, p.PharmacyID, periodID, BasisCash, e.now().UTC()); err != nil {
				return fmt.Errorf("lock metrics: %w", err)
			}
		}
		e.log.WithContext(ctx).Infow("period status changed",
			"pharmacy_id", p.PharmacyID, "period_id", periodID, "from", p.Status, "to", to)
		p.Status = to
		updated = p
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	return updated, nil
}

// =============================================================================
// METRICS
// =============================================================================

// RecomputeCash persists raw inputs and every derived field for the cash
// basis in one write. Closed periods are rejected with ErrPeriodClosed.
func (e *Engine) RecomputeCash(ctx context.Context, pharmacyID PharmacyID, periodID PeriodID, raw RawInputs) (PeriodMetrics, error) {
	if err := raw.Validate(); err != nil {
		return PeriodMetrics{}, err
	}

	unlock := e.metricsLocks.Lock(metricsKey(pharmacyID, periodID, BasisCash))
	defer unlock()

	var saved PeriodMetrics
	err := e.store.WithTx(ctx, func(s Store) error {
		p, err := e.periodOf(ctx, s, pharmacyID, periodID)
		if err != nil {
			return err
		}
		if !p.Status.Editable() {
			return fmt.Errorf("recompute period %d: %w", periodID, ErrPeriodClosed)
		}

		computedAt := e.now().UTC()
		m := PeriodMetrics{
			PharmacyID: pharmacyID,
			PeriodID:   periodID,
			Basis:      BasisCash,
			RawInputs:  raw,
			KPIs:       ComputeKPIs(raw),
			ComputedAt: &computedAt,
		}
		if err := s.SaveMetrics(ctx, m); err != nil {
			return fmt.Errorf("save metrics: %w", err)
		}
		saved, err = s.GetMetrics(ctx, pharmacyID, periodID, BasisCash)
		return err
	})
	if err != nil {
		return PeriodMetrics{}, err
	}

	e.log.WithContext(ctx).Infow("metrics recomputed",
		"pharmacy_id", pharmacyID, "period_id", periodID,
		"sales_total", saved.SalesTotal.String(), "net_profit", saved.NetProfitOperational.String())
	return saved, nil
}

// FixedCosts are the period-level costs daily logs do not carry.
type FixedCosts struct {
	FixedRent  decimal.Decimal
	FixedStaff decimal.Decimal
}

// RecomputeFromDailyLogs sums the period's daily logs into raw inputs and
// recomputes. days_count is the period's inclusive length; days whose
// visit value is unreadable add nothing to visits_total.
func (e *Engine) RecomputeFromDailyLogs(ctx context.Context, pharmacyID PharmacyID, periodID PeriodID, fixed FixedCosts) (PeriodMetrics, error) {
	p, err := e.periodOf(ctx, e.store, pharmacyID, periodID)
	if err != nil {
		return PeriodMetrics{}, err
	}
	logs, err := e.store.ListDailyLogs(ctx, pharmacyID, p.Start, p.End)
	if err != nil {
		return PeriodMetrics{}, fmt.Errorf("list daily logs: %w", err)
	}

	raw := RawInputs{
		SalesCash:      decimal.Zero,
		SalesIns:       decimal.Zero,
		VarTotal:       decimal.Zero,
		FixedRent:      fixed.FixedRent,
		FixedStaff:     fixed.FixedStaff,
		OpexOtherTotal: decimal.Zero,
		DaysCount:      p.Days(),
	}
	for _, l := range logs {
		raw.SalesCash = raw.SalesCash.Add(l.SalesCash)
		raw.SalesIns = raw.SalesIns.Add(l.SalesIns)
		raw.VarTotal = raw.VarTotal.Add(l.VarPurchases)
		raw.OpexOtherTotal = raw.OpexOtherTotal.Add(l.OpexOther)
		if l.VisitsValid {
			raw.VisitsTotal += l.Visits
		}
	}
	return e.RecomputeCash(ctx, pharmacyID, periodID, raw)
}

// GetMetrics returns the cash-basis snapshot of a period.
func (e *Engine) GetMetrics(ctx context.Context, pharmacyID PharmacyID, periodID PeriodID) (PeriodMetrics, error) {
	return e.store.GetMetrics(ctx, pharmacyID, periodID, BasisCash)
}

// periodOf loads a period and checks it belongs to pharmacyID.
func (e *Engine) periodOf(ctx context.Context, s Store, pharmacyID PharmacyID, periodID PeriodID) (Period, error) {
	p, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	if p.PharmacyID != pharmacyID {
		return Period{}, notFound("period", fmt.Sprintf("%d of pharmacy %d", periodID, pharmacyID))
	}
	return p, nil
}

// =============================================================================
// DAILY LOGS
// =============================================================================

// UpsertDailyLog writes the day's entry, replacing any earlier entry for
// the same date.
func (e *Engine) UpsertDailyLog(ctx context.Context, log DailyLog) (DailyLog, error) {
	if err := log.Validate(); err != nil {
		return DailyLog{}, err
	}
	if _, err := e.store.GetPharmacy(ctx, log.PharmacyID); err != nil {
		return DailyLog{}, err
	}
	log.VisitsValid = true
	log.CreatedAt = e.now().UTC()
	if err := e.store.UpsertDailyLog(ctx, log); err != nil {
		return DailyLog{}, fmt.Errorf("upsert daily log: %w", err)
	}
	e.log.WithContext(ctx).Debugw("daily log saved", "pharmacy_id", log.PharmacyID, "date", log.Date)
	return e.store.GetDailyLog(ctx, log.PharmacyID, log.Date)
}

func (e *Engine) GetDailyLog(ctx context.Context, pharmacyID PharmacyID, date calendar.Date) (DailyLog, error) {
	return e.store.GetDailyLog(ctx, pharmacyID, date)
}

// ListDailyLogs returns logs in [from, to] in date order.
func (e *Engine) ListDailyLogs(ctx context.Context, pharmacyID PharmacyID, from, to calendar.Date) ([]DailyLog, error) {
	if err := validateBounds(from, to); err != nil {
		return nil, err
	}
	return e.store.ListDailyLogs(ctx, pharmacyID, from, to)
}

// LatestDailyLog returns the most recent log in [from, to].
func (e *Engine) LatestDailyLog(ctx context.Context, pharmacyID PharmacyID, from, to calendar.Date) (DailyLog, error) {
	if err := validateBounds(from, to); err != nil {
		return DailyLog{}, err
	}
	return e.store.LatestDailyLog(ctx, pharmacyID, from, to)
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// WeeklyWindow aggregates the last seven days of a period. A zero or
// unknown periodID falls back to the seven days ending today.
func (e *Engine) WeeklyWindow(ctx context.Context, pharmacyID PharmacyID, periodID PeriodID) (WindowReport, error) {
	var period *Period
	if periodID != 0 {
		p, err := e.periodOf(ctx, e.store, pharmacyID, periodID)
		switch {
		case err == nil:
			period = &p
		case !IsNotFound(err):
			return WindowReport{}, err
		}
	}

	start, end := WindowBounds(period, e.Today())
	logs, err := e.store.ListDailyLogs(ctx, pharmacyID, start, end)
	if err != nil {
		return WindowReport{}, fmt.Errorf("list daily logs: %w", err)
	}
	report := AggregateWindow(start, end, logs)
	report.PharmacyID = pharmacyID
	if period != nil {
		report.PeriodID = period.ID
	}
	return report, nil
}

// ComparePeriods compares the cash metrics of two periods, a to b.
func (e *Engine) ComparePeriods(ctx context.Context, pharmacyID PharmacyID, a, b PeriodID) (Comparison, error) {
	ma, err := e.store.GetMetrics(ctx, pharmacyID, a, BasisCash)
	if err != nil {
		return Comparison{}, err
	}
	mb, err := e.store.GetMetrics(ctx, pharmacyID, b, BasisCash)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(ma, mb), nil
}

// CompareWithPreviousMonth compares the previous secondary month (A) with
// the given one (B). Missing periods are NotFound; none are created.
func (e *Engine) CompareWithPreviousMonth(ctx context.Context, pharmacyID PharmacyID, year, month int) (Comparison, error) {
	current, err := e.FindMonthPeriod(ctx, pharmacyID, year, month)
	if err != nil {
		return Comparison{}, err
	}
	py, pm := calendar.PrevMonth(year, month)
	previous, err := e.FindMonthPeriod(ctx, pharmacyID, py, pm)
	if err != nil {
		return Comparison{}, err
	}
	return e.ComparePeriods(ctx, pharmacyID, previous.ID, current.ID)
}

// MonthlySummary is a month's period and metrics with the change in gross
// profit against the previous month when that month exists.
type MonthlySummary struct {
	Month           calendar.Month
	Period          Period
	Metrics         PeriodMetrics
	PreviousPeriod  *Period
	PreviousMetrics *PeriodMetrics
	// GrossProfitChange is (current - previous) / |previous|.
	GrossProfitChange      decimal.Decimal
	GrossProfitChangeState DeltaState
}

func (e *Engine) MonthlySummary(ctx context.Context, pharmacyID PharmacyID, year, month int) (MonthlySummary, error) {
	m, err := calendar.MonthBounds(e.cal, year, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	p, err := e.store.FindPeriodByBounds(ctx, pharmacyID, m.Start, m.End)
	if err != nil {
		return MonthlySummary{}, err
	}
	metrics, err := e.store.GetMetrics(ctx, pharmacyID, p.ID, BasisCash)
	if err != nil {
		return MonthlySummary{}, err
	}

	summary := MonthlySummary{
		Month:                  m,
		Period:                 p,
		Metrics:                metrics,
		GrossProfitChangeState: DeltaNotApplicable,
	}

	py, pm := calendar.PrevMonth(year, month)
	prev, err := e.FindMonthPeriod(ctx, pharmacyID, py, pm)
	switch {
	case IsNotFound(err):
		return summary, nil
	case err != nil:
		return MonthlySummary{}, err
	}
	prevMetrics, err := e.store.GetMetrics(ctx, pharmacyID, prev.ID, BasisCash)
	switch {
	case IsNotFound(err):
		return summary, nil
	case err != nil:
		return MonthlySummary{}, err
	}

	summary.PreviousPeriod = &prev
	summary.PreviousMetrics = &prevMetrics
	summary.GrossProfitChange, summary.GrossProfitChangeState =
		RelativeDelta(prevMetrics.GrossProfit, metrics.GrossProfit)
	return summary, nil
}

// Baseline loads the simulator baseline of a period.
func (e *Engine) Baseline(ctx context.Context, pharmacyID PharmacyID, periodID PeriodID) (Baseline, error) {
	m, err := e.store.GetMetrics(ctx, pharmacyID, periodID, BasisCash)
	if err != nil {
		return Baseline{}, err
	}
	return BaselineFrom(m), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func validateBounds(start, end calendar.Date) error {
	if start.IsZero() {
		return invalid("start_date", "", "required")
	}
	if end.IsZero() {
		return invalid("end_date", "", "required")
	}
	if end.Before(start) {
		return invalid("end_date", end.String(), "must not be before start_date "+start.String())
	}
	return nil
}

func trimTitle(s string) string {
	const maxTitle = 200
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxTitle {
		s = string(r[:maxTitle])
	}
	return s
}
