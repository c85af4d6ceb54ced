// Package store provides in-memory finance.TxStore implementations.
package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/warp/pharmacy-ledger/calendar"
	"github.com/warp/pharmacy-ledger/finance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps everything in maps behind one mutex. WithTx is simulated with
// a snapshot and a rollback on error.
type Memory struct {
	mu sync.RWMutex
	st *state
}

var _ finance.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

type metricsKey struct {
	pharmacy finance.PharmacyID
	period   finance.PeriodID
	basis    finance.Basis
}

type logKey struct {
	pharmacy finance.PharmacyID
	date     string
}

type state struct {
	lastPharmacy finance.PharmacyID
	lastPeriod   finance.PeriodID
	pharmacies   map[finance.PharmacyID]finance.Pharmacy
	periods      map[finance.PeriodID]finance.Period
	metrics      map[metricsKey]finance.PeriodMetrics
	logs         map[logKey]finance.DailyLog
}

func newState() *state {
	return &state{
		pharmacies: make(map[finance.PharmacyID]finance.Pharmacy),
		periods:    make(map[finance.PeriodID]finance.Period),
		metrics:    make(map[metricsKey]finance.PeriodMetrics),
		logs:       make(map[logKey]finance.DailyLog),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.lastPharmacy, c.lastPeriod = s.lastPharmacy, s.lastPeriod
	for k, v := range s.pharmacies {
		c.pharmacies[k] = v
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.metrics {
		c.metrics[k] = v
	}
	for k, v := range s.logs {
		c.logs[k] = v
	}
	return c
}

// =============================================================================
// LOCKED ENTRY POINTS
// =============================================================================

func (m *Memory) read() finance.Store {
	return view{st: m.st}
}

func (m *Memory) CreatePharmacy(ctx context.Context, title string, createdAt time.Time) (finance.Pharmacy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().CreatePharmacy(ctx, title, createdAt)
}

func (m *Memory) GetPharmacy(ctx context.Context, id finance.PharmacyID) (finance.Pharmacy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetPharmacy(ctx, id)
}

func (m *Memory) ListPharmacies(ctx context.Context) ([]finance.Pharmacy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListPharmacies(ctx)
}

func (m *Memory) InsertPeriod(ctx context.Context, p finance.Period) (finance.PeriodID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().InsertPeriod(ctx, p)
}

func (m *Memory) GetPeriod(ctx context.Context, id finance.PeriodID) (finance.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetPeriod(ctx, id)
}

func (m *Memory) ListPeriods(ctx context.Context, pharmacyID finance.PharmacyID) ([]finance.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListPeriods(ctx, pharmacyID)
}

func (m *Memory) FindPeriodByBounds(ctx context.Context, pharmacyID finance.PharmacyID, start, end calendar.Date) (finance.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().FindPeriodByBounds(ctx, pharmacyID, start, end)
}

func (m *Memory) FindOverlapping(ctx context.Context, pharmacyID finance.PharmacyID, r calendar.Range) ([]finance.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().FindOverlapping(ctx, pharmacyID, r)
}

func (m *Memory) UpdatePeriodStatus(ctx context.Context, id finance.PeriodID, status finance.PeriodStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().UpdatePeriodStatus(ctx, id, status)
}

func (m *Memory) GetMetrics(ctx context.Context, pharmacyID finance.PharmacyID, periodID finance.PeriodID, basis finance.Basis) (finance.PeriodMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetMetrics(ctx, pharmacyID, periodID, basis)
}

func (m *Memory) SaveMetrics(ctx context.Context, pm finance.PeriodMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().SaveMetrics(ctx, pm)
}

func (m *Memory) LockMetrics(ctx context.Context, pharmacyID finance.PharmacyID, periodID finance.PeriodID, basis finance.Basis, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().LockMetrics(ctx, pharmacyID, periodID, basis, at)
}

func (m *Memory) UpsertDailyLog(ctx context.Context, l finance.DailyLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().UpsertDailyLog(ctx, l)
}

func (m *Memory) GetDailyLog(ctx context.Context, pharmacyID finance.PharmacyID, date calendar.Date) (finance.DailyLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetDailyLog(ctx, pharmacyID, date)
}

func (m *Memory) ListDailyLogs(ctx context.Context, pharmacyID finance.PharmacyID, from, to calendar.Date) ([]finance.DailyLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListDailyLogs(ctx, pharmacyID, from, to)
}

func (m *Memory) LatestDailyLog(ctx context.Context, pharmacyID finance.PharmacyID, from, to calendar.Date) (finance.DailyLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().LatestDailyLog(ctx, pharmacyID, from, to)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn with exclusive access. On error the state captured
// before fn ran is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(finance.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(view{st: m.st}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState()
	return nil
}

// =============================================================================
// VIEW - Unlocked operations; callers hold Memory.mu
// =============================================================================

type view struct {
	st *state
}

func (v view) CreatePharmacy(_ context.Context, title string, createdAt time.Time) (finance.Pharmacy, error) {
	v.st.lastPharmacy++
	p := finance.Pharmacy{ID: v.st.lastPharmacy, Title: title, CreatedAt: createdAt}
	v.st.pharmacies[p.ID] = p
	return p, nil
}

func (v view) GetPharmacy(_ context.Context, id finance.PharmacyID) (finance.Pharmacy, error) {
	p, ok := v.st.pharmacies[id]
	if !ok {
		return finance.Pharmacy{}, &finance.NotFoundError{Kind: "pharmacy", Key: itoa(int64(id))}
	}
	return p, nil
}

func (v view) ListPharmacies(_ context.Context) ([]finance.Pharmacy, error) {
	result := make([]finance.Pharmacy, 0, len(v.st.pharmacies))
	for _, p := range v.st.pharmacies {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (v view) InsertPeriod(_ context.Context, p finance.Period) (finance.PeriodID, error) {
	if _, ok := v.st.pharmacies[p.PharmacyID]; !ok {
		return 0, &finance.NotFoundError{Kind: "pharmacy", Key: itoa(int64(p.PharmacyID))}
	}
	v.st.lastPeriod++
	p.ID = v.st.lastPeriod
	v.st.periods[p.ID] = p
	return p.ID, nil
}

func (v view) GetPeriod(_ context.Context, id finance.PeriodID) (finance.Period, error) {
	p, ok := v.st.periods[id]
	if !ok {
		return finance.Period{}, &finance.NotFoundError{Kind: "period", Key: itoa(int64(id))}
	}
	return p, nil
}

func (v view) ListPeriods(_ context.Context, pharmacyID finance.PharmacyID) ([]finance.Period, error) {
	result := []finance.Period{}
	for _, p := range v.st.periods {
		if p.PharmacyID == pharmacyID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Start.Equal(result[j].Start) {
			return result[i].Start.After(result[j].Start)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (v view) FindPeriodByBounds(_ context.Context, pharmacyID finance.PharmacyID, start, end calendar.Date) (finance.Period, error) {
	for _, p := range v.st.periods {
		if p.PharmacyID == pharmacyID && p.Start.Equal(start) && p.End.Equal(end) {
			return p, nil
		}
	}
	return finance.Period{}, &finance.NotFoundError{Kind: "period", Key: start.String() + ".." + end.String()}
}

func (v view) FindOverlapping(_ context.Context, pharmacyID finance.PharmacyID, r calendar.Range) ([]finance.Period, error) {
	var result []finance.Period
	for _, p := range v.st.periods {
		if p.PharmacyID == pharmacyID && p.Range().Overlaps(r) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (v view) UpdatePeriodStatus(_ context.Context, id finance.PeriodID, status finance.PeriodStatus) error {
	p, ok := v.st.periods[id]
	if !ok {
		return &finance.NotFoundError{Kind: "period", Key: itoa(int64(id))}
	}
	p.Status = status
	v.st.periods[id] = p
	return nil
}

func (v view) GetMetrics(_ context.Context, pharmacyID finance.PharmacyID, periodID finance.PeriodID, basis finance.Basis) (finance.PeriodMetrics, error) {
	m, ok := v.st.metrics[metricsKey{pharmacyID, periodID, basis}]
	if !ok {
		return finance.PeriodMetrics{}, &finance.NotFoundError{Kind: "metrics", Key: itoa(int64(periodID))}
	}
	return m, nil
}

func (v view) SaveMetrics(_ context.Context, m finance.PeriodMetrics) error {
	k := metricsKey{m.PharmacyID, m.PeriodID, m.Basis}
	if existing, ok := v.st.metrics[k]; ok {
		m.LockedAt = existing.LockedAt
	} else {
		m.LockedAt = nil
	}
	v.st.metrics[k] = m
	return nil
}

func (v view) LockMetrics(_ context.Context, pharmacyID finance.PharmacyID, periodID finance.PeriodID, basis finance.Basis, at time.Time) error {
	k := metricsKey{pharmacyID, periodID, basis}
	m, ok := v.st.metrics[k]
	if !ok {
		return &finance.NotFoundError{Kind: "metrics", Key: itoa(int64(periodID))}
	}
	if m.LockedAt == nil {
		m.LockedAt = &at
		v.st.metrics[k] = m
	}
	return nil
}

func (v view) UpsertDailyLog(_ context.Context, l finance.DailyLog) error {
	k := logKey{l.PharmacyID, l.Date.String()}
	if existing, ok := v.st.logs[k]; ok {
		l.CreatedAt = existing.CreatedAt
	}
	v.st.logs[k] = l
	return nil
}

func (v view) GetDailyLog(_ context.Context, pharmacyID finance.PharmacyID, date calendar.Date) (finance.DailyLog, error) {
	l, ok := v.st.logs[logKey{pharmacyID, date.String()}]
	if !ok {
		return finance.DailyLog{}, &finance.NotFoundError{Kind: "daily_log", Key: date.String()}
	}
	return l, nil
}

func (v view) ListDailyLogs(_ context.Context, pharmacyID finance.PharmacyID, from, to calendar.Date) ([]finance.DailyLog, error) {
	span := calendar.Range{Start: from, End: to}
	result := []finance.DailyLog{}
	for _, l := range v.st.logs {
		if l.PharmacyID == pharmacyID && span.Contains(l.Date) {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (v view) LatestDailyLog(ctx context.Context, pharmacyID finance.PharmacyID, from, to calendar.Date) (finance.DailyLog, error) {
	logs, _ := v.ListDailyLogs(ctx, pharmacyID, from, to)
	if len(logs) == 0 {
		return finance.DailyLog{}, &finance.NotFoundError{Kind: "daily_log", Key: from.String() + ".." + to.String()}
	}
	return logs[len(logs)-1], nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
