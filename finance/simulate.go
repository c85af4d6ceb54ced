/*
simulate.go - What-if simulator

PURPOSE:
  Explores "what if sales were 10% higher and purchases 10% lower" on top
  of a period's stored aggregates without writing anything back.

MODEL:
  Baseline: sales, var, fixed, opex, visits, days taken from stored metrics
  Deltas:   three independent fractions {sales, var, fixed}
            each moved in steps of +-0.05 or +-0.10, clamped to [-0.30, +0.30]
  Result:   new_x = baseline_x * (1 + delta_x) for sales/var/fixed, then the
            same KPI formulas as the recompute path. Opex, visits and days
            are held fixed.

SESSIONS:
  Delta state belongs to one caller session on one (pharmacy, period).
  Simulations is the registry of those sessions. It lives in process
  memory only and is never persisted.
*/
package finance

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Lever is an adjustable baseline aggregate.
type Lever string

const (
	LeverSales Lever = "sales"
	LeverVar   Lever = "var"
	LeverFixed Lever = "fixed"
)

// ParseLever validates a lever name.
func ParseLever(s string) (Lever, error) {
	switch l := Lever(s); l {
	case LeverSales, LeverVar, LeverFixed:
		return l, nil
	}
	return "", invalid("lever", s, "must be sales, var or fixed")
}

var (
	MaxDelta = decimal.RequireFromString("0.30")
	MinDelta = MaxDelta.Neg()

	allowedSteps = []decimal.Decimal{
		decimal.RequireFromString("0.05"),
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("-0.05"),
		decimal.RequireFromString("-0.10"),
	}
)

// =============================================================================
// PURE SIMULATION
// =============================================================================

// Baseline is the snapshot a simulation starts from.
type Baseline struct {
	SalesTotal     decimal.Decimal
	VarTotal       decimal.Decimal
	FixedTotal     decimal.Decimal
	OpexOtherTotal decimal.Decimal
	VisitsTotal    int
	DaysCount      int
}

// BaselineFrom takes the simulated aggregates from stored metrics.
func BaselineFrom(m PeriodMetrics) Baseline {
	return Baseline{
		SalesTotal:     m.SalesTotal,
		VarTotal:       m.VarTotal,
		FixedTotal:     m.FixedTotal,
		OpexOtherTotal: m.OpexOtherTotal,
		VisitsTotal:    m.VisitsTotal,
		DaysCount:      m.DaysCount,
	}
}

// Deltas are fractional adjustments, e.g. 0.10 for +10%.
type Deltas struct {
	Sales decimal.Decimal
	Var   decimal.Decimal
	Fixed decimal.Decimal
}

// Get returns the delta of one lever.
func (d Deltas) Get(l Lever) decimal.Decimal {
	switch l {
	case LeverSales:
		return d.Sales
	case LeverVar:
		return d.Var
	case LeverFixed:
		return d.Fixed
	}
	return decimal.Zero
}

// Adjust moves one lever by step and clamps the result.
func (d Deltas) Adjust(l Lever, step decimal.Decimal) (Deltas, error) {
	if _, err := ParseLever(string(l)); err != nil {
		return d, err
	}
	if !validStep(step) {
		return d, ErrInvalidStep
	}
	next := clampDelta(d.Get(l).Add(step))
	switch l {
	case LeverSales:
		d.Sales = next
	case LeverVar:
		d.Var = next
	case LeverFixed:
		d.Fixed = next
	}
	return d, nil
}

// IsZero reports whether no lever has moved.
func (d Deltas) IsZero() bool {
	return d.Sales.IsZero() && d.Var.IsZero() && d.Fixed.IsZero()
}

func validStep(step decimal.Decimal) bool {
	for _, s := range allowedSteps {
		if s.Equal(step) {
			return true
		}
	}
	return false
}

func clampDelta(v decimal.Decimal) decimal.Decimal {
	if v.GreaterThan(MaxDelta) {
		return MaxDelta
	}
	if v.LessThan(MinDelta) {
		return MinDelta
	}
	return v
}

// SimulationResult is the adjusted baseline and the KPIs derived from it.
type SimulationResult struct {
	Baseline Baseline
	Deltas   Deltas
	Adjusted Baseline
	KPIs     KPIs
}

// Simulate applies deltas to baseline. Deltas are used as given; clamping
// happens when they are adjusted.
func Simulate(b Baseline, d Deltas) SimulationResult {
	one := decimal.NewFromInt(1)
	adjusted := Baseline{
		SalesTotal:     b.SalesTotal.Mul(one.Add(d.Sales)),
		VarTotal:       b.VarTotal.Mul(one.Add(d.Var)),
		FixedTotal:     b.FixedTotal.Mul(one.Add(d.Fixed)),
		OpexOtherTotal: b.OpexOtherTotal,
		VisitsTotal:    b.VisitsTotal,
		DaysCount:      b.DaysCount,
	}
	return SimulationResult{
		Baseline: b,
		Deltas:   d,
		Adjusted: adjusted,
		KPIs: derive(adjusted.SalesTotal, adjusted.VarTotal, adjusted.FixedTotal,
			adjusted.OpexOtherTotal, adjusted.VisitsTotal, adjusted.DaysCount),
	}
}

// =============================================================================
// SESSION REGISTRY
// =============================================================================

// SimulationKey scopes delta state to one caller on one period.
type SimulationKey struct {
	Session    string
	PharmacyID PharmacyID
	PeriodID   PeriodID
}

// Simulation is one caller's state for one period.
type Simulation struct {
	Key      SimulationKey
	Baseline Baseline
	Deltas   Deltas
}

// Result simulates the current state.
func (s Simulation) Result() SimulationResult {
	return Simulate(s.Baseline, s.Deltas)
}

// Simulations holds live sessions. Safe for concurrent use.
type Simulations struct {
	mu       sync.Mutex
	sessions map[SimulationKey]*Simulation
}

func NewSimulations() *Simulations {
	return &Simulations{sessions: make(map[SimulationKey]*Simulation)}
}

// Start opens (or restarts) a session with zero deltas.
func (s *Simulations) Start(key SimulationKey, baseline Baseline) Simulation {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim := &Simulation{Key: key, Baseline: baseline}
	s.sessions[key] = sim
	return *sim
}

// Get returns a copy of the session state.
func (s *Simulations) Get(key SimulationKey) (Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim, ok := s.sessions[key]
	if !ok {
		return Simulation{}, notFound("simulation", key.PeriodID)
	}
	return *sim, nil
}

// Adjust moves one lever of a live session.
func (s *Simulations) Adjust(key SimulationKey, lever Lever, step decimal.Decimal) (Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim, ok := s.sessions[key]
	if !ok {
		return Simulation{}, notFound("simulation", key.PeriodID)
	}
	next, err := sim.Deltas.Adjust(lever, step)
	if err != nil {
		return *sim, err
	}
	sim.Deltas = next
	return *sim, nil
}

// Reset sets all deltas of a live session back to zero.
func (s *Simulations) Reset(key SimulationKey) (Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sim, ok := s.sessions[key]
	if !ok {
		return Simulation{}, notFound("simulation", key.PeriodID)
	}
	sim.Deltas = Deltas{}
	return *sim, nil
}

// End discards a session. It reports whether one existed.
func (s *Simulations) End(key SimulationKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[key]
	delete(s.sessions, key)
	return ok
}

// Len is the number of live sessions.
func (s *Simulations) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Clear discards every session.
func (s *Simulations) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sessions)
}
