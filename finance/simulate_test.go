package finance_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pharmacy-ledger/finance"
)

func scenarioBaseline() finance.Baseline {
	return finance.BaselineFrom(metricsOf(1, scenarioInputs()))
}

// =============================================================================
// PURE SIMULATION
// =============================================================================

func TestSimulate_SalesUpVarDown(t *testing.T) {
	// GIVEN: The 10M / 3M / 3M baseline
	// WHEN: Sales +10% and variable costs -10%
	// THEN: 11M sales, 2.7M variable, gross 8.3M, net 4.8M

	d := finance.Deltas{Sales: dec("0.10"), Var: dec("-0.10")}

	r := finance.Simulate(scenarioBaseline(), d)

	assertDec(t, "11000000", r.Adjusted.SalesTotal)
	assertDec(t, "2700000", r.Adjusted.VarTotal)
	assertDec(t, "3000000", r.Adjusted.FixedTotal)
	assertDec(t, "11000000", r.KPIs.SalesTotal)
	assertDec(t, "8300000", r.KPIs.GrossProfit)
	assertDec(t, "4800000", r.KPIs.NetProfitOperational)
	assertDec(t, "10000000", r.Baseline.SalesTotal)
}

func TestSimulate_ZeroDeltasMatchStoredKPIs(t *testing.T) {
	stored := finance.ComputeKPIs(scenarioInputs())

	r := finance.Simulate(scenarioBaseline(), finance.Deltas{})

	assertDec(t, stored.NetProfitOperational.String(), r.KPIs.NetProfitOperational)
	assertDec(t, stored.BreakevenSales.String(), r.KPIs.BreakevenSales)
	assertDec(t, stored.AvgSalePerVisit.String(), r.KPIs.AvgSalePerVisit)
}

func TestSimulate_NegativeMargin_BreakevenZero(t *testing.T) {
	// GIVEN: A baseline where variable costs almost equal sales
	// WHEN: Cutting sales 30%
	// THEN: Margin turns negative and breakeven is zero, as in recompute

	b := finance.Baseline{
		SalesTotal: dec("1000"),
		VarTotal:   dec("900"),
		FixedTotal: dec("100"),
		DaysCount:  30,
	}

	r := finance.Simulate(b, finance.Deltas{Sales: dec("-0.30")})

	assert.True(t, r.KPIs.CMRatio.IsNegative())
	assertDec(t, "0", r.KPIs.BreakevenSales)
}

// =============================================================================
// DELTAS
// =============================================================================

func TestDeltas_Adjust_Clamps(t *testing.T) {
	// GIVEN: Zero deltas
	// WHEN: Pushing sales up by 10% four times
	// THEN: The delta stops at +30%

	var d finance.Deltas
	var err error
	for i := 0; i < 4; i++ {
		d, err = d.Adjust(finance.LeverSales, dec("0.10"))
		require.NoError(t, err)
	}
	assertDec(t, "0.30", d.Sales)

	for i := 0; i < 8; i++ {
		d, err = d.Adjust(finance.LeverFixed, dec("-0.05"))
		require.NoError(t, err)
	}
	assertDec(t, "-0.30", d.Fixed)
	assert.False(t, d.IsZero())
}

func TestDeltas_Adjust_RejectsInvalidStep(t *testing.T) {
	var d finance.Deltas

	_, err := d.Adjust(finance.LeverSales, dec("0.07"))
	assert.ErrorIs(t, err, finance.ErrInvalidStep)
	assert.True(t, finance.IsClientError(err))

	_, err = d.Adjust(finance.Lever("price"), dec("0.05"))
	assert.ErrorIs(t, err, finance.ErrValidation)
}

func TestParseLever(t *testing.T) {
	l, err := finance.ParseLever("var")
	require.NoError(t, err)
	assert.Equal(t, finance.LeverVar, l)

	_, err = finance.ParseLever("rent")
	assert.Error(t, err)
}

// =============================================================================
// SESSION REGISTRY
// =============================================================================

func TestSimulations_SessionsAreIsolated(t *testing.T) {
	// GIVEN: Two callers simulating the same period
	// WHEN: One adjusts sales
	// THEN: The other's deltas are untouched

	sims := finance.NewSimulations()
	alice := finance.SimulationKey{Session: "a", PharmacyID: 1, PeriodID: 1}
	bob := finance.SimulationKey{Session: "b", PharmacyID: 1, PeriodID: 1}
	sims.Start(alice, scenarioBaseline())
	sims.Start(bob, scenarioBaseline())

	_, err := sims.Adjust(alice, finance.LeverSales, dec("0.10"))
	require.NoError(t, err)

	a, err := sims.Get(alice)
	require.NoError(t, err)
	b, err := sims.Get(bob)
	require.NoError(t, err)
	assertDec(t, "0.10", a.Deltas.Sales)
	assert.True(t, b.Deltas.IsZero())
	assert.Equal(t, 2, sims.Len())
}

func TestSimulations_ResetAndEnd(t *testing.T) {
	sims := finance.NewSimulations()
	key := finance.SimulationKey{Session: "s", PharmacyID: 1, PeriodID: 7}
	sims.Start(key, scenarioBaseline())

	_, err := sims.Adjust(key, finance.LeverVar, dec("-0.05"))
	require.NoError(t, err)

	sim, err := sims.Reset(key)
	require.NoError(t, err)
	assert.True(t, sim.Deltas.IsZero())
	assertDec(t, "10000000", sim.Result().KPIs.SalesTotal)

	assert.True(t, sims.End(key))
	assert.False(t, sims.End(key))

	_, err = sims.Get(key)
	assert.True(t, finance.IsNotFound(err))
	_, err = sims.Adjust(key, finance.LeverVar, dec("0.05"))
	assert.True(t, finance.IsNotFound(err))
}

func TestSimulations_ConcurrentAdjust(t *testing.T) {
	// GIVEN: One session
	// WHEN: Twenty goroutines each add +5% to sales
	// THEN: The delta ends clamped at +30% with no lost update panics

	sims := finance.NewSimulations()
	key := finance.SimulationKey{Session: "s", PharmacyID: 1, PeriodID: 1}
	sims.Start(key, scenarioBaseline())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = sims.Adjust(key, finance.LeverSales, dec("0.05"))
		}()
	}
	wg.Wait()

	sim, err := sims.Get(key)
	require.NoError(t, err)
	assertDec(t, "0.30", sim.Deltas.Sales)
}

func TestSimulations_Clear(t *testing.T) {
	sims := finance.NewSimulations()
	sims.Start(finance.SimulationKey{Session: "a", PeriodID: 1}, scenarioBaseline())
	sims.Start(finance.SimulationKey{Session: "b", PeriodID: 2}, scenarioBaseline())

	sims.Clear()

	assert.Equal(t, 0, sims.Len())
	_, err := sims.Get(finance.SimulationKey{Session: "a", PeriodID: 1})
	assert.True(t, finance.IsNotFound(err))
}
