package finance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pharmacy-ledger/finance"
)

func metricsOf(periodID finance.PeriodID, raw finance.RawInputs) finance.PeriodMetrics {
	return finance.PeriodMetrics{
		PeriodID:  periodID,
		Basis:     finance.BasisCash,
		RawInputs: raw,
		KPIs:      finance.ComputeKPIs(raw),
	}
}

func TestRelativeDelta(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		delta string
		state finance.DeltaState
	}{
		{"growth", "1000", "1200", "0.2", finance.DeltaDefined},
		{"decline", "1000", "750", "-0.25", finance.DeltaDefined},
		{"negative base uses magnitude", "-1000", "-500", "0.5", finance.DeltaDefined},
		{"zero base", "0", "500", "0", finance.DeltaUndefined},
		{"both zero", "0", "0", "0", finance.DeltaNotApplicable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, state := finance.RelativeDelta(dec(tt.a), dec(tt.b))
			assert.Equal(t, tt.state, state)
			assertDec(t, tt.delta, delta)
		})
	}
}

func TestCompare_RowsInTrackedOrder(t *testing.T) {
	a := metricsOf(1, scenarioInputs())
	b := metricsOf(2, scenarioInputs())

	c := finance.Compare(a, b)

	keys := make([]string, len(c.Rows))
	for i, r := range c.Rows {
		keys[i] = r.Key
	}
	assert.Equal(t, finance.TrackedKeys(), keys)
	assert.Equal(t, finance.PeriodID(1), c.PeriodA)
	assert.Equal(t, finance.PeriodID(2), c.PeriodB)
}

func TestCompare_ZeroBaseIsUndefined(t *testing.T) {
	// GIVEN: Month A had no insurance sales, month B had 500
	// WHEN: Comparing
	// THEN: The row is undefined with zero delta, and growth rows are defined

	rawA := scenarioInputs()
	rawA.SalesIns = dec("0")
	rawB := scenarioInputs()
	rawB.SalesIns = dec("500")

	c := finance.Compare(metricsOf(1, rawA), metricsOf(2, rawB))

	ins, ok := c.Row("sales_ins")
	require.True(t, ok)
	assert.Equal(t, finance.DeltaUndefined, ins.DeltaState)
	assertDec(t, "0", ins.Delta)
	assertDec(t, "500", ins.PointChange)

	visits, ok := c.Row("visits_total")
	require.True(t, ok)
	assert.Equal(t, finance.KindCount, visits.Kind)
	assert.Equal(t, finance.DeltaDefined, visits.DeltaState)
	assertDec(t, "0", visits.Delta)
}

func TestCompare_RatioRowsCarryPointChange(t *testing.T) {
	// GIVEN: cm_ratio 0.7 in A and 0.8 in B
	// WHEN: Comparing
	// THEN: PointChange is 0.1 and Delta is relative

	rawA := scenarioInputs()
	rawB := scenarioInputs()
	rawB.VarTotal = dec("2000000")

	c := finance.Compare(metricsOf(1, rawA), metricsOf(2, rawB))

	cm, ok := c.Row("cm_ratio")
	require.True(t, ok)
	assert.Equal(t, finance.KindRatio, cm.Kind)
	assertDec(t, "0.1", cm.PointChange)
	assertDec(t, "0.1429", cm.Delta.Round(4))

	_, ok = c.Row("no_such_metric")
	assert.False(t, ok)
}
