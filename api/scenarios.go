/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the database with realistic
  data for demos. Each scenario creates a pharmacy, monthly periods in the
  secondary calendar, metrics and daily logs.

AVAILABLE SCENARIOS:
  steady-month:    Two months of healthy margins; the earlier month closed
  thin-margin:     Variable costs close to sales; breakeven out of reach
  daily-entries:   A month recomputed from the last week of daily logs
  empty-pharmacy:  A pharmacy with no periods

HOW SCENARIOS WORK:
  1. Reset database (clear all data) and simulator sessions
  2. Create pharmacy
  3. Get-or-create month periods
  4. Recompute metrics or write daily logs
  5. Optionally close periods

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "steady-month"}

NOTE:
  Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and error mapping
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/pharmacy-ledger/calendar"
	"github.com/warp/pharmacy-ledger/finance"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "steady-month",
		Name:        "Steady Month",
		Description: "Two consecutive months with healthy margins; the earlier month is closed",
	},
	{
		ID:          "thin-margin",
		Name:        "Thin Margin",
		Description: "Variable costs almost equal to sales; shows a negative net and zero breakeven",
	},
	{
		ID:          "daily-entries",
		Name:        "Daily Entries",
		Description: "Metrics recomputed from a week of daily logs",
	},
	{
		ID:          "empty-pharmacy",
		Name:        "Empty Pharmacy",
		Description: "A new pharmacy with no periods yet",
	},
}

var scenarioLoaders = map[string]func(h *Handler, ctx context.Context) error{
	"steady-month":   (*Handler).loadSteadyMonthScenario,
	"thin-margin":    (*Handler).loadThinMarginScenario,
	"daily-entries":  (*Handler).loadDailyEntriesScenario,
	"empty-pharmacy": (*Handler).loadEmptyPharmacyScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(h, ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.reqLog(r).Infow("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Engine.Reset(ctx); err != nil {
		return err
	}
	h.Simulations.Clear()
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// currentMonth is the secondary month containing the engine's today.
func (h *Handler) currentMonth() (calendar.Month, error) {
	return calendar.MonthOf(h.cal(), h.Engine.Today())
}

func (h *Handler) loadSteadyMonthScenario(ctx context.Context) error {
	ph, err := h.Engine.CreatePharmacy(ctx, "Demo Pharmacy")
	if err != nil {
		return err
	}
	cur, err := h.currentMonth()
	if err != nil {
		return err
	}
	py, pm := calendar.PrevMonth(cur.Year, cur.Month)

	months := []struct {
		year, month int
		raw         finance.RawInputs
		close       bool
	}{
		{py, pm, rawInputs("5.5m", "3.5m", "2.9m", "2m", "1m", "450k", 470), true},
		{cur.Year, cur.Month, rawInputs("6m", "4m", "3m", "2m", "1m", "500k", 500), false},
	}
	for _, m := range months {
		p, _, err := h.Engine.GetOrCreateMonthPeriod(ctx, ph.ID, m.year, m.month)
		if err != nil {
			return err
		}
		m.raw.DaysCount = p.Days()
		if _, err := h.Engine.RecomputeCash(ctx, ph.ID, p.ID, m.raw); err != nil {
			return err
		}
		if m.close {
			if _, err := h.Engine.SetStatus(ctx, p.ID, finance.StatusClosed); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadThinMarginScenario(ctx context.Context) error {
	ph, err := h.Engine.CreatePharmacy(ctx, "Corner Pharmacy")
	if err != nil {
		return err
	}
	cur, err := h.currentMonth()
	if err != nil {
		return err
	}
	p, _, err := h.Engine.GetOrCreateMonthPeriod(ctx, ph.ID, cur.Year, cur.Month)
	if err != nil {
		return err
	}
	raw := rawInputs("2.4m", "600k", "3.1m", "1.5m", "800k", "200k", 260)
	raw.DaysCount = p.Days()
	_, err = h.Engine.RecomputeCash(ctx, ph.ID, p.ID, raw)
	return err
}

func (h *Handler) loadDailyEntriesScenario(ctx context.Context) error {
	ph, err := h.Engine.CreatePharmacy(ctx, "Night Pharmacy")
	if err != nil {
		return err
	}
	cur, err := h.currentMonth()
	if err != nil {
		return err
	}
	p, _, err := h.Engine.GetOrCreateMonthPeriod(ctx, ph.ID, cur.Year, cur.Month)
	if err != nil {
		return err
	}

	end := calendar.MinDate(h.Engine.Today(), p.End)
	for i := 0; i < finance.WindowLength; i++ {
		day := end.AddDays(-i)
		if day.Before(p.Start) {
			break
		}
		log := finance.DailyLog{
			PharmacyID:   ph.ID,
			Date:         day,
			SalesCash:    mustAmount(fmt.Sprintf("%dk", 180+10*i)),
			SalesIns:     mustAmount(fmt.Sprintf("%dk", 90+5*i)),
			VarPurchases: mustAmount(fmt.Sprintf("%dk", 80+3*i)),
			OpexOther:    mustAmount("15k"),
			Visits:       14 + i,
		}
		if i == 3 {
			log.Note = "register closed early"
		}
		if _, err := h.Engine.UpsertDailyLog(ctx, log); err != nil {
			return err
		}
	}

	_, err = h.Engine.RecomputeFromDailyLogs(ctx, ph.ID, p.ID, finance.FixedCosts{
		FixedRent:  mustAmount("1.2m"),
		FixedStaff: mustAmount("900k"),
	})
	return err
}

func (h *Handler) loadEmptyPharmacyScenario(ctx context.Context) error {
	_, err := h.Engine.CreatePharmacy(ctx, "New Pharmacy")
	return err
}

func rawInputs(cash, ins, variable, rent, staff, opex string, visits int) finance.RawInputs {
	return finance.RawInputs{
		SalesCash:      mustAmount(cash),
		SalesIns:       mustAmount(ins),
		VarTotal:       mustAmount(variable),
		FixedRent:      mustAmount(rent),
		FixedStaff:     mustAmount(staff),
		OpexOtherTotal: mustAmount(opex),
		VisitsTotal:    visits,
	}
}

func mustAmount(s string) decimal.Decimal {
	v, err := finance.ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return v
}
