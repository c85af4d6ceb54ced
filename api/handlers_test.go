/*
handlers_test.go - HTTP tests for the API layer

Tests for:
- Pharmacy and period endpoints, including overlap conflicts
- Metrics recompute with shorthand amounts
- Daily logs, comparison and the simulator session header
- Calendar conversion, Prometheus exposition and demo scenarios
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/pharmacy-ledger/api"
	"github.com/warp/pharmacy-ledger/finance"
	"github.com/warp/pharmacy-ledger/finance/store"
	"github.com/warp/pharmacy-ledger/logger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// now is 1403-01-06; the current secondary month is 2024-03-20..2024-04-19.
var now = time.Date(2024, time.March, 25, 10, 0, 0, 0, time.UTC)

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, nil, nil)
}

func newTestServerWith(t *testing.T, log *logger.Logger, origins []string) *testServer {
	engine := finance.NewEngine(store.NewMemory(), finance.WithClock(func() time.Time { return now }))
	h := api.NewHandler(engine, log)
	router := api.NewRouter(h, api.RouterConfig{AllowedOrigins: origins, Registry: prometheus.NewRegistry()})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createPharmacy(title string) api.PharmacyDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/pharmacies", api.CreatePharmacyRequest{Title: title})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[api.PharmacyDTO](s.t, rec)
}

func (s *testServer) monthPeriod(pharmacyID int64, year, month int) api.PeriodDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/pharmacies/%d/months/%d/%d", pharmacyID, year, month), nil)
	require.Contains(s.t, []int{http.StatusOK, http.StatusCreated}, rec.Code, rec.Body.String())
	return decodeBody[api.MonthPeriodDTO](s.t, rec).Period
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

// scenarioRequest is a typical month written the way operators type it.
func scenarioRequest() map[string]any {
	return map[string]any{
		"sales_cash":       "6m",
		"sales_ins":        "4,000,000",
		"var_total":        "3m",
		"fixed_rent":       "2m",
		"fixed_staff":      "1m",
		"opex_other_total": "500k",
		"visits_total":     "500",
		"days_count":       30,
	}
}

// =============================================================================
// PHARMACIES AND PERIODS
// =============================================================================

func TestPharmacies_CreateAndList(t *testing.T) {
	s := newTestServer(t)

	created := s.createPharmacy("Central Pharmacy")
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Central Pharmacy", created.Title)

	rec := s.do(http.MethodGet, "/api/pharmacies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]api.PharmacyDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = s.do(http.MethodGet, "/api/pharmacies/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPharmacies_CreateValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/pharmacies", map[string]string{"title": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.Equal(t, map[string]any{"Title": "required"}, resp.Details)
}

func TestPeriods_OverlapConflict(t *testing.T) {
	// GIVEN: A period for Farvardin 1403
	// WHEN: Creating a period sharing its last day
	// THEN: 409 with code "overlap" naming the conflicting period

	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	path := fmt.Sprintf("/api/pharmacies/%d/periods", ph.ID)

	rec := s.do(http.MethodPost, path, api.CreatePeriodRequest{Title: "Farvardin", StartDate: "2024-03-20", EndDate: "2024-04-19"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[api.PeriodDTO](t, rec)
	assert.Equal(t, 31, first.Days)
	assert.Equal(t, "1403-01-01", first.StartSecondary)
	assert.Equal(t, "open", first.Status)

	rec = s.do(http.MethodPost, path, api.CreatePeriodRequest{StartDate: "2024-04-19", EndDate: "2024-05-01"})
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, "overlap", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, first.ID, details["conflicting_period_id"])

	rec = s.do(http.MethodPost, path, api.CreatePeriodRequest{StartDate: "2024-04-20", EndDate: "2024-05-20"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestPeriods_CreateRejectsBadDates(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	path := fmt.Sprintf("/api/pharmacies/%d/periods", ph.ID)

	rec := s.do(http.MethodPost, path, map[string]string{"start_date": "20/03/2024", "end_date": "2024-04-19"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, path, api.CreatePeriodRequest{StartDate: "2024-04-19", EndDate: "2024-03-20"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonths_GetOrCreateIsIdempotent(t *testing.T) {
	// GIVEN: No period for 1403-01
	// WHEN: Posting the month twice
	// THEN: 201 then 200 with the same period

	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	path := fmt.Sprintf("/api/pharmacies/%d/months/1403/1", ph.ID)

	rec := s.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[api.MonthPeriodDTO](t, rec)
	assert.True(t, first.Created)
	assert.Equal(t, "2024-03-20", first.Period.StartDate)
	assert.Equal(t, "2024-04-19", first.Period.EndDate)

	rec = s.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeBody[api.MonthPeriodDTO](t, rec)
	assert.False(t, second.Created)
	assert.Equal(t, first.Period.ID, second.Period.ID)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/pharmacies/%d/months/1403/13", ph.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics_RecomputeWithShorthandAmounts(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	p := s.monthPeriod(ph.ID, 1403, 1)

	rec := s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/metrics", p.ID), scenarioRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m := decodeBody[api.MetricsDTO](t, rec)

	assert.Equal(t, "cash", m.Basis)
	assertDec(t, "4000000", m.SalesIns)
	assertDec(t, "10000000", m.SalesTotal)
	assertDec(t, "3500000", m.NetProfitOperational)
	assertDec(t, "0.7", m.CMRatio)
	assertDec(t, "20000", m.AvgSalePerVisit)
	assert.Equal(t, 30, m.DaysCount)
	require.NotNil(t, m.ComputedAt)
	assert.Nil(t, m.LockedAt)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/periods/%d/metrics", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assertDec(t, "3500000", decodeBody[api.MetricsDTO](t, rec).NetProfitOperational)
}

func TestMetrics_DaysDefaultToPeriodLength(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	p := s.monthPeriod(ph.ID, 1403, 1)

	rec := s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/metrics", p.ID), map[string]string{"sales_cash": "3.1m"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m := decodeBody[api.MetricsDTO](t, rec)
	assert.Equal(t, 31, m.DaysCount)
	assertDec(t, "100000", m.AvgDailySales)
}

func TestMetrics_InvalidAmountsListed(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	p := s.monthPeriod(ph.ID, 1403, 1)

	body := scenarioRequest()
	body["sales_ins"] = "lots"
	body["var_total"] = "-5k"

	rec := s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/metrics", p.ID), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[api.ErrorResponse](t, rec)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok, rec.Body.String())
	assert.Contains(t, details, "sales_ins")
	assert.NotContains(t, details, "sales_cash")
}

func TestMetrics_ClosedPeriodRejectsRecompute(t *testing.T) {
	// GIVEN: A period with metrics that was closed
	// WHEN: Putting new raw inputs
	// THEN: 409 and the locked metrics are unchanged

	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	p := s.monthPeriod(ph.ID, 1403, 1)
	metricsPath := fmt.Sprintf("/api/periods/%d/metrics", p.ID)

	require.Equal(t, http.StatusOK, s.do(http.MethodPut, metricsPath, scenarioRequest()).Code)

	rec := s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/status", p.ID), api.SetStatusRequest{Status: "closed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "closed", decodeBody[api.PeriodDTO](t, rec).Status)

	rec = s.do(http.MethodPut, metricsPath, map[string]string{"sales_cash": "1m"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, metricsPath, nil)
	m := decodeBody[api.MetricsDTO](t, rec)
	assertDec(t, "10000000", m.SalesTotal)
	assert.NotNil(t, m.LockedAt)

	rec = s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/status", p.ID), api.SetStatusRequest{Status: "open"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/periods/%d/reopen", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "open", decodeBody[api.PeriodDTO](t, rec).Status)
}

func TestMetrics_FromDailyLogsAndWeeklyWindow(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	p := s.monthPeriod(ph.ID, 1403, 1)

	for _, date := range []string{"2024-03-23", "2024-03-25"} {
		rec := s.do(http.MethodPut, fmt.Sprintf("/api/pharmacies/%d/daily-logs/%s", ph.ID, date), api.DailyLogRequest{
			SalesCash:    "200k",
			SalesIns:     "100k",
			VarPurchases: "90k",
			Visits:       "15",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/periods/%d/metrics/from-daily-logs", p.ID), api.FromDailyLogsRequest{FixedRent: "50k"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	m := decodeBody[api.MetricsDTO](t, rec)
	assertDec(t, "600000", m.SalesTotal)
	assertDec(t, "180000", m.VarTotal)
	assert.Equal(t, 30, m.VisitsTotal)
	assert.Equal(t, 31, m.DaysCount)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/periods/%d/weekly", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	w := decodeBody[api.WindowDTO](t, rec)
	assert.Equal(t, "2024-04-13", w.StartDate)
	assert.Equal(t, "2024-04-19", w.EndDate)
	assert.Len(t, w.Days, 7)
	assert.Zero(t, w.DaysWithEntry)
}

// =============================================================================
// DAILY LOGS
// =============================================================================

func TestDailyLogs_UpsertAndGet(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	path := fmt.Sprintf("/api/pharmacies/%d/daily-logs/2024-03-25", ph.ID)

	rec := s.do(http.MethodPut, path, api.DailyLogRequest{SalesCash: "150k", Visits: "12", Note: "first"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, path, api.DailyLogRequest{SalesCash: "180k", Visits: "14", Note: "corrected"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	l := decodeBody[api.DailyLogDTO](t, rec)
	assertDec(t, "180000", l.SalesCash)
	require.NotNil(t, l.Visits)
	assert.Equal(t, 14, *l.Visits)
	assert.Equal(t, "corrected", l.Note)
	assert.Equal(t, "1403-01-06", l.DateSecondary)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/daily-logs", ph.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]api.DailyLogDTO](t, rec), 1)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/daily-logs/2024-03-24", ph.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, path, api.DailyLogRequest{SalesCash: "-1k"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyLogs_Latest(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	for _, date := range []string{"2024-03-21", "2024-03-23"} {
		rec := s.do(http.MethodPut, fmt.Sprintf("/api/pharmacies/%d/daily-logs/%s", ph.ID, date), api.DailyLogRequest{SalesCash: "100k"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/daily-logs/latest", ph.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-03-23", decodeBody[api.DailyLogDTO](t, rec).Date)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/daily-logs/latest?from=2024-03-20&to=2024-03-22", ph.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-03-21", decodeBody[api.DailyLogDTO](t, rec).Date)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/daily-logs/latest?from=2024-03-01&to=2024-03-10", ph.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// COMPARISON
// =============================================================================

func TestCompare_PeriodsOfOnePharmacy(t *testing.T) {
	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	a := s.monthPeriod(ph.ID, 1402, 12)
	b := s.monthPeriod(ph.ID, 1403, 1)

	require.Equal(t, http.StatusOK, s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/metrics", a.ID), map[string]string{"sales_cash": "3m"}).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/metrics", b.ID), map[string]string{"sales_cash": "5m"}).Code)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/compare?a=%d&b=%d", a.ID, b.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := decodeBody[api.ComparisonDTO](t, rec)
	require.NotEmpty(t, c.Rows)

	var found bool
	for _, row := range c.Rows {
		if row.Key == "sales_cash" {
			found = true
			require.NotNil(t, row.Delta)
			assert.Equal(t, "defined", row.DeltaState)
			assertDec(t, "0.6667", decimal.RequireFromString(*row.Delta).Round(4))
		}
		if row.Key == "sales_ins" {
			assert.Nil(t, row.Delta)
		}
	}
	assert.True(t, found)

	other := s.createPharmacy("Other Pharmacy")
	c2 := s.monthPeriod(other.ID, 1403, 1)
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/compare?a=%d&b=%d", a.ID, c2.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SIMULATOR
// =============================================================================

func TestSimulation_SessionHeader(t *testing.T) {
	// GIVEN: A period with stored metrics
	// WHEN: Starting a simulation without a session header, then adjusting with it
	// THEN: The server issues an id, adjustments stay in that session only

	s := newTestServer(t)
	ph := s.createPharmacy("Central Pharmacy")
	p := s.monthPeriod(ph.ID, 1403, 1)
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, fmt.Sprintf("/api/periods/%d/metrics", p.ID), scenarioRequest()).Code)
	simPath := fmt.Sprintf("/api/periods/%d/simulation", p.ID)

	rec := s.do(http.MethodPost, simPath, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := rec.Header().Get(api.SessionHeader)
	require.NotEmpty(t, session)
	sim := decodeBody[api.SimulationDTO](t, rec)
	assertDec(t, "10000000", sim.Baseline.SalesTotal)

	rec = s.do(http.MethodPost, simPath+"/adjust", api.AdjustRequest{Lever: "sales", Step: "0.10"}, api.SessionHeader, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sim = decodeBody[api.SimulationDTO](t, rec)
	assertDec(t, "0.10", sim.Deltas.Sales)
	assertDec(t, "11000000", sim.KPIs.SalesTotal)

	rec = s.do(http.MethodPost, simPath+"/adjust", api.AdjustRequest{Lever: "sales", Step: "0.07"}, api.SessionHeader, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, simPath, nil, api.SessionHeader, "someone-else")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, simPath+"/reset", nil, api.SessionHeader, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assertDec(t, "0", decodeBody[api.SimulationDTO](t, rec).Deltas.Sales)

	rec = s.do(http.MethodDelete, simPath, nil, api.SessionHeader, session)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, simPath, nil, api.SessionHeader, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestCalendar_Convert(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/calendar/convert?date=2024-03-20", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	day := decodeBody[api.CalendarDayDTO](t, rec)
	assert.Equal(t, "1403-01-01 (Farvardin)", day.Display)
	assert.Equal(t, 31, day.Month.Days)

	rec = s.do(http.MethodGet, "/api/calendar/convert?date=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/calendar/today", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-25", decodeBody[api.CalendarDayDTO](t, rec).Date)

	rec = s.do(http.MethodGet, "/api/calendar/months/1402/12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeBody[api.MonthDTO](t, rec)
	assert.Equal(t, "Esfand", m.Name)
	assert.Equal(t, "2024-03-19", m.EndDate)
}

// =============================================================================
// OBSERVABILITY AND SCENARIOS
// =============================================================================

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.createPharmacy("Central Pharmacy")

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "pharmacy_http_requests_total")
	assert.Contains(t, body, `route="/api/pharmacies`)
	assert.Contains(t, body, "pharmacy_simulation_sessions 0")
}

func TestScenarios_LoadAndReset(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody[[]api.ScenarioDTO](t, rec))

	rec = s.do(http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "steady-month"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "steady-month", decodeBody[api.ScenarioDTO](t, rec).ID)

	rec = s.do(http.MethodGet, "/api/pharmacies", nil)
	pharmacies := decodeBody[[]api.PharmacyDTO](t, rec)
	require.Len(t, pharmacies, 1)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/periods", pharmacies[0].ID), nil)
	periods := decodeBody[[]api.PeriodDTO](t, rec)
	require.Len(t, periods, 2)
	assert.Equal(t, "open", periods[0].Status)
	assert.Equal(t, "closed", periods[1].Status)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/months/1403/1/summary", pharmacies[0].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decodeBody[api.MonthlySummaryDTO](t, rec)
	assert.Equal(t, "defined", summary.GrossProfitChangeState)

	rec = s.do(http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/pharmacies", nil)
	assert.Empty(t, decodeBody[[]api.PharmacyDTO](t, rec))
}

func TestScenarios_DailyEntries(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "daily-entries"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	pharmacies := decodeBody[[]api.PharmacyDTO](t, s.do(http.MethodGet, "/api/pharmacies", nil))
	require.Len(t, pharmacies, 1)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/pharmacies/%d/daily-logs?from=2024-03-19&to=2024-03-25", pharmacies[0].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[[]api.DailyLogDTO](t, rec), 6)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok"}, decodeBody[map[string]string](t, rec))
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	// GIVEN: A handler logging to an observed core
	// WHEN: Loading a scenario with an X-Request-Id header
	// THEN: The handler's log line carries that request id

	core, logs := observer.New(zapcore.InfoLevel)
	s := newTestServerWith(t, &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, nil)

	rec := s.do(http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "empty-pharmacy"},
		"X-Request-Id", "req-42")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries := logs.FilterMessage("scenario loaded").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "api", fields["component"])
}

func TestCORS_Credentials(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		origin      string
		credentials string
	}{
		{"default localhost origins", nil, "http://localhost:5173", "true"},
		{"wildcard never shares credentials", []string{"*"}, "https://elsewhere.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServerWith(t, nil, tt.origins)
			rec := s.do(http.MethodGet, "/api/pharmacies", nil, "Origin", tt.origin)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.credentials, rec.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}
