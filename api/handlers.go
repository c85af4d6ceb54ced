/*
handlers.go - HTTP API handlers for the period and metrics engine

PURPOSE:
  Exposes finance.Engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine.

ENDPOINTS:
  Pharmacies:
    GET    /api/pharmacies                                  List pharmacies
    POST   /api/pharmacies                                  Create pharmacy
    GET    /api/pharmacies/{pharmacyID}                     Get pharmacy
    GET    /api/pharmacies/{pharmacyID}/periods             List periods
    POST   /api/pharmacies/{pharmacyID}/periods             Create period

  Months (secondary calendar):
    GET    /api/pharmacies/{pharmacyID}/months/{y}/{m}      Find month period
    POST   /api/pharmacies/{pharmacyID}/months/{y}/{m}      Get or create it
    GET    .../months/{y}/{m}/summary                       Monthly summary
    GET    .../months/{y}/{m}/compare-previous              Compare with previous month

  Daily logs:
    GET    /api/pharmacies/{pharmacyID}/daily-logs?from=&to=
    GET    /api/pharmacies/{pharmacyID}/daily-logs/latest?from=&to=
    GET    /api/pharmacies/{pharmacyID}/daily-logs/{date}
    PUT    /api/pharmacies/{pharmacyID}/daily-logs/{date}   Upsert

  Periods:
    GET    /api/periods/{periodID}
    PUT    /api/periods/{periodID}/status
    POST   /api/periods/{periodID}/reopen
    GET    /api/periods/{periodID}/metrics
    PUT    /api/periods/{periodID}/metrics                  Recompute from raw inputs
    POST   /api/periods/{periodID}/metrics/from-daily-logs  Recompute from logs
    GET    /api/periods/{periodID}/weekly                   7-day window
    GET    /api/compare?a=&b=

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (overlap, status transition, closed period)
  - 500: Internal errors

SECURITY NOTE:
  No authentication. Intended for a single trusted operator network.

SEE ALSO:
  - dto.go: Request/response data structures
  - simulation.go, calendar.go: Simulator and calendar endpoints
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/pharmacy-ledger/calendar"
	"github.com/warp/pharmacy-ledger/finance"
	"github.com/warp/pharmacy-ledger/logger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine      *finance.Engine
	Simulations *finance.Simulations

	validate *validator.Validate
	log      *logger.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around the engine.
func NewHandler(engine *finance.Engine, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Engine:      engine,
		Simulations: finance.NewSimulations(),
		validate:    validator.New(),
		log:         log.WithComponent("api"),
	}
}

func (h *Handler) cal() calendar.Converter {
	return h.Engine.Calendar()
}

// reqLog is the request-scoped logger installed by requestLogger, tagged
// with the request id.
func (h *Handler) reqLog(r *http.Request) *logger.Logger {
	return logger.FromContext(r.Context())
}

// Healthz reports whether the store answers.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Ping(r.Context()); err != nil {
		h.reqLog(r).Errorw("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// PHARMACY HANDLERS
// =============================================================================

// ListPharmacies returns all pharmacies.
func (h *Handler) ListPharmacies(w http.ResponseWriter, r *http.Request) {
	pharmacies, err := h.Engine.ListPharmacies(r.Context())
	if err != nil {
		h.writeEngineError(w, r, "Failed to list pharmacies", err)
		return
	}

	dtos := make([]PharmacyDTO, len(pharmacies))
	for i, p := range pharmacies {
		dtos[i] = toPharmacyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePharmacy creates a pharmacy.
func (h *Handler) CreatePharmacy(w http.ResponseWriter, r *http.Request) {
	var req CreatePharmacyRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.Engine.CreatePharmacy(r.Context(), req.Title)
	if err != nil {
		h.writeEngineError(w, r, "Failed to create pharmacy", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPharmacyDTO(p))
}

// GetPharmacy returns a single pharmacy.
func (h *Handler) GetPharmacy(w http.ResponseWriter, r *http.Request) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return
	}
	p, err := h.Engine.GetPharmacy(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, "Pharmacy not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toPharmacyDTO(p))
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns a pharmacy's periods, most recent first.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return
	}
	periods, err := h.Engine.ListPeriods(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p, h.cal())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePeriod creates a period with explicit bounds.
// POST /api/pharmacies/{pharmacyID}/periods
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return
	}
	var req CreatePeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := calendar.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}

	p, err := h.Engine.CreatePeriod(r.Context(), id, req.Title, start, end)
	if err != nil {
		var oe *finance.OverlapError
		if errors.As(err, &oe) {
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:   "Period overlaps an existing period",
				Code:    "overlap",
				Details: map[string]any{"conflicting_period_id": oe.ConflictingPeriodID, "conflicting_range": oe.ConflictingRange.String()},
			})
			return
		}
		h.writeEngineError(w, r, "Failed to create period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(p, h.cal()))
}

// FindMonthPeriod looks up the period of a secondary month without creating it.
// GET /api/pharmacies/{pharmacyID}/months/{year}/{month}
func (h *Handler) FindMonthPeriod(w http.ResponseWriter, r *http.Request) {
	id, year, month, ok := monthParams(w, r)
	if !ok {
		return
	}
	p, err := h.Engine.FindMonthPeriod(r.Context(), id, year, month)
	if err != nil {
		h.writeEngineError(w, r, "Month period not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p, h.cal()))
}

// GetOrCreateMonthPeriod returns the month's period, creating it if absent.
// POST /api/pharmacies/{pharmacyID}/months/{year}/{month}
func (h *Handler) GetOrCreateMonthPeriod(w http.ResponseWriter, r *http.Request) {
	id, year, month, ok := monthParams(w, r)
	if !ok {
		return
	}
	p, created, err := h.Engine.GetOrCreateMonthPeriod(r.Context(), id, year, month)
	if err != nil {
		h.writeEngineError(w, r, "Failed to get or create month period", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, MonthPeriodDTO{Period: toPeriodDTO(p, h.cal()), Created: created})
}

// MonthlySummary returns a month's metrics and its change against the previous month.
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	id, year, month, ok := monthParams(w, r)
	if !ok {
		return
	}
	s, err := h.Engine.MonthlySummary(r.Context(), id, year, month)
	if err != nil {
		h.writeEngineError(w, r, "Failed to build summary", err)
		return
	}

	dto := MonthlySummaryDTO{
		Month:                  toMonthDTO(s.Month),
		Period:                 toPeriodDTO(s.Period, h.cal()),
		Metrics:                toMetricsDTO(s.Metrics),
		GrossProfitChange:      deltaPtr(s.GrossProfitChange, s.GrossProfitChangeState),
		GrossProfitChangeState: string(s.GrossProfitChangeState),
	}
	if s.PreviousPeriod != nil {
		pp := toPeriodDTO(*s.PreviousPeriod, h.cal())
		dto.PreviousPeriod = &pp
	}
	if s.PreviousMetrics != nil {
		pm := toMetricsDTO(*s.PreviousMetrics)
		dto.PreviousMetrics = &pm
	}
	writeJSON(w, http.StatusOK, dto)
}

// CompareWithPreviousMonth compares month m-1 (A) with month m (B).
func (h *Handler) CompareWithPreviousMonth(w http.ResponseWriter, r *http.Request) {
	id, year, month, ok := monthParams(w, r)
	if !ok {
		return
	}
	c, err := h.Engine.CompareWithPreviousMonth(r.Context(), id, year, month)
	if err != nil {
		h.writeEngineError(w, r, "Failed to compare months", err)
		return
	}
	writeJSON(w, http.StatusOK, toComparisonDTO(c))
}

// GetPeriod returns a single period.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p, h.cal()))
}

// SetPeriodStatus moves a period along open -> pending_approval -> closed.
// PUT /api/periods/{periodID}/status
func (h *Handler) SetPeriodStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	var req SetStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.Engine.SetStatus(r.Context(), p.ID, finance.PeriodStatus(req.Status))
	if err != nil {
		h.writeEngineError(w, r, "Failed to change status", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(updated, h.cal()))
}

// ReopenPeriod is the administrative closed -> open transition.
func (h *Handler) ReopenPeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	updated, err := h.Engine.ReopenPeriod(r.Context(), p.ID)
	if err != nil {
		h.writeEngineError(w, r, "Failed to reopen period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(updated, h.cal()))
}

// =============================================================================
// METRICS HANDLERS
// =============================================================================

// GetMetrics returns the cash-basis metrics of a period.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	m, err := h.Engine.GetMetrics(r.Context(), p.PharmacyID, p.ID)
	if err != nil {
		h.writeEngineError(w, r, "Metrics not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsDTO(m))
}

// RecomputeMetrics stores raw inputs and recomputes every KPI.
// PUT /api/periods/{periodID}/metrics
func (h *Handler) RecomputeMetrics(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	var req RecomputeRequest
	if !h.decode(w, r, &req) {
		return
	}

	var raw finance.RawInputs
	fields := amountFields{}
	raw.SalesCash = fields.money("sales_cash", req.SalesCash)
	raw.SalesIns = fields.money("sales_ins", req.SalesIns)
	raw.VarTotal = fields.money("var_total", req.VarTotal)
	raw.FixedRent = fields.money("fixed_rent", req.FixedRent)
	raw.FixedStaff = fields.money("fixed_staff", req.FixedStaff)
	raw.OpexOtherTotal = fields.money("opex_other_total", req.OpexOtherTotal)
	raw.VisitsTotal = fields.count("visits_total", req.VisitsTotal)
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid amounts", fields)
		return
	}
	raw.DaysCount = p.Days()
	if req.DaysCount != nil {
		raw.DaysCount = *req.DaysCount
	}

	m, err := h.Engine.RecomputeCash(r.Context(), p.PharmacyID, p.ID, raw)
	if err != nil {
		h.writeEngineError(w, r, "Failed to recompute metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsDTO(m))
}

// RecomputeFromDailyLogs sums the period's daily logs and recomputes.
// POST /api/periods/{periodID}/metrics/from-daily-logs
func (h *Handler) RecomputeFromDailyLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	var req FromDailyLogsRequest
	if !h.decode(w, r, &req) {
		return
	}

	fields := amountFields{}
	fixed := finance.FixedCosts{
		FixedRent:  fields.money("fixed_rent", req.FixedRent),
		FixedStaff: fields.money("fixed_staff", req.FixedStaff),
	}
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid amounts", fields)
		return
	}

	m, err := h.Engine.RecomputeFromDailyLogs(r.Context(), p.PharmacyID, p.ID, fixed)
	if err != nil {
		h.writeEngineError(w, r, "Failed to recompute metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, toMetricsDTO(m))
}

// WeeklyWindow returns the last seven days of a period.
func (h *Handler) WeeklyWindow(w http.ResponseWriter, r *http.Request) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	report, err := h.Engine.WeeklyWindow(r.Context(), p.PharmacyID, p.ID)
	if err != nil {
		h.writeEngineError(w, r, "Failed to build window", err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowDTO(report))
}

// ComparePeriods compares two periods of the same pharmacy.
// GET /api/compare?a={periodID}&b={periodID}
func (h *Handler) ComparePeriods(w http.ResponseWriter, r *http.Request) {
	a, errA := strconv.ParseInt(r.URL.Query().Get("a"), 10, 64)
	b, errB := strconv.ParseInt(r.URL.Query().Get("b"), 10, 64)
	if errA != nil || errB != nil {
		writeError(w, http.StatusBadRequest, "Query parameters a and b must be period ids", nil)
		return
	}

	ctx := r.Context()
	pa, err := h.Engine.GetPeriod(ctx, finance.PeriodID(a))
	if err != nil {
		h.writeEngineError(w, r, "Period a not found", err)
		return
	}
	pb, err := h.Engine.GetPeriod(ctx, finance.PeriodID(b))
	if err != nil {
		h.writeEngineError(w, r, "Period b not found", err)
		return
	}
	if pa.PharmacyID != pb.PharmacyID {
		writeError(w, http.StatusBadRequest, "Periods belong to different pharmacies", nil)
		return
	}

	c, err := h.Engine.ComparePeriods(ctx, pa.PharmacyID, pa.ID, pb.ID)
	if err != nil {
		h.writeEngineError(w, r, "Failed to compare periods", err)
		return
	}
	writeJSON(w, http.StatusOK, toComparisonDTO(c))
}

// =============================================================================
// DAILY LOG HANDLERS
// =============================================================================

// ListDailyLogs returns logs in [from, to]. Both default to the current
// secondary month.
func (h *Handler) ListDailyLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return
	}

	from, to, err := h.logRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	logs, err := h.Engine.ListDailyLogs(r.Context(), id, from, to)
	if err != nil {
		h.writeEngineError(w, r, "Failed to list daily logs", err)
		return
	}
	dtos := make([]DailyLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = toDailyLogDTO(l, h.cal())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LatestDailyLog returns the most recent log in [from, to]. Both default to
// the current secondary month.
// GET /api/pharmacies/{pharmacyID}/daily-logs/latest?from=&to=
func (h *Handler) LatestDailyLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return
	}
	from, to, err := h.logRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	l, err := h.Engine.LatestDailyLog(r.Context(), id, from, to)
	if err != nil {
		h.writeEngineError(w, r, "No daily log in range", err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyLogDTO(l, h.cal()))
}

// GetDailyLog returns one day's log.
func (h *Handler) GetDailyLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return
	}
	date, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	l, err := h.Engine.GetDailyLog(r.Context(), id, date)
	if err != nil {
		h.writeEngineError(w, r, "Daily log not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyLogDTO(l, h.cal()))
}

// UpsertDailyLog writes one day's log, replacing an earlier one.
// PUT /api/pharmacies/{pharmacyID}/daily-logs/{date}
func (h *Handler) UpsertDailyLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return
	}
	date, err := calendar.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	var req DailyLogRequest
	if !h.decode(w, r, &req) {
		return
	}

	fields := amountFields{}
	log := finance.DailyLog{
		PharmacyID:   id,
		Date:         date,
		SalesCash:    fields.money("sales_cash", req.SalesCash),
		SalesIns:     fields.money("sales_ins", req.SalesIns),
		VarPurchases: fields.money("var_purchases", req.VarPurchases),
		OpexOther:    fields.money("opex_other", req.OpexOther),
		Visits:       fields.count("visits", req.Visits),
		Note:         strings.TrimSpace(req.Note),
	}
	if len(fields) > 0 {
		writeError(w, http.StatusBadRequest, "Invalid amounts", fields)
		return
	}

	saved, err := h.Engine.UpsertDailyLog(r.Context(), log)
	if err != nil {
		h.writeEngineError(w, r, "Failed to save daily log", err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyLogDTO(saved, h.cal()))
}

func (h *Handler) logRange(r *http.Request) (calendar.Date, calendar.Date, error) {
	q := r.URL.Query()
	if q.Get("from") == "" && q.Get("to") == "" {
		m, err := calendar.MonthOf(h.cal(), h.Engine.Today())
		if err != nil {
			return calendar.Date{}, calendar.Date{}, err
		}
		return m.Start, m.End, nil
	}
	from, err := calendar.ParseDate(q.Get("from"))
	if err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	to, err := calendar.ParseDate(q.Get("to"))
	if err != nil {
		return calendar.Date{}, calendar.Date{}, err
	}
	return from, to, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	resp := ErrorResponse{Error: message}
	switch d := details.(type) {
	case nil:
	case error:
		resp.Details = d.Error()
	default:
		resp.Details = d
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine error categories to status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case finance.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case finance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case finance.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.reqLog(r).Errorw("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// decode reads a JSON body and runs struct validation. It writes the 400
// response itself and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeError(w, http.StatusBadRequest, "Validation failed", fields)
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// amountFields collects per-field parse failures of shorthand amounts.
type amountFields map[string]string

func (f amountFields) money(field, raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	v, err := finance.ParseAmount(raw)
	if err != nil {
		f[field] = reason(err)
		return decimal.Zero
	}
	return v
}

func (f amountFields) count(field, raw string) int {
	if strings.TrimSpace(raw) == "" {
		return 0
	}
	v, err := finance.ParseCount(raw)
	if err != nil {
		f[field] = reason(err)
		return 0
	}
	return v
}

func reason(err error) string {
	var ve *finance.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return err.Error()
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", name), nil)
		return 0, false
	}
	return id, true
}

func pharmacyParam(w http.ResponseWriter, r *http.Request) (finance.PharmacyID, bool) {
	id, ok := idParam(w, r, "pharmacyID")
	return finance.PharmacyID(id), ok
}

func monthParams(w http.ResponseWriter, r *http.Request) (finance.PharmacyID, int, int, bool) {
	id, ok := pharmacyParam(w, r)
	if !ok {
		return 0, 0, 0, false
	}
	year, errY := strconv.Atoi(chi.URLParam(r, "year"))
	month, errM := strconv.Atoi(chi.URLParam(r, "month"))
	if errY != nil || errM != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid year or month", nil)
		return 0, 0, 0, false
	}
	return id, year, month, true
}

// periodParam loads the period named in the URL. It writes the error
// response itself.
func (h *Handler) periodParam(w http.ResponseWriter, r *http.Request) (finance.Period, bool) {
	id, ok := idParam(w, r, "periodID")
	if !ok {
		return finance.Period{}, false
	}
	p, err := h.Engine.GetPeriod(r.Context(), finance.PeriodID(id))
	if err != nil {
		h.writeEngineError(w, r, "Period not found", err)
		return finance.Period{}, false
	}
	return p, true
}
