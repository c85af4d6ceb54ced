package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/pharmacy-ledger/calendar"
)

// Today returns today's date in both calendars.
// GET /api/calendar/today
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	h.writeCalendarDay(w, h.Engine.Today())
}

// ConvertDate converts a Gregorian ISO date.
// GET /api/calendar/convert?date=2024-03-20
func (h *Handler) ConvertDate(w http.ResponseWriter, r *http.Request) {
	d, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	h.writeCalendarDay(w, d)
}

// MonthBounds returns the Gregorian bounds of a secondary month.
// GET /api/calendar/months/{year}/{month}
func (h *Handler) MonthBounds(w http.ResponseWriter, r *http.Request) {
	year, errY := strconv.Atoi(chi.URLParam(r, "year"))
	month, errM := strconv.Atoi(chi.URLParam(r, "month"))
	if errY != nil || errM != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", nil)
		return
	}
	m, err := calendar.MonthBounds(h.cal(), year, month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthDTO(m))
}

func (h *Handler) writeCalendarDay(w http.ResponseWriter, d calendar.Date) {
	s, err := h.cal().ToSecondary(d)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Date cannot be converted", err)
		return
	}
	m, err := calendar.MonthBounds(h.cal(), s.Year, s.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Date cannot be converted", err)
		return
	}
	writeJSON(w, http.StatusOK, CalendarDayDTO{
		Date:      d.String(),
		Secondary: s,
		Display:   s.String() + " (" + calendar.MonthName(s.Month) + ")",
		Month:     toMonthDTO(m),
	})
}
