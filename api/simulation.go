package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/pharmacy-ledger/finance"
)

// SessionHeader identifies the caller of simulator endpoints. Callers that
// omit it get a fresh id in the response header and must send it back.
const SessionHeader = "X-Session-ID"

func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

func (h *Handler) simulationKey(w http.ResponseWriter, r *http.Request) (finance.SimulationKey, bool) {
	p, ok := h.periodParam(w, r)
	if !ok {
		return finance.SimulationKey{}, false
	}
	return finance.SimulationKey{
		Session:    sessionID(w, r),
		PharmacyID: p.PharmacyID,
		PeriodID:   p.ID,
	}, true
}

// StartSimulation loads the period's stored metrics as baseline and opens
// (or restarts) the caller's session with zero deltas.
// POST /api/periods/{periodID}/simulation
func (h *Handler) StartSimulation(w http.ResponseWriter, r *http.Request) {
	key, ok := h.simulationKey(w, r)
	if !ok {
		return
	}
	baseline, err := h.Engine.Baseline(r.Context(), key.PharmacyID, key.PeriodID)
	if err != nil {
		h.writeEngineError(w, r, "Failed to load baseline", err)
		return
	}
	sim := h.Simulations.Start(key, baseline)
	writeJSON(w, http.StatusOK, toSimulationDTO(sim))
}

// GetSimulation returns the caller's current simulation.
func (h *Handler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	key, ok := h.simulationKey(w, r)
	if !ok {
		return
	}
	sim, err := h.Simulations.Get(key)
	if err != nil {
		h.writeEngineError(w, r, "No simulation for this session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSimulationDTO(sim))
}

// AdjustSimulation moves one lever by a fixed step.
// POST /api/periods/{periodID}/simulation/adjust
func (h *Handler) AdjustSimulation(w http.ResponseWriter, r *http.Request) {
	key, ok := h.simulationKey(w, r)
	if !ok {
		return
	}
	var req AdjustRequest
	if !h.decode(w, r, &req) {
		return
	}
	step, err := decimal.NewFromString(req.Step)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid step", err)
		return
	}

	sim, err := h.Simulations.Adjust(key, finance.Lever(req.Lever), step)
	if err != nil {
		h.writeEngineError(w, r, "Failed to adjust simulation", err)
		return
	}
	writeJSON(w, http.StatusOK, toSimulationDTO(sim))
}

// ResetSimulation zeroes all deltas of the caller's simulation.
func (h *Handler) ResetSimulation(w http.ResponseWriter, r *http.Request) {
	key, ok := h.simulationKey(w, r)
	if !ok {
		return
	}
	sim, err := h.Simulations.Reset(key)
	if err != nil {
		h.writeEngineError(w, r, "No simulation for this session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSimulationDTO(sim))
}

// EndSimulation discards the caller's simulation.
func (h *Handler) EndSimulation(w http.ResponseWriter, r *http.Request) {
	key, ok := h.simulationKey(w, r)
	if !ok {
		return
	}
	if !h.Simulations.End(key) {
		writeError(w, http.StatusNotFound, "No simulation for this session", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
