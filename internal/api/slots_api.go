package api

import (
	"net/http"

	"wuauser/internal/metrics"
)

// DefaultDurationMinutes is used when the duration query parameter is absent.
const DefaultDurationMinutes = 30

// handleSlots evaluates the whole slot grid for a date and candidate duration.
// GET /api/slots?date=YYYY-MM-DD&duration=30
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, err := parseDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	duration, err := parseDurationParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	day, err := s.sched.DayAvailability(r.Context(), date, duration)
	if err != nil {
		s.log.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("failed to evaluate slots")
		writeError(w, http.StatusInternalServerError, "failed to evaluate slots")
		return
	}

	writeJSON(w, http.StatusOK, day)
}

// handleFreeSlots is the quick-picker endpoint: grid times minus exact
// start-time matches, without overlap or closing-time reasoning.
// GET /api/slots/free?date=YYYY-MM-DD
func (s *HTTPServer) handleFreeSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots_free")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, err := parseDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	free, err := s.sched.FreeSlots(r.Context(), date)
	if err != nil {
		s.log.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("failed to list free slots")
		writeError(w, http.StatusInternalServerError, "failed to list free slots")
		return
	}

	if free == nil {
		free = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format("2006-01-02"),
		"slots": free,
	})
}
