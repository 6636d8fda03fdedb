package api

import (
	"fmt"
	"net/http"

	"wuauser/internal/metrics"
	"wuauser/internal/report"
)

// handleDayReport exports a day's slot grid and bookings as an Excel file.
// GET /api/reports/day?date=YYYY-MM-DD&duration=30
func (s *HTTPServer) handleDayReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reports_day")
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
		s.log.Error().Err(err).Msg("failed to evaluate slots for report")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	bookings, err := s.sched.BookingsForDate(r.Context(), date)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list bookings for report")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	sheet := report.NewDaySheet()
	defer sheet.Close()
	if err := sheet.Fill(date, day.Slots, bookings); err != nil {
		s.log.Error().Err(err).Msg("failed to fill report")
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	filename := fmt.Sprintf("schedule_%s.xlsx", date.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := sheet.Save(w); err != nil {
		s.log.Error().Err(err).Msg("failed to write report")
	}
}
