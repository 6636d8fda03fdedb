package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"wuauser/internal/metrics"
	"wuauser/internal/model"
	"wuauser/internal/service"
)

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	Date            string `json:"date"`       // Format: YYYY-MM-DD
	StartTime       string `json:"start_time"` // Format: HH:MM
	DurationMinutes int    `json:"duration_minutes"`
	PetName         string `json:"pet_name"`
	ClientName      string `json:"client_name,omitempty"`
	ClientPhone     string `json:"client_phone,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// CreateBookingResponse is the response for POST /api/bookings.
type CreateBookingResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	BookingID int64  `json:"booking_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleBookings lists or creates bookings.
// GET /api/bookings?date=YYYY-MM-DD
// POST /api/bookings
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBookings(w, r)
	case http.MethodPost:
		s.handleCreateBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_list")

	date, err := parseDateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.sched.BookingsForDate(r.Context(), date)
	if err != nil {
		s.log.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("failed to list bookings")
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":     date.Format("2006-01-02"),
		"bookings": bookings,
	})
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_create")

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CreateBookingResponse{Error: "invalid JSON body"})
		return
	}

	if req.Date == "" || req.StartTime == "" {
		writeJSON(w, http.StatusBadRequest, CreateBookingResponse{Error: "date and start_time are required"})
		return
	}
	if req.PetName == "" {
		writeJSON(w, http.StatusBadRequest, CreateBookingResponse{Error: "pet_name is required"})
		return
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.StartTime, time.Local)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, CreateBookingResponse{Error: "invalid date or start_time; expected YYYY-MM-DD and HH:MM"})
		return
	}

	duration := req.DurationMinutes
	if duration == 0 {
		duration = DefaultDurationMinutes
	}

	booking := &model.Booking{
		PetName:         req.PetName,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		StartTime:       start,
		DurationMinutes: duration,
		Comment:         req.Comment,
	}

	if err := s.sched.CreateBooking(r.Context(), booking); err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, service.ErrSlotUnavailable):
			status = http.StatusConflict
		case errors.Is(err, service.ErrUnknownSlot),
			errors.Is(err, service.ErrTooSoon),
			errors.Is(err, service.ErrTooFar):
			status = http.StatusBadRequest
		default:
			s.log.Error().Err(err).
				Str("date", req.Date).
				Str("start_time", req.StartTime).
				Msg("failed to create booking")
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, CreateBookingResponse{Error: err.Error()})
		return
	}

	s.log.Info().
		Str("reference", booking.Reference).
		Str("pet", booking.PetName).
		Str("date", req.Date).
		Str("start_time", req.StartTime).
		Msg("booking created via API")

	writeJSON(w, http.StatusOK, CreateBookingResponse{
		Success:   true,
		Reference: booking.Reference,
		BookingID: booking.ID,
	})
}

// handleCancelBooking cancels a booking by reference.
// DELETE /api/bookings/{reference}
func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_cancel")
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	const prefix = "/api/bookings/"
	reference := r.URL.Path[len(prefix):]
	if reference == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	if err := s.sched.CancelBooking(r.Context(), reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "booking not found or already canceled")
			return
		}
		s.log.Error().Err(err).Str("reference", reference).Msg("failed to cancel booking")
		writeError(w, http.StatusInternalServerError, "failed to cancel booking")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
