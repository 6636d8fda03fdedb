package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wuauser/internal/service"
	"wuauser/internal/slots"
	"wuauser/internal/store"
)

// testDate is far enough ahead that advance-window rules never interfere.
const testDate = "2099-06-01"

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zerolog.New(io.Discard)
	sched := service.NewScheduler(st, slots.Default(), nil, service.Rules{}, &logger)
	return NewHTTPServer(0, sched, 1000, 1000, &logger)
}

func doRequest(t *testing.T, srv *HTTPServer, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	return w
}

func createBooking(t *testing.T, srv *HTTPServer, startTime string, duration int) CreateBookingResponse {
	t.Helper()

	w := doRequest(t, srv, http.MethodPost, "/api/bookings", CreateBookingRequest{
		Date:            testDate,
		StartTime:       startTime,
		DurationMinutes: duration,
		PetName:         "Max",
		ClientName:      "Ana Torres",
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var resp CreateBookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Reference)
	return resp
}

func TestHandleSlots_Validation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"missing date", "/api/slots", http.StatusBadRequest, "date is required"},
		{"bad date", "/api/slots?date=01-06-2099", http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD"},
		{"bad duration", "/api/slots?date=" + testDate + "&duration=abc", http.StatusBadRequest, "invalid duration; expected minutes as integer"},
		{"negative duration", "/api/slots?date=" + testDate + "&duration=-30", http.StatusBadRequest, "duration must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp["error"])
		})
	}
}

func TestHandleSlots_EmptyDay(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/slots?date="+testDate, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var day service.DayAvailability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &day))

	assert.Equal(t, testDate, day.Date)
	assert.Len(t, day.Slots, 16)
	assert.Equal(t, "08:00", day.Suggestions.NextAvailable)
	assert.Equal(t, 8, day.Suggestions.MorningCount)
	assert.Equal(t, 8, day.Suggestions.AfternoonCount)
}

func TestBookingFlow(t *testing.T) {
	srv := newTestServer(t)

	// Book one hour at 09:00
	resp := createBooking(t, srv, "09:00", 60)

	// The grid reflects the booking: 09:00 occupied, 09:30 overlapped
	w := doRequest(t, srv, http.MethodGet, "/api/slots?date="+testDate, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var day service.DayAvailability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &day))

	byTime := map[string]slots.Evaluation{}
	for _, ev := range day.Slots {
		byTime[ev.Time] = ev
	}
	assert.Equal(t, slots.ReasonOccupied, byTime["09:00"].Reason)
	assert.Contains(t, byTime["09:00"].Detail, "Max")
	assert.Equal(t, slots.ReasonOverlap, byTime["09:30"].Reason)
	assert.True(t, byTime["10:00"].Available)

	// Double-booking the same slot is a conflict
	w = doRequest(t, srv, http.MethodPost, "/api/bookings", CreateBookingRequest{
		Date:      testDate,
		StartTime: "09:00",
		PetName:   "Luna",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// So is booking the covered half hour
	w = doRequest(t, srv, http.MethodPost, "/api/bookings", CreateBookingRequest{
		Date:      testDate,
		StartTime: "09:30",
		PetName:   "Luna",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// An adjacent slot still works
	w = doRequest(t, srv, http.MethodPost, "/api/bookings", CreateBookingRequest{
		Date:      testDate,
		StartTime: "10:00",
		PetName:   "Luna",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Cancel the first booking and the slot frees up
	w = doRequest(t, srv, http.MethodDelete, "/api/bookings/"+resp.Reference, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, srv, http.MethodGet, "/api/slots?date="+testDate, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &day))
	for _, ev := range day.Slots {
		if ev.Time == "09:00" {
			assert.True(t, ev.Available, "09:00 should free up after cancel")
		}
	}
}

func TestHandleCreateBooking_Validation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"missing fields", CreateBookingRequest{PetName: "Max"}, http.StatusBadRequest},
		{"missing pet name", CreateBookingRequest{Date: testDate, StartTime: "09:00"}, http.StatusBadRequest},
		{"bad start time", CreateBookingRequest{Date: testDate, StartTime: "9am", PetName: "Max"}, http.StatusBadRequest},
		{"off-grid start time", CreateBookingRequest{Date: testDate, StartTime: "09:15", PetName: "Max"}, http.StatusBadRequest},
		{"past closing", CreateBookingRequest{Date: testDate, StartTime: "17:30", DurationMinutes: 60, PetName: "Max"}, http.StatusConflict},
		{"past date", CreateBookingRequest{Date: "2020-01-01", StartTime: "09:00", PetName: "Max"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, srv, http.MethodPost, "/api/bookings", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, "body: %s", w.Body.String())
		})
	}

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader([]byte("not json")))
		w := httptest.NewRecorder()
		srv.server.Handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleFreeSlots_QuickPickerDivergence(t *testing.T) {
	srv := newTestServer(t)

	createBooking(t, srv, "09:00", 60)

	w := doRequest(t, srv, http.MethodGet, "/api/slots/free?date="+testDate, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// The quick picker only drops the exact start time; 09:30 stays listed
	// even though the hour-long booking covers it.
	assert.Len(t, resp.Slots, 15)
	assert.NotContains(t, resp.Slots, "09:00")
	assert.Contains(t, resp.Slots, "09:30")
}

func TestHandleListBookings(t *testing.T) {
	srv := newTestServer(t)

	createBooking(t, srv, "09:00", 30)
	createBooking(t, srv, "14:00", 30)

	w := doRequest(t, srv, http.MethodGet, "/api/bookings?date="+testDate, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Bookings []struct {
			PetName string `json:"pet_name"`
		} `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Bookings, 2)
}

func TestHandleCancelBooking_NotFound(t *testing.T) {
	srv := newTestServer(t)

	w := doRequest(t, srv, http.MethodDelete, "/api/bookings/missing-ref", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCancelBooking_StoreError(t *testing.T) {
	st, err := store.New(":memory:")
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	sched := service.NewScheduler(st, slots.Default(), nil, service.Rules{}, &logger)
	srv := NewHTTPServer(0, sched, 1000, 1000, &logger)

	// A failing database is an internal error, not a missing booking
	require.NoError(t, st.Close())

	w := doRequest(t, srv, http.MethodDelete, "/api/bookings/ref-1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleDayReport(t *testing.T) {
	srv := newTestServer(t)

	createBooking(t, srv, "09:00", 30)

	w := doRequest(t, srv, http.MethodGet, "/api/reports/day?date="+testDate, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())

	t.Run("honors duration parameter", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodGet, "/api/reports/day?date="+testDate+"&duration=60", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects bad duration", func(t *testing.T) {
		w := doRequest(t, srv, http.MethodGet, "/api/reports/day?date="+testDate+"&duration=-30", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	paths := []string{"/api/slots?date=" + testDate, "/api/slots/free?date=" + testDate, "/api/reports/day?date=" + testDate}
	for _, path := range paths {
		w := doRequest(t, srv, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
	}

	w := doRequest(t, srv, http.MethodPut, "/api/bookings", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRateLimit(t *testing.T) {
	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := zerolog.New(io.Discard)
	sched := service.NewScheduler(st, slots.Default(), nil, service.Rules{}, &logger)
	srv := NewHTTPServer(0, sched, 0.001, 1, &logger)

	first := doRequest(t, srv, http.MethodGet, "/api/slots?date="+testDate, nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, srv, http.MethodGet, "/api/slots?date="+testDate, nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
