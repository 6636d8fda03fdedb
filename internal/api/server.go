package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"wuauser/internal/service"
)

// HTTPServer serves the scheduling API consumed by the mobile apps.
type HTTPServer struct {
	server  *http.Server
	sched   *service.Scheduler
	log     *zerolog.Logger
	limiter *rate.Limiter
}

// NewHTTPServer builds the API server on the given port.
func NewHTTPServer(port int, sched *service.Scheduler, rps float64, burst int, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		sched:   sched,
		log:     logger,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/slots/free", s.handleFreeSlots)
	mux.HandleFunc("/api/bookings", s.handleBookings)
	mux.HandleFunc("/api/bookings/", s.handleCancelBooking)
	mux.HandleFunc("/api/reports/day", s.handleDayReport)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.withRateLimit(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until ctx is canceled.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseDateParam(r *http.Request) (time.Time, error) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format; expected YYYY-MM-DD")
	}
	return date, nil
}

func parseDurationParam(r *http.Request) (int, error) {
	durStr := r.URL.Query().Get("duration")
	if durStr == "" {
		return DefaultDurationMinutes, nil
	}
	duration, err := strconv.Atoi(durStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration; expected minutes as integer")
	}
	if duration <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return duration, nil
}
