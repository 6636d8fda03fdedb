package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wuauser",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	slotEvaluations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wuauser",
			Name:      "slot_evaluations_total",
			Help:      "Count of day availability evaluations.",
		},
	)

	slotConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wuauser",
			Name:      "slot_conflicts_total",
			Help:      "Count of conflicted slots seen during evaluation, by reason.",
		},
		[]string{"reason"},
	)

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wuauser",
			Name:      "booking_created_total",
			Help:      "Count of bookings created.",
		},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wuauser",
			Name:      "booking_rejected_total",
			Help:      "Count of booking attempts rejected, by cause.",
		},
		[]string{"cause"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wuauser",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, slotEvaluations, slotConflicts,
			bookingCreated, bookingRejected, bookingCancelled)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncSlotEvaluation() {
	slotEvaluations.Inc()
}

func IncSlotConflict(reason string) {
	slotConflicts.WithLabelValues(reason).Inc()
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingRejected(cause string) {
	bookingRejected.WithLabelValues(cause).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}
