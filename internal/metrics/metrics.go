package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemshare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itemshare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemshare_booking_transitions_total",
			Help: "Bookings entering each status, creation included",
		},
		[]string{"status"},
	)

	BookingOverlapRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemshare_booking_overlap_rejections_total",
			Help: "Booking requests refused because the period was taken",
		},
		[]string{"source"},
	)

	BookingsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemshare_bookings_deleted_total",
			Help: "Total number of hard-deleted bookings",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemshare_events_published_total",
			Help: "Booking events handed to the broker",
		},
		[]string{"type", "result"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBookingTransition(status string) {
	BookingTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordOverlapRejection counts a refused booking. source is "validator"
// when the in-process check caught it and "store" when the database did.
func RecordOverlapRejection(source string) {
	BookingOverlapRejectionsTotal.WithLabelValues(source).Inc()
}

func RecordBookingsDeleted(n int) {
	BookingsDeletedTotal.Add(float64(n))
}

func RecordEventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}
