package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/v1/bookings", "201", 0.02)
	RecordHTTPRequest("POST", "/v1/bookings", "201", 0.03)
	RecordHTTPRequest("POST", "/v1/bookings", "409", 0.01)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/v1/bookings", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/v1/bookings", "409")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordBookingTransition(t *testing.T) {
	BookingTransitionsTotal.Reset()

	RecordBookingTransition("WAITING")
	RecordBookingTransition("APPROVED")
	RecordBookingTransition("WAITING")

	assert.Equal(t, float64(2), testutil.ToFloat64(BookingTransitionsTotal.WithLabelValues("WAITING")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingTransitionsTotal.WithLabelValues("APPROVED")))
}

func TestRecordOverlapRejection(t *testing.T) {
	BookingOverlapRejectionsTotal.Reset()

	RecordOverlapRejection("validator")

	assert.Equal(t, float64(1), testutil.ToFloat64(BookingOverlapRejectionsTotal.WithLabelValues("validator")))
	assert.Equal(t, float64(0), testutil.ToFloat64(BookingOverlapRejectionsTotal.WithLabelValues("store")))
}

func TestRecordEventPublished(t *testing.T) {
	EventsPublishedTotal.Reset()

	RecordEventPublished("booking.created", nil)
	RecordEventPublished("booking.created", errors.New("broker down"))

	assert.Equal(t, float64(1), testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("booking.created", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("booking.created", "error")))
}
