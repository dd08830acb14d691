package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK       = "ok"
	ResultConflict = "conflict"
	ResultBlackout = "blackout"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// Metrics is safe to use as a nil pointer; every method becomes a no-op.
type Metrics struct {
	bookings  *prometheus.CounterVec
	purged    prometheus.Counter
	listeners prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "booking_operations_total",
			Help:      "Booking engine operations by kind and outcome.",
		}, []string{"op", "result"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scheduler",
			Name:      "reservations_purged_total",
			Help:      "Reservation rows removed by the retention purge.",
		}),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scheduler",
			Name:      "stream_listeners",
			Help:      "Connected change-stream viewers (SSE and WebSocket).",
		}),
	}
	reg.MustRegister(m.bookings, m.purged, m.listeners)
	return m
}

func (m *Metrics) ObserveBooking(op, result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(op, result).Inc()
}

func (m *Metrics) AddPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}

func (m *Metrics) ListenerConnected() {
	if m == nil {
		return
	}
	m.listeners.Inc()
}

func (m *Metrics) ListenerDisconnected() {
	if m == nil {
		return
	}
	m.listeners.Dec()
}
