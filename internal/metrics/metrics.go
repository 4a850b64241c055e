package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enqueueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_enqueue_total",
		Help: "Queue join attempts by outcome",
	}, []string{"event_id", "status"})

	admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_sessions_started_total",
		Help: "Purchase sessions opened by the scheduler",
	}, []string{"event_id"})

	sessionOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_session_outcomes_total",
		Help: "Terminal session transitions by outcome",
	}, []string{"event_id", "status"})

	ticketsReservedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "admission_tickets_reserved_total",
		Help: "Tickets reserved inside purchase sessions",
	}, []string{"event_id", "ticket_type"})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "admission_queue_depth",
		Help: "Entries currently waiting per event",
	}, []string{"event_id"})

	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "admission_active_sessions",
		Help: "Purchase sessions currently open per event",
	}, []string{"event_id"})

	schedulerTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "admission_scheduler_tick_seconds",
		Help:    "Duration of one scheduler sweep-and-admit pass",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordEnqueue records a queue join attempt
func RecordEnqueue(eventID, status string) {
	enqueueTotal.WithLabelValues(eventID, status).Inc()
}

// RecordAdmission records a session opened by the scheduler
func RecordAdmission(eventID string) {
	admissionsTotal.WithLabelValues(eventID).Inc()
}

// RecordSessionOutcome records a terminal session transition
func RecordSessionOutcome(eventID, status string) {
	sessionOutcomesTotal.WithLabelValues(eventID, status).Inc()
}

// RecordReservation records tickets reserved in a session
func RecordReservation(eventID, ticketType string, quantity int) {
	ticketsReservedTotal.WithLabelValues(eventID, ticketType).Add(float64(quantity))
}

// SetQueueDepth updates the waiting gauge for an event
func SetQueueDepth(eventID string, depth int64) {
	queueDepth.WithLabelValues(eventID).Set(float64(depth))
}

// SetActiveSessions updates the open sessions gauge for an event
func SetActiveSessions(eventID string, count int64) {
	activeSessions.WithLabelValues(eventID).Set(float64(count))
}

// ObserveSchedulerTick records the duration of one scheduler pass
func ObserveSchedulerTick(d time.Duration) {
	schedulerTickDuration.Observe(d.Seconds())
}
