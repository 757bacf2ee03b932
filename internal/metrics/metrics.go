package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dockbook",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created by status.",
		},
		[]string{"status"},
	)

	reservationTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dockbook",
			Name:      "reservation_transition_total",
			Help:      "Count of reservation lifecycle transitions by target status.",
		},
		[]string{"to"},
	)

	conflictsDetected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dockbook",
			Name:      "reservation_conflicts_total",
			Help:      "Count of reservation attempts rejected by the conflict detector.",
		},
	)

	impactAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dockbook",
			Name:      "template_impact_analyses_total",
			Help:      "Count of template impact analyses by outcome.",
		},
		[]string{"outcome"},
	)

	templateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dockbook",
			Name:      "template_changes_total",
			Help:      "Count of template mutations by operation.",
		},
		[]string{"op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dockbook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated,
			reservationTransition,
			conflictsDetected,
			impactAnalyses,
			templateChanges,
			httpRequests,
		)
	})
}

func IncReservationCreated(status string) {
	reservationCreated.WithLabelValues(status).Inc()
}

func IncReservationTransition(to string) {
	reservationTransition.WithLabelValues(to).Inc()
}

func IncConflictDetected() {
	conflictsDetected.Inc()
}

func IncImpactAnalysis(outcome string) {
	impactAnalyses.WithLabelValues(outcome).Inc()
}

func IncTemplateChange(op string) {
	templateChanges.WithLabelValues(op).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
