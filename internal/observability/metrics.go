package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ride_backend", Name: "searches_started_total",
		Help: "Driver searches started",
	})
	SearchesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ride_backend", Name: "searches_resolved_total",
		Help: "Driver searches resolved, by outcome",
	}, []string{"outcome"})
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ride_backend", Name: "search_duration_seconds",
		Help:    "Time from search start to resolution",
		Buckets: []float64{1, 5, 15, 30, 60, 90, 120, 180},
	})
	ActiveSearches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ride_backend", Name: "active_searches",
		Help: "Searches currently holding a response open",
	})

	ReservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ride_backend", Name: "reservations_total",
		Help: "Successful driver reservations",
	})
	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ride_backend", Name: "reservation_conflicts_total",
		Help: "Reservation attempts lost to a concurrent claimant",
	})
	LeaseExpirations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ride_backend", Name: "lease_expirations_total",
		Help: "Reservations reverted by lease expiry",
	})

	TripTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ride_backend", Name: "trip_transitions_total",
		Help: "Trip status transitions, by target status",
	}, []string{"to"})

	LocationUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ride_backend", Name: "location_updates_total",
		Help: "Driver location reports recorded against active trips",
	})
)

// RegisterWSConnections exposes the websocket hub's live connection count
// as a gauge; called once at startup with a sampler closure.
func RegisterWSConnections(sample func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ride_backend", Name: "ws_connections",
		Help: "Active websocket connections",
	}, sample)
}
