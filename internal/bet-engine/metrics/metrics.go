package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betsPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bets_placed_total",
			Help: "Total bets created, by side",
		},
		[]string{"side"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_transitions_total",
			Help: "Status transitions applied, by from/to pair",
		},
		[]string{"from", "to"},
	)

	transitionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_transitions_rejected_total",
			Help: "Status transitions rejected by the state machine, by from/to pair",
		},
		[]string{"from", "to"},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bet_settlement_duration_ms",
			Help:    "Settlement transaction duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"outcome"},
	)
)

func RecordBetPlaced(side string) {
	betsPlacedTotal.WithLabelValues(side).Inc()
}

func RecordTransition(from, to string) {
	transitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordTransitionRejected(from, to string) {
	transitionsRejectedTotal.WithLabelValues(from, to).Inc()
}

// RecordSettlement registra a duração de uma liquidação commitada.
// outcome é o status final ("WON" | "LOST").
func RecordSettlement(outcome string, started time.Time) {
	settlementDuration.WithLabelValues(outcome).Observe(float64(time.Since(started).Milliseconds()))
}
