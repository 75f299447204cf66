package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	snapshotsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomie",
		Subsystem: "realtime",
		Name:      "snapshots_applied_total",
		Help:      "Bill-set snapshots applied by wholesale replacement.",
	}, []string{"team_id"})

	subscriptionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomie",
		Subsystem: "realtime",
		Name:      "subscription_errors_total",
		Help:      "Transient store subscription failures.",
	}, []string{"team_id"})

	resubscribes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomie",
		Subsystem: "realtime",
		Name:      "resubscribes_total",
		Help:      "Successful resubscriptions after a subscription failure.",
	}, []string{"team_id"})

	billsCurrent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "roomie",
		Subsystem: "realtime",
		Name:      "bills_current",
		Help:      "Bills in the most recent snapshot for a team.",
	}, []string{"team_id"})
)
