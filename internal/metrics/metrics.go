// Package metrics defines the business counters and histograms the flow
// engine (C6) records, modeled on honeynil-MerchServiceTochka-main's
// observability package. Unlike that example, this package never wires an
// HTTP scrape endpoint: §1 lists "logging/observability setup" as an
// external collaborator, so only the metric values themselves — data the
// core produces — belong here. Exporting them is a transport concern.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TransactionsTotal counts flow attempts by kind and outcome.
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Total number of ledger flow attempts by kind and result.",
		},
		[]string{"kind", "result"},
	)

	// FlowDuration measures how long a flow's transactional work takes.
	FlowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_flow_duration_seconds",
			Help:    "Duration of a ledger flow's transactional work.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Register adds the collectors to reg. Called once at startup.
func Register(reg *prometheus.Registry) {
	reg.MustRegister(TransactionsTotal, FlowDuration)
}
