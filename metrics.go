package pgraph

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pgraph"

type metrics struct {
	txns         *prometheus.CounterVec
	openTxns     prometheus.Gauge
	staleSkipped prometheus.Counter
	reindexed    *prometheus.CounterVec
}

// newMetrics creates the graph's collectors and registers them with reg,
// if any.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		txns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transactions_total",
			Help:      "Finished transactions by outcome (commit, rollback, read, failed).",
		}, []string{"outcome"}),
		openTxns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "open_transactions",
			Help:      "Sessions with an open transaction.",
		}),
		staleSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stale_elements_skipped_total",
			Help:      "Deleted elements filtered out of scan and index results.",
		}),
		reindexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reindexed_elements_total",
			Help:      "Elements rewritten while bootstrapping key indexes.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.txns, m.openTxns, m.staleSkipped, m.reindexed)
	}
	return m
}
