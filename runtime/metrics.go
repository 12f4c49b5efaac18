package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lottery_bank"

type metrics struct {
	transactions   *prometheus.CounterVec
	instructions   *prometheus.CounterVec
	purged         prometheus.Counter
	airdropped     prometheus.Counter
	processingTime prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transactions_total",
			Help:      "Transactions handled, by outcome (ok, failed, rejected).",
		}, []string{"status"}),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "instructions_total",
			Help:      "Top-level and invoked instructions executed, by program.",
		}, []string{"program"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "accounts_purged_total",
			Help:      "Accounts deleted at commit because their balance reached zero.",
		}),
		airdropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "airdrop_lamports_total",
			Help:      "Lamports minted by airdrops.",
		}),
		processingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "transaction_duration_seconds",
			Help:      "Time spent executing and committing a transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.transactions, m.instructions, m.purged, m.airdropped, m.processingTime)
	}
	return m
}
