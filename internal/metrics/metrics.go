// Package metrics exposes Prometheus instrumentation for run progress.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors updated during a run.
type Metrics struct {
	// GroupsDispatched counts groups sent to a provider, by mode.
	GroupsDispatched *prometheus.CounterVec

	// FilesProcessed counts files reaching a terminal state, by outcome.
	FilesProcessed *prometheus.CounterVec

	// RetryRounds counts content retry rounds executed.
	RetryRounds prometheus.Counter

	// CallDuration observes provider call latency, by provider.
	CallDuration *prometheus.HistogramVec

	// TokensConsumed counts total tokens reported by providers.
	TokensConsumed prometheus.Counter
}

// New registers the run collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GroupsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docarena",
			Name:      "groups_dispatched_total",
			Help:      "Groups sent to a provider.",
		}, []string{"mode"}),
		FilesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docarena",
			Name:      "files_processed_total",
			Help:      "Files reaching a terminal processing state.",
		}, []string{"outcome"}),
		RetryRounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docarena",
			Name:      "retry_rounds_total",
			Help:      "Content retry rounds executed.",
		}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docarena",
			Name:      "provider_call_duration_seconds",
			Help:      "Provider call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"provider"}),
		TokensConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docarena",
			Name:      "tokens_consumed_total",
			Help:      "Total tokens reported by providers.",
		}),
	}
}

// NewDefault registers the collectors on the default registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// Nop returns metrics backed by a throwaway registry, for tests and
// components that run without instrumentation.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
