package rxbuffer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 终止原因，用作terminations指标的cause标签
const (
	causeSourceComplete   = "source_complete"
	causeSourceError      = "source_error"
	causeNotifierComplete = "notifier_complete"
	causeNotifierError    = "notifier_error"
	causeCancel           = "cancel"
)

type metrics struct {
	itemsBuffered       prometheus.Counter
	itemsEmitted        prometheus.Counter
	itemsDiscarded      prometheus.Counter
	batchesEmitted      prometheus.Counter
	terminations        *prometheus.CounterVec
	activeSubscriptions prometheus.Gauge
	batchSize           prometheus.Histogram
}

func newMetrics(registerer prometheus.Registerer, namespace, subsystem string) *metrics {
	if registerer != nil {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"component": "rxbuffer"},
			registerer,
		)
	}

	m := metrics{
		itemsBuffered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_buffered",
			Help:      "Number of source items appended to a pending batch",
		}),
		itemsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_emitted",
			Help:      "Number of source items delivered downstream inside a batch",
		}),
		itemsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "items_discarded",
			Help:      "Number of pending items dropped on termination",
		}),
		batchesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batches_emitted",
			Help:      "Number of batches delivered downstream",
		}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "terminations",
			Help:      "Number of terminated buffer subscriptions",
		}, []string{"cause"}),
		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_subscriptions",
			Help:      "Number of buffer subscriptions not yet terminated",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "batch_size",
			Help:      "Size of emitted batches",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.itemsBuffered,
			m.itemsEmitted,
			m.itemsDiscarded,
			m.batchesEmitted,
			m.terminations,
			m.activeSubscriptions,
			m.batchSize,
		)
	}

	return &m
}
