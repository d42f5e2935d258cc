// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// deviceMetrics are the Prometheus collectors of one Device.
type deviceMetrics struct {
	allocations prometheus.Counter
	failures    *prometheus.CounterVec
	imports     prometheus.Counter
	frees       prometheus.Counter
	locks       prometheus.Counter
	unlocks     prometheus.Counter
	liveBuffers prometheus.Gauge
	liveBytes   prometheus.Gauge
	fenceWait   prometheus.Histogram
}

func newDeviceMetrics(reg prometheus.Registerer) *deviceMetrics {
	f := promauto.With(reg)
	return &deviceMetrics{
		allocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gralloc",
			Name:      "buffers_allocated_total",
			Help:      "Total number of buffers allocated.",
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gralloc",
			Name:      "operation_failures_total",
			Help:      "Total number of failed buffer operations by operation and result.",
		}, []string{"operation", "result"}),
		imports: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gralloc",
			Name:      "buffers_imported_total",
			Help:      "Total number of successful buffer imports.",
		}),
		frees: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gralloc",
			Name:      "references_freed_total",
			Help:      "Total number of buffer references released.",
		}),
		locks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gralloc",
			Name:      "locks_total",
			Help:      "Total number of successful CPU locks.",
		}),
		unlocks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gralloc",
			Name:      "unlocks_total",
			Help:      "Total number of successful CPU unlocks.",
		}),
		liveBuffers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "gralloc",
			Name:      "live_buffers",
			Help:      "Number of buffer identities with at least one reference.",
		}),
		liveBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "gralloc",
			Name:      "live_bytes",
			Help:      "Backing memory held by live buffer identities.",
		}),
		fenceWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gralloc",
			Name:      "lock_fence_wait_seconds",
			Help:      "Time lock spent waiting for the acquire fence.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
}

// fail records a failed operation and passes err through.
func (m *deviceMetrics) fail(op string, err error) error {
	if err != nil {
		m.failures.WithLabelValues(op, ResultOf(err).String()).Inc()
	}
	return err
}
