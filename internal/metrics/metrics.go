// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics wires the synchronization engine's Prometheus instruments,
// following the teacher's global-registry pattern: one process-wide
// registry, constructed once, handed out by reference.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the instruments every core component reports to.
type Registry struct {
	reg *prometheus.Registry

	HTTPDuration   *prometheus.HistogramVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheErrors    prometheus.Counter
	PipelineStep   *prometheus.HistogramVec
	RealtimeActive *prometheus.GaugeVec
	RealtimeEvents *prometheus.CounterVec
}

// New constructs a fresh Registry with its own prometheus.Registry, so
// repeated construction in tests never collides on duplicate collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	r := &Registry{
		reg: reg,
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fastnoteapp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, path and status.",
		}, []string{"method", "path", "status"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fastnoteapp", Subsystem: "cache", Name: "hits_total",
			Help: "Cache hits across all namespaces.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fastnoteapp", Subsystem: "cache", Name: "misses_total",
			Help: "Cache misses across all namespaces.",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fastnoteapp", Subsystem: "cache", Name: "errors_total",
			Help: "Cache transport/serialization errors.",
		}),
		PipelineStep: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fastnoteapp", Subsystem: "pipeline", Name: "step_duration_seconds",
			Help: "Mutation pipeline step latency.",
		}, []string{"step"}),
		RealtimeActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fastnoteapp", Subsystem: "realtime", Name: "active_sessions",
			Help: "Currently active realtime sessions by channel.",
		}, []string{"channel"}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fastnoteapp", Subsystem: "realtime", Name: "events_total",
			Help: "Realtime events fanned out by type.",
		}, []string{"type"}),
	}

	reg.MustRegister(r.HTTPDuration, r.CacheHits, r.CacheMisses, r.CacheErrors,
		r.PipelineStep, r.RealtimeActive, r.RealtimeEvents)
	return r
}

// Handler exposes the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveHTTP records one request's latency.
func (r *Registry) ObserveHTTP(method, path, status string, d time.Duration) {
	r.HTTPDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// ObservePipelineStep records one pipeline step's latency.
func (r *Registry) ObservePipelineStep(step string, d time.Duration) {
	r.PipelineStep.WithLabelValues(step).Observe(d.Seconds())
}
