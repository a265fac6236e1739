// Package metrics holds the Prometheus collectors for the directory client,
// the cascade controllers and the screen registry.
//
// All methods are safe on a nil *Set so components can run without metrics
// (tests construct them that way).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Set bundles the collectors and the registry they are registered with.
type Set struct {
	Registry *prometheus.Registry

	directoryRequests *prometheus.CounterVec
	directoryLatency  *prometheus.HistogramVec
	staleDiscards     *prometheus.CounterVec
	liveScreens       *prometheus.GaugeVec
}

// New creates a Set on a private registry, plus the Go runtime and process
// collectors.
func New() *Set {
	s := &Set{
		Registry: prometheus.NewRegistry(),
		directoryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgdirectory",
			Subsystem: "directory",
			Name:      "requests_total",
			Help:      "Directory API requests by operation and outcome",
		}, []string{"op", "outcome"}),
		directoryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orgdirectory",
			Subsystem: "directory",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of directory API requests",
			Buckets:   histogramBuckets,
		}, []string{"op"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgdirectory",
			Subsystem: "cascade",
			Name:      "stale_responses_total",
			Help:      "Fetch completions discarded because their scope was no longer current",
		}, []string{"level"}),
		liveScreens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orgdirectory",
			Subsystem: "screens",
			Name:      "live",
			Help:      "Open screen sessions by kind",
		}, []string{"kind"}),
	}
	s.Registry.MustRegister(
		s.directoryRequests,
		s.directoryLatency,
		s.staleDiscards,
		s.liveScreens,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// ObserveRequest records one directory request.
func (s *Set) ObserveRequest(op, outcome string, d time.Duration) {
	if s == nil {
		return
	}
	s.directoryRequests.With(prometheus.Labels{"op": op, "outcome": outcome}).Inc()
	s.directoryLatency.With(prometheus.Labels{"op": op}).Observe(d.Seconds())
}

// StaleDiscard records a discarded fetch completion for a cascade level.
func (s *Set) StaleDiscard(level string) {
	if s == nil {
		return
	}
	s.staleDiscards.With(prometheus.Labels{"level": level}).Inc()
}

// ScreenOpened increments the live screen gauge.
func (s *Set) ScreenOpened(kind string) {
	if s == nil {
		return
	}
	s.liveScreens.With(prometheus.Labels{"kind": kind}).Inc()
}

// ScreenClosed decrements the live screen gauge.
func (s *Set) ScreenClosed(kind string) {
	if s == nil {
		return
	}
	s.liveScreens.With(prometheus.Labels{"kind": kind}).Dec()
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Set) Handler() http.Handler {
	if s == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}
