// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exports verification and retrieval counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/poiesic/clausematch/core"
	"github.com/poiesic/clausematch/search"
	"github.com/poiesic/clausematch/verify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clausematch"

// Collector owns a private registry. Verification and Retrieval return the
// monitors that feed it.
type Collector struct {
	registry *prometheus.Registry

	runs           prometheus.Counter
	claims         prometheus.Counter
	duplicates     prometheus.Counter
	missing        *prometheus.CounterVec
	runDuration    prometheus.Histogram
	completionRate prometheus.Gauge

	queries   prometheus.Counter
	adaptive  *prometheus.CounterVec
	hitCounts prometheus.Histogram
}

var (
	_ verify.Monitor          = verifyMonitor{}
	_ search.RetrievalMonitor = retrievalMonitor{}
)

// NewCollector creates a collector with its metrics registered.
// Go runtime and process metrics are included when withRuntime is set.
func NewCollector(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "verify", Name: "runs_total",
			Help: "Completed verification runs.",
		}),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "verify", Name: "claims_total",
			Help: "Standard units claimed by a user unit.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "verify", Name: "duplicates_total",
			Help: "Accepted verdicts against an already claimed standard unit.",
		}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "verify", Name: "missing_total",
			Help: "Standard units left unclaimed by the reverse pass.",
		}, []string{"truly_missing"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "verify", Name: "run_duration_seconds",
			Help:    "Wall time of a verification run.",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		completionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "verify", Name: "completion_rate_percent",
			Help: "Completion rate of the most recent run.",
		}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "search", Name: "queries_total",
			Help: "Hybrid searches started.",
		}),
		adaptive: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "search", Name: "adaptive_weighting_total",
			Help: "Searches where one side returned nothing.",
		}, []string{"side"}),
		hitCounts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "results",
			Help:    "Candidates returned per search.",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
	}

	c.registry.MustRegister(
		c.runs, c.claims, c.duplicates, c.missing, c.runDuration, c.completionRate,
		c.queries, c.adaptive, c.hitCounts,
	)
	if withRuntime {
		c.registry.MustRegister(
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
			prometheus.NewGoCollector(),
		)
	}
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Verification returns a monitor for verify.WithMonitor.
func (c *Collector) Verification() verify.Monitor {
	return verifyMonitor{c}
}

// Retrieval returns a monitor for verify.WithRetrievalMonitor or
// search.WithMonitor.
func (c *Collector) Retrieval() search.RetrievalMonitor {
	return retrievalMonitor{c}
}

type verifyMonitor struct {
	*Collector
}

func (m verifyMonitor) Start(_, _ int) {}

func (m verifyMonitor) Claimed(_, _ string, _ float64) {
	m.claims.Inc()
}

func (m verifyMonitor) Duplicate(_, _ string) {
	m.duplicates.Inc()
}

func (m verifyMonitor) Missing(_ string, trulyMissing bool) {
	m.missing.WithLabelValues(strconv.FormatBool(trulyMissing)).Inc()
}

func (m verifyMonitor) Finish(result *core.VerificationResult, elapsed time.Duration) {
	m.runs.Inc()
	m.runDuration.Observe(elapsed.Seconds())
	if result != nil {
		m.completionRate.Set(result.CompletionRate())
	}
}

type retrievalMonitor struct {
	*Collector
}

func (m retrievalMonitor) Start(_ search.Query, _ int) {
	m.queries.Inc()
}

func (m retrievalMonitor) AfterDenseSearch(_ []search.DenseHit)      {}
func (m retrievalMonitor) AfterSparseSearch(_, _ []search.SparseHit) {}

func (m retrievalMonitor) AdaptiveWeighting(denseWeight, _ float64) {
	side := "sparse_only"
	if denseWeight == 1.0 {
		side = "dense_only"
	}
	m.adaptive.WithLabelValues(side).Inc()
}

func (m retrievalMonitor) Finish(results []core.ScoredCandidate) {
	m.hitCounts.Observe(float64(len(results)))
}
