// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package loader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives an observation for every Namespace call, and the
// registry size after every successful mutation.
type Metrics interface {
	Call(m Method, d time.Duration, err error)
	Topology(groups, processes int)
}

type noopMetrics struct{}

func (noopMetrics) Call(Method, time.Duration, error) {}
func (noopMetrics) Topology(int, int)                 {}

// PrometheusMetrics implements Metrics on a private Prometheus registry.
type PrometheusMetrics struct {
	calls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	groups    prometheus.Gauge
	processes prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates the collectors under namespace, which
// defaults to "loader".
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = "loader"
	}
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
	}
	pm.calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of calls, by method and fault kind",
		},
		[]string{"method", "fault"},
	)
	pm.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Time spent serving calls, including waiting for the registry lock",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	pm.groups = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups",
			Help:      "Number of live process groups",
		},
	)
	pm.processes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes",
			Help:      "Number of process instances across all groups",
		},
	)
	pm.registry.MustRegister(pm.calls, pm.duration, pm.groups, pm.processes)
	return pm
}

func (pm *PrometheusMetrics) Call(m Method, d time.Duration, err error) {
	kind := "none"
	if err != nil {
		kind = AsFault(err).Kind()
	}
	pm.calls.WithLabelValues(m.String(), kind).Inc()
	pm.duration.WithLabelValues(m.String()).Observe(d.Seconds())
}

func (pm *PrometheusMetrics) Topology(groups, processes int) {
	pm.groups.Set(float64(groups))
	pm.processes.Set(float64(processes))
}

// Registry returns the registry, for use with promhttp.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

var _ Metrics = (*PrometheusMetrics)(nil)
