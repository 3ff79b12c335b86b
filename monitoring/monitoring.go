// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package monitoring exposes evaluation activity of the API server
// as Prometheus metrics.
package monitoring

import (
	"time"

	"github.com/icueval/icueval/bootstrap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "icueval"

type Metrics struct {
	RunsTotal           prometheus.Counter
	RunFailures         prometheus.Counter
	BootstrapIterations prometheus.Counter
	RunDuration         prometheus.Histogram

	// DegenerateSamples counts bootstrap samples for which a metric
	// could not be calculated, labeled by metric
	DegenerateSamples *prometheus.CounterVec

	// PointEstimate, LowerBound and UpperBound hold values from
	// the latest run, labeled by classifier and metric
	PointEstimate *prometheus.GaugeVec
	LowerBound    *prometheus.GaugeVec
	UpperBound    *prometheus.GaugeVec
}

// New creates and registers all the metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	resultLabels := []string{"classifier", "metric"}
	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of evaluation runs",
		}),
		RunFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Total number of failed evaluation runs",
		}),
		BootstrapIterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bootstrap_iterations_total",
			Help:      "Total number of processed bootstrap iterations",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of evaluation runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		DegenerateSamples: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degenerate_samples_total",
			Help:      "Total number of bootstrap samples with undefined metric value",
		}, []string{"metric"}),
		PointEstimate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "point_estimate",
			Help:      "Metric value on the full test set in the latest run",
		}, resultLabels),
		LowerBound: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ci_lower",
			Help:      "Lower confidence interval bound in the latest run",
		}, resultLabels),
		UpperBound: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ci_upper",
			Help:      "Upper confidence interval bound in the latest run",
		}, resultLabels),
	}
}

// ObserveClassifier records summary of a single evaluated classifier
func (m *Metrics) ObserveClassifier(classifier string, summary []bootstrap.SummaryRecord) {
	for _, sr := range summary {
		m.PointEstimate.WithLabelValues(classifier, sr.Metric.String()).Set(sr.Point)
		m.LowerBound.WithLabelValues(classifier, sr.Metric.String()).Set(sr.Lower)
		m.UpperBound.WithLabelValues(classifier, sr.Metric.String()).Set(sr.Upper)
		if sr.NumDegenerate > 0 {
			m.DegenerateSamples.WithLabelValues(sr.Metric.String()).Add(float64(sr.NumDegenerate))
		}
	}
}

// ObserveRun records a finished run along with its duration
func (m *Metrics) ObserveRun(dur time.Duration, err error) {
	m.RunsTotal.Inc()
	if err != nil {
		m.RunFailures.Inc()
	}
	m.RunDuration.Observe(dur.Seconds())
}
