/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricRunsTotal          = "cinevision_analysis_runs_total"
	MetricStageDuration      = "cinevision_analysis_stage_duration_seconds"
	MetricStageFailuresTotal = "cinevision_analysis_stage_failures_total"
	MetricDiagnosticsTotal   = "cinevision_parse_diagnostics_total"
	MetricScenesPerScript    = "cinevision_scenes_per_script"
)

const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
)

// Metrics holds the pipeline collectors. Not registered until Register is called.
type Metrics struct {
	runs        *prometheus.CounterVec
	stageDur    *prometheus.HistogramVec
	stageFails  *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	scenes      prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRunsTotal,
			Help: "Analysis runs by completion status",
		}, []string{"status"}),
		stageDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricStageDuration,
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),
		stageFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricStageFailuresTotal,
			Help: "Stages that panicked or failed, by stage",
		}, []string{"stage"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDiagnosticsTotal,
			Help: "Parse diagnostics by kind",
		}, []string{"kind"}),
		scenes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricScenesPerScript,
			Help:    "Number of scenes found per parsed script",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
		}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.runs, m.stageDur, m.stageFails, m.diagnostics, m.scenes}
}

// The methods below accept a nil receiver so the pipeline can run without metrics.

func (m *Metrics) observeStage(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDur.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (m *Metrics) incStageFailure(stage Stage) {
	if m == nil {
		return
	}
	m.stageFails.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) incDiagnostic(kind string) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeScenes(n int) {
	if m == nil {
		return
	}
	m.scenes.Observe(float64(n))
}

func (m *Metrics) incRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}
