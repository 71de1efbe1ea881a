// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paper_digest"

// Metrics holds the counters recorded during a digest run. Each Metrics has
// its own registry so tests and repeated runs do not collide on the default one.
type Metrics struct {
	Registry *prometheus.Registry

	// PapersFetched counts candidates returned by the paper source.
	PapersFetched prometheus.Counter

	// RankingWindows counts ranking calls, labeled by result (ok, failed).
	RankingWindows *prometheus.CounterVec

	// PapersPromoted counts papers selected for deep analysis.
	PapersPromoted prometheus.Counter

	// FullTextFetches counts fetches, labeled by result (fetched, cached, degraded).
	FullTextFetches *prometheus.CounterVec

	// AnalysisBatches counts stage-2 calls, labeled by result (ok, failed).
	AnalysisBatches *prometheus.CounterVec

	// AnalysisOutcomes counts per-paper outcomes, labeled by kind.
	AnalysisOutcomes *prometheus.CounterVec

	// ParserAnomalies counts duplicate or unknown markers seen by the response parser.
	ParserAnomalies prometheus.Counter

	// ModelCallDuration observes model call latency in seconds, labeled by stage.
	ModelCallDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		PapersFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_fetched_total",
			Help:      "Candidate papers returned by the paper source",
		}),
		RankingWindows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_windows_total",
			Help:      "Stage-1 ranking calls by result",
		}, []string{"result"}),
		PapersPromoted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_promoted_total",
			Help:      "Papers promoted to deep analysis",
		}),
		FullTextFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "full_text_fetches_total",
			Help:      "Full-text retrievals by result",
		}, []string{"result"}),
		AnalysisBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_batches_total",
			Help:      "Stage-2 analysis calls by result",
		}, []string{"result"}),
		AnalysisOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_outcomes_total",
			Help:      "Per-paper analysis outcomes by kind",
		}, []string{"kind"}),
		ParserAnomalies: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parser_anomalies_total",
			Help:      "Duplicate markers seen while splitting analysis replies",
		}),
		ModelCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Model call latency by stage",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
	}
}

// ObserveModelCall records the latency of one model call for stage.
func (m *Metrics) ObserveModelCall(stage string, elapsed time.Duration) {
	m.ModelCallDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// WriteTextfile dumps the current metric values in the Prometheus text
// format, suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
