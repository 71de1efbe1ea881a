// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSONWithRunAndPaper(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(types.LoggingConfig{Level: "info", Format: "json"}, &buf)
	WithPaper(WithRun(log, "run-1"), "2401.00001").Info().Msg("hello")
	log.Debug().Msg("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "2401.00001", entry["paper_id"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(types.LoggingConfig{Level: "debug", Format: "console"}, &buf)
	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()
	m.PapersFetched.Add(12)
	m.RankingWindows.WithLabelValues("ok").Inc()
	m.RankingWindows.WithLabelValues("failed").Inc()
	m.RankingWindows.WithLabelValues("ok").Inc()
	m.AnalysisOutcomes.WithLabelValues("unavailable").Inc()

	assert.Equal(t, 12.0, testutil.ToFloat64(m.PapersFetched))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RankingWindows.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RankingWindows.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisOutcomes.WithLabelValues("unavailable")))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.PapersPromoted.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PapersPromoted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PapersPromoted))
}

func TestMetrics_ObserveModelCall(t *testing.T) {
	m := NewMetrics()
	m.ObserveModelCall("rank", 2*time.Second)
	m.ObserveModelCall("analyze", 40*time.Second)
	assert.Equal(t, 2, testutil.CollectAndCount(m.ModelCallDuration))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.PapersFetched.Add(3)
	m.ParserAnomalies.Inc()

	path := filepath.Join(t.TempDir(), "digest.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "paper_digest_papers_fetched_total 3")
	assert.Contains(t, string(data), "paper_digest_parser_anomalies_total 1")
}

func TestMetrics_WriteTextfileBadDir(t *testing.T) {
	m := NewMetrics()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "digest.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing metrics")
}
