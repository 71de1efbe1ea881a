// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	c, err := loadConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPipelineConfig(), c)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	v := newViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
source:
  categories: [cs.CV]
  timeout: 15s
ranking:
  window_size: 8
  step_size: 4
  empty_policy: top_k
analysis:
  analysis_type: quick
report:
  formats: [json]
`)))

	c, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"cs.CV"}, c.Source.Categories)
	assert.Equal(t, 15*time.Second, c.Source.Timeout)
	assert.Equal(t, "paper-digest/0.1", c.Source.UserAgent)
	assert.Equal(t, 8, c.Ranking.WindowSize)
	assert.Equal(t, 4, c.Ranking.StepSize)
	assert.Equal(t, types.EmptyTopK, c.Ranking.EmptyPolicy)
	assert.Equal(t, 3.5, c.Ranking.PromotionThreshold)
	assert.Equal(t, types.AnalysisQuick, c.Analysis.Type)
	assert.Equal(t, []string{"json"}, c.Report.Formats)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PAPER_DIGEST_RANKING_PROMOTION_SCORE_THRESHOLD", "4.2")
	t.Setenv("PAPER_DIGEST_MAX_WORKERS", "3")
	t.Setenv("PAPER_DIGEST_AI_PROVIDER", "deepseek")
	t.Setenv("PAPER_DIGEST_AI_API_KEY", "sk-env")

	c, err := loadConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, 4.2, c.Ranking.PromotionThreshold)
	assert.Equal(t, 3, c.MaxWorkers)
	assert.Equal(t, types.ProviderDeepSeek, c.AI.Provider)
	assert.Equal(t, "sk-env", c.AI.APIKey)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	v := newViper()
	v.Set("ranking.step_size", 50)

	_, err := loadConfig(v)
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "ranking.step_size", cfgErr.Field)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	printSummary(&buf, types.RunSummary{
		RunID: "run-1", Provider: "deepseek/deepseek-chat",
		StartedAt: start, FinishedAt: start.Add(90 * time.Second),
		Fetched: 50, Scored: 48, Windows: 9, FailedWindows: 1,
		Promoted: 5, FullTextFetched: 4, FullTextDegraded: 1,
		Batches: 2, Analyzed: 5,
	}, []string{"storage/reports/digest.yaml"})

	out := buf.String()
	assert.Contains(t, out, "run run-1 (deepseek/deepseek-chat) finished in 1m30s")
	assert.Contains(t, out, "48 scored, 1/9 windows failed")
	assert.Contains(t, out, "promoted:   5")
	assert.Contains(t, out, "4 fetched, 0 cached, 1 from abstract")
	assert.Contains(t, out, "report:     storage/reports/digest.yaml")

	buf.Reset()
	printSummary(&buf, types.RunSummary{NoPromotions: true}, nil)
	assert.Contains(t, buf.String(), "deep analysis skipped")
	assert.NotContains(t, buf.String(), "full text")
}
