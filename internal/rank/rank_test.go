// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// scriptedClient returns per-window results keyed by window index.
type scriptedClient struct {
	mu      sync.Mutex
	results map[int]Result
	errs    map[int]error
	calls   []int
}

func (c *scriptedClient) Rank(_ context.Context, w Window, papers []types.Paper) (Result, error) {
	c.mu.Lock()
	c.calls = append(c.calls, w.Index)
	c.mu.Unlock()

	if len(papers) != w.Size() {
		return nil, errors.New("window members do not match window ids")
	}
	if err := c.errs[w.Index]; err != nil {
		return nil, err
	}
	return c.results[w.Index], nil
}

func makePapers(n int) []types.Paper {
	papers := make([]types.Paper, n)
	for i, id := range makeIDs(n) {
		papers[i] = types.Paper{ID: id, Title: "Paper " + id, Status: types.StatusFetched}
	}
	return papers
}

func rankingConfig() types.RankingConfig {
	return types.RankingConfig{
		WindowSize:         10,
		StepSize:           5,
		PromotionThreshold: 3.5,
		MaxPromoted:        20,
		EmptyPolicy:        types.EmptySkip,
		FallbackTopK:       3,
	}
}

func TestRankAll_OverlapTakesMax(t *testing.T) {
	papers := makePapers(12)
	overlap := papers[7].ID

	client := &scriptedClient{results: map[int]Result{
		0: {overlap: {Value: 2.0}, papers[0].ID: {Value: 4.0}},
		1: {overlap: {Value: 4.5, Justification: "strong"}, papers[11].ID: {Value: 3.0}},
	}}

	reports, err := RankAll(context.Background(), client, papers, rankingConfig(), 2, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Len(t, client.calls, 2)

	scores := Aggregate(reports)
	assert.Equal(t, 4.5, scores[overlap].Value)
	assert.Equal(t, "strong", scores[overlap].Justification)
	assert.Equal(t, 4.0, scores[papers[0].ID].Value)
	assert.Equal(t, 3.0, scores[papers[11].ID].Value)
	assert.NotContains(t, scores, papers[3].ID)
}

func TestRankAll_FailedWindowIsIsolated(t *testing.T) {
	papers := makePapers(12)
	client := &scriptedClient{
		results: map[int]Result{1: {papers[9].ID: {Value: 3.0}}},
		errs:    map[int]error{0: errors.New("connection reset")},
	}

	reports, err := RankAll(context.Background(), client, papers, rankingConfig(), 0, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.True(t, reports[0].Failed())
	assert.False(t, reports[1].Failed())

	scores := Aggregate(reports)
	assert.Len(t, scores, 1)
	assert.Equal(t, 3.0, scores[papers[9].ID].Value)
}

func TestRankAll_DropsOutOfWindowAndOutOfRangeScores(t *testing.T) {
	papers := makePapers(12)
	client := &scriptedClient{results: map[int]Result{
		0: {papers[0].ID: {Value: 9.0}, papers[11].ID: {Value: 4.0}, papers[1].ID: {Value: 2.5}},
		1: {papers[6].ID: {Value: 3.0}},
	}}

	reports, err := RankAll(context.Background(), client, papers, rankingConfig(), 1, zerolog.Nop())
	require.NoError(t, err)

	assert.Len(t, reports[0].Anomalies, 2)
	assert.Equal(t, Result{papers[1].ID: {Value: 2.5}}, reports[0].Result)

	scores := Aggregate(reports)
	assert.NotContains(t, scores, papers[0].ID, "out-of-range score must not count")
	assert.NotContains(t, scores, papers[11].ID, "paper 11 is not in window 0")
}

func TestRankAll_EmptyResultCountsAsParseFailure(t *testing.T) {
	papers := makePapers(4)
	client := &scriptedClient{results: map[int]Result{0: {}}}

	reports, err := RankAll(context.Background(), client, papers, rankingConfig(), 1, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	var pe *ParseError
	assert.True(t, errors.As(reports[0].Err, &pe))
}

func TestRankAll_InvalidConfig(t *testing.T) {
	cfg := rankingConfig()
	cfg.StepSize = 0
	_, err := RankAll(context.Background(), &scriptedClient{}, makePapers(3), cfg, 1, zerolog.Nop())
	var ce *types.ConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestApplyAndOrder(t *testing.T) {
	papers := makePapers(5)
	scores := map[string]Score{
		papers[1].ID: {Value: 3.0},
		papers[2].ID: {Value: 4.0},
		papers[3].ID: {Value: 3.0},
	}

	applied := Apply(papers, scores)
	require.Len(t, applied, 5)
	assert.Equal(t, types.StatusWindowed, applied[0].Status)
	assert.Nil(t, applied[0].Stage1Score, "unscored papers stay unscored")
	assert.Equal(t, types.StatusScored, applied[2].Status)
	assert.Nil(t, papers[2].Stage1Score, "input must not be mutated")

	ordered := Order(applied)
	got := make([]string, len(ordered))
	for i, p := range ordered {
		got[i] = p.ID
	}
	// Ties (papers 1 and 3) keep input order; unscored (0, 4) go last in input order.
	assert.Equal(t, []string{papers[2].ID, papers[1].ID, papers[3].ID, papers[0].ID, papers[4].ID}, got)
}
