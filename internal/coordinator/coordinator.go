// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coordinator runs the two-stage digest: windowed ranking of every
// candidate, promotion of the best, full-text retrieval, batched deep
// analysis and order-preserving assembly. Failures of a window, a fetch or
// a batch stay local to it; only invalid configuration and an empty
// candidate list abort a run.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/analyze"
	"github.com/pdiddy/paper-digest/internal/fulltext"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/rank"
	"github.com/pdiddy/paper-digest/internal/source"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// ErrNoPapers is returned when there is nothing to rank.
var ErrNoPapers = errors.New("paper source returned no papers")

// Fetcher retrieves full text for promoted papers, one result per paper.
type Fetcher interface {
	FetchAll(ctx context.Context, papers []types.Paper) []fulltext.Result
}

// Coordinator wires the stage collaborators together. Metrics may be nil.
type Coordinator struct {
	Ranker   rank.Client
	Analyzer analyze.Client
	Fetcher  Fetcher
	Config   types.PipelineConfig
	Metrics  *observability.Metrics
	Log      zerolog.Logger

	// Provider names the model in the run summary.
	Provider string

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// RunSource fetches candidates from src and runs the digest over them.
func (c *Coordinator) RunSource(ctx context.Context, src source.Source) (types.Digest, error) {
	papers, err := src.Fetch(ctx)
	if err != nil {
		return types.Digest{}, fmt.Errorf("fetching candidates from %s: %w", src.Name(), err)
	}
	return c.Run(ctx, papers)
}

// Run processes papers and returns one assembled record per input paper in
// input order.
func (c *Coordinator) Run(ctx context.Context, papers []types.Paper) (types.Digest, error) {
	cfg := c.Config
	if err := cfg.Validate(); err != nil {
		return types.Digest{}, err
	}
	if len(papers) == 0 {
		return types.Digest{}, ErrNoPapers
	}
	if err := checkUniqueIDs(papers); err != nil {
		return types.Digest{}, err
	}

	sum := types.RunSummary{
		RunID:     c.newID(),
		StartedAt: c.now(),
		Provider:  c.Provider,
		Fetched:   len(papers),
	}
	log := observability.WithRun(c.Log, sum.RunID)
	log.Info().Int("papers", len(papers)).Msg("digest run started")
	c.metrics(func(m *observability.Metrics) { m.PapersFetched.Add(float64(len(papers))) })

	input := make([]types.Paper, len(papers))
	for i, p := range papers {
		p.Status = types.StatusFetched
		input[i] = p
	}

	// Stage 1.
	windows, err := rank.RankAll(ctx, c.Ranker, input, cfg.Ranking, cfg.MaxWorkers, log)
	if err != nil {
		return types.Digest{}, err
	}
	c.recordWindows(&sum, windows)

	scores := rank.Aggregate(windows)
	scored := rank.Apply(input, scores)
	sum.Scored = len(scores)

	promo := rank.Promote(rank.Order(scored), cfg.Ranking)
	marked, promoted := markPromotion(scored, promo)
	sum.Promoted = len(promoted)
	sum.Fallback = promo.Fallback
	c.metrics(func(m *observability.Metrics) { m.PapersPromoted.Add(float64(len(promoted))) })

	if len(promoted) == 0 {
		sum.NoPromotions = true
		log.Warn().Float64("threshold", cfg.Ranking.PromotionThreshold).
			Msg("no paper cleared the promotion threshold, skipping deep analysis")
		return c.finish(log, sum, Assemble(marked, nil, nil)), nil
	}
	if promo.Fallback {
		log.Warn().Int("promoted", len(promoted)).Msg("nothing cleared the threshold, promoted top scored papers")
	}

	// Full text.
	fetched := c.Fetcher.FetchAll(ctx, promoted)
	promoted = fulltext.Apply(promoted, fetched)
	c.recordFetches(&sum, fetched)

	// Stage 2.
	batches := analyze.Plan(promoted, cfg.Analysis)
	reports := analyze.AnalyzeAll(ctx, c.Analyzer, batches, cfg.Analysis.Type, cfg.Analysis.Concurrency, log)
	outcomes := analyze.Outcomes(reports)
	c.recordBatches(&sum, reports, outcomes)

	return c.finish(log, sum, Assemble(marked, promoted, outcomes)), nil
}

func (c *Coordinator) finish(log zerolog.Logger, sum types.RunSummary, papers []types.Paper) types.Digest {
	sum.FinishedAt = c.now()
	ev := log.Info()
	if sum.HasFailures() {
		ev = log.Warn()
	}
	ev.Int("fetched", sum.Fetched).
		Int("scored", sum.Scored).
		Int("failed_windows", sum.FailedWindows).
		Int("promoted", sum.Promoted).
		Int("full_text_degraded", sum.FullTextDegraded).
		Int("analyzed", sum.Analyzed).
		Int("unavailable", sum.Unavailable).
		Int("errored", sum.Errored).
		Dur("elapsed", sum.Duration()).
		Msg("digest run finished")
	return types.Digest{Summary: sum, Papers: papers}
}

// markPromotion flags promoted papers in input order and returns them
// separately in promotion order. Everything else is rejected.
func markPromotion(papers []types.Paper, promo rank.Promotion) (marked, promoted []types.Paper) {
	rankOf := make(map[string]int, len(promo.IDs))
	for i, id := range promo.IDs {
		rankOf[id] = i
	}
	marked = make([]types.Paper, len(papers))
	promoted = make([]types.Paper, len(promo.IDs))
	for i, p := range papers {
		if r, ok := rankOf[p.ID]; ok {
			p.Promoted = true
			p.Fallback = promo.Fallback
			p.Status = types.StatusPromoted
			promoted[r] = p
		} else {
			p.Status = types.StatusRejected
		}
		marked[i] = p
	}
	return marked, promoted
}

func checkUniqueIDs(papers []types.Paper) error {
	seen := make(map[string]bool, len(papers))
	for _, p := range papers {
		if p.ID == "" {
			return errors.New("paper with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate paper id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

func (c *Coordinator) recordWindows(sum *types.RunSummary, reports []rank.WindowReport) {
	sum.Windows = len(reports)
	for _, r := range reports {
		result := "ok"
		if r.Failed() {
			sum.FailedWindows++
			result = "failed"
		}
		c.metrics(func(m *observability.Metrics) { m.RankingWindows.WithLabelValues(result).Inc() })
	}
}

func (c *Coordinator) recordFetches(sum *types.RunSummary, results []fulltext.Result) {
	s := fulltext.Summarize(results)
	sum.FullTextFetched, sum.FullTextCached, sum.FullTextDegraded = s.Fetched, s.Cached, s.Degraded
	for _, r := range results {
		c.metrics(func(m *observability.Metrics) { m.FullTextFetches.WithLabelValues(string(r.Kind)).Inc() })
	}
}

func (c *Coordinator) recordBatches(sum *types.RunSummary, reports []analyze.BatchReport, outcomes map[string]types.Outcome) {
	sum.Batches = len(reports)
	for _, r := range reports {
		result := "ok"
		if r.Failed() {
			sum.FailedBatches++
			result = "failed"
		}
		sum.ParserAnomalies += len(r.Anomalies)
		c.metrics(func(m *observability.Metrics) {
			m.AnalysisBatches.WithLabelValues(result).Inc()
			m.ParserAnomalies.Add(float64(len(r.Anomalies)))
		})
	}
	for _, o := range outcomes {
		switch o.Kind {
		case types.OutcomeSuccess:
			sum.Analyzed++
		case types.OutcomeUnavailable:
			sum.Unavailable++
		default:
			sum.Errored++
		}
		c.metrics(func(m *observability.Metrics) { m.AnalysisOutcomes.WithLabelValues(string(o.Kind)).Inc() })
	}
}

func (c *Coordinator) metrics(fn func(*observability.Metrics)) {
	if c.Metrics != nil {
		fn(c.Metrics)
	}
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Coordinator) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}
