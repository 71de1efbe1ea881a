// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/internal/analyze"
	"github.com/pdiddy/paper-digest/internal/rank"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Stage labels passed to Observe.
const (
	StageRanking  = "ranking"
	StageAnalysis = "analysis"
)

const (
	rankingMaxTokens   = 2048
	rankingTemperature = 0.2
	analysisMaxTokens  = 8192
)

// Assistant serves both pipeline stages from one Completer. Calls are paced
// by a shared rate limiter and retried on transient failures.
type Assistant struct {
	completer Completer
	limiter   *rate.Limiter
	attempts  int
	log       zerolog.Logger

	// Observe, when set, receives the latency of every successful or failed call.
	Observe func(stage string, elapsed time.Duration)
}

var (
	_ rank.Client    = (*Assistant)(nil)
	_ analyze.Client = (*Assistant)(nil)
)

// NewAssistant wraps c with pacing from cfg.RequestsPerMinute (unlimited
// when zero) and cfg.MaxRetries attempts per call.
func NewAssistant(c Completer, cfg types.AIConfig, log zerolog.Logger) *Assistant {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &Assistant{
		completer: c,
		limiter:   limiter,
		attempts:  cfg.MaxRetries,
		log:       log.With().Str("model", c.Name()).Logger(),
	}
}

// Name identifies the underlying provider and model.
func (a *Assistant) Name() string { return a.completer.Name() }

// Rank scores one window. Malformed replies come back as *rank.ParseError
// and are not retried.
func (a *Assistant) Rank(ctx context.Context, w rank.Window, papers []types.Paper) (rank.Result, error) {
	user, err := renderRankingPrompt(papers)
	if err != nil {
		return nil, err
	}
	reply, err := a.complete(ctx, StageRanking, Request{
		System:      rankingSystemPrompt,
		User:        user,
		MaxTokens:   rankingMaxTokens,
		Temperature: rankingTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("ranking window %d: %w", w.Index, err)
	}
	return rank.ParseReply(reply, w)
}

// Analyze runs the deep analysis of one batch and returns the raw reply.
func (a *Assistant) Analyze(ctx context.Context, b analyze.Batch, t types.AnalysisType) (string, error) {
	system, user, err := renderAnalysisPrompts(b, t)
	if err != nil {
		return "", err
	}
	reply, err := a.complete(ctx, StageAnalysis, Request{
		System:    system,
		User:      user,
		MaxTokens: analysisMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("analysis batch %d: %w", b.Index, err)
	}
	return reply, nil
}

func (a *Assistant) complete(ctx context.Context, stage string, req Request) (string, error) {
	return callWithRetry(ctx, a.attempts, a.log, func(ctx context.Context) (string, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", err
		}
		start := time.Now()
		out, err := a.completer.Complete(ctx, req)
		if a.Observe != nil {
			a.Observe(stage, time.Since(start))
		}
		return out, err
	})
}
