// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Score is one window's judgement of one paper.
type Score struct {
	Value         float64
	Justification string
}

// Result maps paper id to the score a single window assigned it. It may be
// partial when the model skipped papers.
type Result map[string]Score

// Client scores the papers of one window. Implementations return a
// *ParseError for malformed replies; any error is scoped to that window.
type Client interface {
	Rank(ctx context.Context, w Window, papers []types.Paper) (Result, error)
}

// ParseError reports a ranking reply that could not be turned into scores.
type ParseError struct {
	Window  int
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ranking window %d: unparseable reply: %v (reply starts %q)", e.Window, e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WindowReport is the outcome of ranking one window. Err is set when the
// window contributed no scores.
type WindowReport struct {
	Window    Window
	Result    Result
	Anomalies []string
	Err       error
}

// Failed reports whether the window produced no usable scores.
func (r WindowReport) Failed() bool { return r.Err != nil }

// Score range accepted from the model.
const (
	MinScore = 1.0
	MaxScore = 5.0
)

// RankAll schedules windows over papers and ranks each through client using
// at most workers concurrent calls. Reports are indexed by window, never by
// completion order. A failing window is logged and kept as a failed report;
// only an invalid window configuration returns an error.
func RankAll(ctx context.Context, client Client, papers []types.Paper, cfg types.RankingConfig, workers int, log zerolog.Logger) ([]WindowReport, error) {
	ids := make([]string, len(papers))
	byID := make(map[string]types.Paper, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	windows, err := Windows(ids, cfg.WindowSize, cfg.StepSize)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = types.DeriveWorkers(len(windows))
	}

	log.Info().Int("windows", len(windows)).Int("window_size", cfg.WindowSize).
		Int("step_size", cfg.StepSize).Int("workers", workers).Msg("stage 1: ranking")

	reports := make([]WindowReport, len(windows))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, w := range windows {
		g.Go(func() error {
			members := make([]types.Paper, len(w.IDs))
			for j, id := range w.IDs {
				members[j] = byID[id]
			}
			reports[i] = rankWindow(ctx, client, w, members, log)
			return nil
		})
	}
	_ = g.Wait()

	return reports, nil
}

// rankWindow runs one ranking call and filters the reply down to in-window,
// in-range scores.
func rankWindow(ctx context.Context, client Client, w Window, members []types.Paper, log zerolog.Logger) WindowReport {
	wlog := log.With().Int("window", w.Index).Int("start", w.Start).Int("size", w.Size()).Logger()

	res, err := client.Rank(ctx, w, members)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			wlog.Warn().Err(err).Msg("ranking reply unparseable, window contributes no scores")
		} else {
			wlog.Warn().Err(err).Msg("ranking call failed, window contributes no scores")
		}
		return WindowReport{Window: w, Err: err}
	}

	inWindow := make(map[string]bool, len(w.IDs))
	for _, id := range w.IDs {
		inWindow[id] = true
	}

	report := WindowReport{Window: w, Result: make(Result, len(res))}
	for id, s := range res {
		switch {
		case !inWindow[id]:
			report.Anomalies = append(report.Anomalies, fmt.Sprintf("score for %q outside window", id))
		case s.Value < MinScore || s.Value > MaxScore:
			report.Anomalies = append(report.Anomalies, fmt.Sprintf("score %.2f for %q out of range", s.Value, id))
		default:
			report.Result[id] = s
		}
	}
	for _, a := range report.Anomalies {
		wlog.Warn().Str("anomaly", a).Msg("ranking reply anomaly")
	}

	if len(report.Result) == 0 {
		report.Err = &ParseError{Window: w.Index, Err: errors.New("no usable scores")}
		wlog.Warn().Err(report.Err).Msg("ranking window produced nothing")
		return report
	}
	if missing := len(w.IDs) - len(report.Result); missing > 0 {
		wlog.Debug().Int("missing", missing).Msg("ranking reply omitted papers")
	}
	return report
}
