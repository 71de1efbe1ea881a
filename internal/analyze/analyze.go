// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Client runs one deep-analysis call for a batch and returns the raw reply.
// The analysis type changes only prompt verbosity, never the reply format.
type Client interface {
	Analyze(ctx context.Context, b Batch, t types.AnalysisType) (string, error)
}

// Error kinds attached to outcomes of failed batches.
const (
	KindCanceled = "canceled"
	KindUnknown  = "unknown"
)

// kinded is satisfied by transport errors that classify themselves.
type kinded interface {
	ErrorKind() string
}

// ErrorKind classifies err for an outcome: the error's own kind when it
// carries one, "canceled" for context errors, "unknown" otherwise.
func ErrorKind(err error) string {
	var k kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}

// BatchReport is the outcome of one analysis call.
type BatchReport struct {
	Batch     Batch
	Outcomes  map[string]types.Outcome
	Anomalies []string
	Err       error
}

// Failed reports whether the call itself failed.
func (r BatchReport) Failed() bool { return r.Err != nil }

// AnalyzeAll runs every batch through client using at most workers concurrent
// calls. A failed call marks exactly that batch's papers with an error outcome;
// other batches are unaffected. Reports are returned in batch order.
func AnalyzeAll(ctx context.Context, client Client, batches []Batch, t types.AnalysisType, workers int, log zerolog.Logger) []BatchReport {
	if workers <= 0 {
		workers = types.DeriveWorkers(len(batches))
	}
	log.Info().Int("batches", len(batches)).Int("workers", workers).
		Str("analysis_type", string(t)).Msg("stage 2: deep analysis")

	reports := make([]BatchReport, len(batches))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, b := range batches {
		g.Go(func() error {
			reports[i] = analyzeBatch(ctx, client, b, t, log)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func analyzeBatch(ctx context.Context, client Client, b Batch, t types.AnalysisType, log zerolog.Logger) BatchReport {
	blog := log.With().Int("batch", b.Index).Int("papers", len(b.Items)).Int("tokens", b.Tokens).Logger()
	ids := b.IDs()

	reply, err := client.Analyze(ctx, b, t)
	if err != nil {
		kind := ErrorKind(err)
		blog.Warn().Err(err).Str("kind", kind).Msg("analysis call failed")
		outcomes := make(map[string]types.Outcome, len(ids))
		for _, id := range ids {
			outcomes[id] = types.Failed(kind)
		}
		return BatchReport{Batch: b, Outcomes: outcomes, Err: err}
	}

	parsed := Parse(reply, ids)
	for _, a := range parsed.Anomalies {
		blog.Warn().Str("anomaly", a).Msg("analysis reply anomaly")
	}
	missing := 0
	for _, o := range parsed.Outcomes {
		if !o.OK() {
			missing++
		}
	}
	if missing > 0 {
		blog.Warn().Int("unavailable", missing).Msg("analysis reply missing papers")
	}
	return BatchReport{Batch: b, Outcomes: parsed.Outcomes, Anomalies: parsed.Anomalies}
}

// Outcomes merges batch reports into a single id-keyed map.
func Outcomes(reports []BatchReport) map[string]types.Outcome {
	out := make(map[string]types.Outcome)
	for _, r := range reports {
		for id, o := range r.Outcomes {
			out[id] = o
		}
	}
	return out
}
