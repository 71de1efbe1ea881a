// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline.
package types

import "time"

// RunSummary counts what happened at each stage of one digest run.
type RunSummary struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Provider   string    `json:"provider" yaml:"provider"`

	Fetched       int `json:"fetched" yaml:"fetched"`
	Windows       int `json:"windows" yaml:"windows"`
	FailedWindows int `json:"failed_windows" yaml:"failed_windows"`
	Scored        int `json:"scored" yaml:"scored"`

	Promoted     int  `json:"promoted" yaml:"promoted"`
	Fallback     bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	NoPromotions bool `json:"no_promotions,omitempty" yaml:"no_promotions,omitempty"`

	FullTextFetched  int `json:"full_text_fetched" yaml:"full_text_fetched"`
	FullTextCached   int `json:"full_text_cached" yaml:"full_text_cached"`
	FullTextDegraded int `json:"full_text_degraded" yaml:"full_text_degraded"`

	Batches         int `json:"batches" yaml:"batches"`
	FailedBatches   int `json:"failed_batches" yaml:"failed_batches"`
	Analyzed        int `json:"analyzed" yaml:"analyzed"`
	Unavailable     int `json:"unavailable" yaml:"unavailable"`
	Errored         int `json:"errored" yaml:"errored"`
	ParserAnomalies int `json:"parser_anomalies" yaml:"parser_anomalies"`
}

// Duration returns the wall-clock length of the run.
func (s RunSummary) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }

// HasFailures reports whether any stage lost work to an error.
func (s RunSummary) HasFailures() bool {
	return s.FailedWindows > 0 || s.FailedBatches > 0 || s.FullTextDegraded > 0 || s.Errored > 0
}

// Digest is the assembled result of a run: one record per fetched paper in
// fetch order.
type Digest struct {
	Summary RunSummary `json:"summary" yaml:"summary"`
	Papers  []Paper    `json:"papers" yaml:"papers"`
}

// PromotedPapers returns the promoted records in fetch order.
func (d Digest) PromotedPapers() []Paper {
	var out []Paper
	for _, p := range d.Papers {
		if p.Promoted {
			out = append(out, p)
		}
	}
	return out
}
