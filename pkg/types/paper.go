// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperStatus tracks where a paper is in the two-stage pipeline.
// Every paper ends in StatusAssembled regardless of the path it took.
type PaperStatus string

const (
	StatusFetched         PaperStatus = "fetched"
	StatusWindowed        PaperStatus = "windowed"
	StatusScored          PaperStatus = "scored"
	StatusPromoted        PaperStatus = "promoted"
	StatusRejected        PaperStatus = "rejected"
	StatusFullTextFetched PaperStatus = "full_text_fetched"
	StatusFullTextFailed  PaperStatus = "full_text_failed"
	StatusAnalyzed        PaperStatus = "analyzed"
	StatusAnalysisFailed  PaperStatus = "analysis_failed"
	StatusAssembled       PaperStatus = "assembled"
)

// OutcomeKind classifies the result of deep analysis for one paper.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeUnavailable OutcomeKind = "unavailable"
	OutcomeError       OutcomeKind = "error"
)

// Outcome is the per-paper result of a stage-2 batch. Text is set only for
// OutcomeSuccess; ErrorKind only for OutcomeError.
type Outcome struct {
	Kind      OutcomeKind `json:"kind" yaml:"kind"`
	Text      string      `json:"text,omitempty" yaml:"text,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// Success builds a successful outcome.
func Success(text string) Outcome { return Outcome{Kind: OutcomeSuccess, Text: text} }

// Unavailable builds the outcome for a paper whose marker never appeared.
func Unavailable() Outcome { return Outcome{Kind: OutcomeUnavailable} }

// Failed builds an error outcome of the given kind (e.g. "network", "rate_limit").
func Failed(kind string) Outcome { return Outcome{Kind: OutcomeError, ErrorKind: kind} }

// OK reports whether the outcome carries analysis text.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Paper is one candidate record flowing through the pipeline. The source
// fills identity and metadata; the coordinator owns everything else for the
// duration of a run.
type Paper struct {
	// ID is the stable identifier (an arXiv accession number such as "2401.01234").
	ID string `json:"id" yaml:"id"`

	Title     string    `json:"title" yaml:"title"`
	Abstract  string    `json:"abstract" yaml:"abstract"`
	Authors   []string  `json:"authors,omitempty" yaml:"authors,omitempty"`
	Published time.Time `json:"published" yaml:"published"`

	// Categories lists arXiv categories, primary first.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// URL is the abstract page; PDFURL the direct PDF link.
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// FullText is the extracted body text. When FullTextDegraded is set it
	// holds the abstract instead.
	FullText         string `json:"-" yaml:"-"`
	FullTextDegraded bool   `json:"full_text_degraded,omitempty" yaml:"full_text_degraded,omitempty"`

	// Stage1Score is the aggregated ranking score; nil means unscored.
	Stage1Score   *float64 `json:"stage1_score,omitempty" yaml:"stage1_score,omitempty"`
	Justification string   `json:"justification,omitempty" yaml:"justification,omitempty"`

	Promoted bool `json:"promoted" yaml:"promoted"`
	// Fallback marks a paper promoted below threshold by the top-k policy.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`

	Outcome      *Outcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Analysis     string   `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	HTMLAnalysis string   `json:"html_analysis,omitempty" yaml:"html_analysis,omitempty"`

	Status PaperStatus `json:"status" yaml:"status"`
}

// Scored reports whether any ranking window produced a score for the paper.
func (p Paper) Scored() bool { return p.Stage1Score != nil }

// Score returns the aggregated score, or 0 when unscored.
func (p Paper) Score() float64 {
	if p.Stage1Score == nil {
		return 0
	}
	return *p.Stage1Score
}

// AnalysisInput returns the text stage 2 should read: full text when present,
// the abstract otherwise.
func (p Paper) AnalysisInput() string {
	if p.FullText != "" {
		return p.FullText
	}
	return p.Abstract
}
