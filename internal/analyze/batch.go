// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze implements stage 2 of a digest run: packing promoted
// papers into token-bounded batches, calling the analysis model, and splitting
// each reply back into per-paper outcomes.
package analyze

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// TruncationMarker is appended to item text cut to fit a budget.
const TruncationMarker = "[... truncated]"

// itemOverheadTokens approximates the separator, marker and label lines the
// prompt wraps around each paper.
const itemOverheadTokens = 24

// Item is one paper as it will appear in an analysis prompt.
type Item struct {
	ID    string
	Title string
	// Text is the full text or, when unavailable, the abstract.
	Text string
	// FullText reports whether Text is the paper body.
	FullText  bool
	Truncated bool
	Tokens    int
}

// Batch is a group of items sent in one analysis call.
type Batch struct {
	Index  int
	Items  []Item
	Tokens int
}

// IDs returns the paper ids of the batch in order.
func (b Batch) IDs() []string {
	ids := make([]string, len(b.Items))
	for i, it := range b.Items {
		ids[i] = it.ID
	}
	return ids
}

// EstimateTokens approximates the token count of s as one token per four
// runes, rounded up.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// Plan packs papers into batches in the given order. A new batch starts when
// the next item would push the estimate past BatchTokenBudget or when the
// current batch holds MaxBatchSize items (0 means no item cap). Every paper
// lands in exactly one batch; text too large for the item cap or for an
// otherwise empty batch is truncated, never dropped.
func Plan(papers []types.Paper, cfg types.AnalysisConfig) []Batch {
	itemLimit := cfg.BatchTokenBudget - cfg.PromptOverheadTokens
	if cfg.MaxItemTokens > 0 && cfg.MaxItemTokens < itemLimit {
		itemLimit = cfg.MaxItemTokens
	}

	var batches []Batch
	var cur *Batch
	for _, p := range papers {
		it := newItem(p, itemLimit)

		full := cur != nil && cfg.MaxBatchSize > 0 && len(cur.Items) >= cfg.MaxBatchSize
		over := cur != nil && cur.Tokens+it.Tokens > cfg.BatchTokenBudget
		if cur == nil || full || over {
			batches = append(batches, Batch{Index: len(batches), Tokens: cfg.PromptOverheadTokens})
			cur = &batches[len(batches)-1]
		}
		cur.Items = append(cur.Items, it)
		cur.Tokens += it.Tokens
	}
	return batches
}

// newItem builds the prompt item for p, truncating its text so the item's
// estimate stays within limit tokens.
func newItem(p types.Paper, limit int) Item {
	it := Item{ID: p.ID, Title: p.Title, Text: p.AnalysisInput()}
	it.FullText = p.FullText != "" && !p.FullTextDegraded

	fixed := EstimateTokens(p.ID) + EstimateTokens(p.Title) + itemOverheadTokens
	room := limit - fixed
	if EstimateTokens(it.Text) > room {
		it.Text = truncate(it.Text, room)
		it.Truncated = true
	}
	it.Tokens = fixed + EstimateTokens(it.Text)
	return it
}

// truncate cuts text so that the result, marker included, is at most tokens
// tokens. The cut falls on the last whitespace boundary before the limit
// when there is one.
func truncate(text string, tokens int) string {
	maxRunes := tokens*4 - utf8.RuneCountInString(TruncationMarker) - 1
	if maxRunes <= 0 {
		return TruncationMarker
	}

	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	cut := runes[:maxRunes]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + " " + TruncationMarker
}
