// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext retrieves the body text of promoted papers for deep
// analysis. Retrieval strategies are Sources tried in order; results are
// cached on disk one file per paper.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Source retrieves the plain text of one paper.
type Source interface {
	// Name identifies the strategy in logs ("html", "pdf").
	Name() string
	Fetch(ctx context.Context, p types.Paper) (string, error)
}

// ErrEmpty reports a retrieval that succeeded but produced no usable text.
var ErrEmpty = errors.New("no text extracted")

// minUsefulChars is the shortest extraction accepted as a paper body.
const minUsefulChars = 500

// ChainSource tries each source in order and returns the first success.
type ChainSource []Source

// Name lists the chained source names.
func (c ChainSource) Name() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

// Fetch returns the first source's text that succeeds. When all fail the
// errors are joined.
func (c ChainSource) Fetch(ctx context.Context, p types.Paper) (string, error) {
	if len(c) == 0 {
		return "", errors.New("no full-text sources configured")
	}
	var errs []error
	for _, s := range c {
		text, err := s.Fetch(ctx, p)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return "", errors.Join(errs...)
}

// normalizeWhitespace collapses every run of whitespace into one space.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// checkText normalizes extracted text and rejects extractions too short to
// be a paper body.
func checkText(s string) (string, error) {
	s = normalizeWhitespace(s)
	if len(s) < minUsefulChars {
		return "", fmt.Errorf("%w (%d chars)", ErrEmpty, len(s))
	}
	return s, nil
}
