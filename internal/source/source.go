// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source supplies the candidate papers for a digest run.
package source

import (
	"context"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Source returns candidate papers in a stable order.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]types.Paper, error)
}

// FilterKeywords keeps papers whose title or abstract contains any keyword,
// compared case-insensitively. An empty keyword list keeps everything.
// Order is preserved.
func FilterKeywords(papers []types.Paper, keywords []string) []types.Paper {
	var needles []string
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			needles = append(needles, kw)
		}
	}
	if len(needles) == 0 {
		return papers
	}

	var out []types.Paper
	for _, p := range papers {
		hay := strings.ToLower(p.Title + "\n" + p.Abstract)
		for _, n := range needles {
			if strings.Contains(hay, n) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
