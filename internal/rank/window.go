// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank implements stage 1 of a digest run: overlapping ranking
// windows, max-score aggregation, and promotion to deep analysis.
package rank

import (
	"fmt"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Window is an ordered, non-owning view over a slice of the candidate list.
type Window struct {
	// Index is the window's position in the schedule.
	Index int
	// Start is the offset of the first paper in the candidate list.
	Start int
	IDs   []string
}

// Size returns the number of papers in the window.
func (w Window) Size() int { return len(w.IDs) }

// Windows splits ids into windows [0,size), [step,step+size), ... clipped to
// the list length. Generation stops once a window reaches the end of the
// list, so the union of all windows always equals the input. A list no longer
// than size produces exactly one window.
func Windows(ids []string, size, step int) ([]Window, error) {
	if size <= 0 {
		return nil, &types.ConfigError{Field: "ranking.window_size", Reason: fmt.Sprintf("must be positive, got %d", size)}
	}
	if step <= 0 {
		return nil, &types.ConfigError{Field: "ranking.step_size", Reason: fmt.Sprintf("must be positive, got %d", step)}
	}
	if step > size {
		return nil, &types.ConfigError{Field: "ranking.step_size", Reason: fmt.Sprintf("%d exceeds window_size %d", step, size)}
	}

	n := len(ids)
	if n == 0 {
		return nil, nil
	}
	if n <= size {
		return []Window{{Index: 0, Start: 0, IDs: ids}}, nil
	}

	var windows []Window
	for start := 0; ; start += step {
		end := min(start+size, n)
		windows = append(windows, Window{Index: len(windows), Start: start, IDs: ids[start:end]})
		if end == n {
			break
		}
	}
	return windows, nil
}
