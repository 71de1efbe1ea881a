// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("2401.%05d", i)
	}
	return ids
}

func TestWindows_TwelvePapersSizeTenStepFive(t *testing.T) {
	ids := makeIDs(12)
	windows, err := Windows(ids, 10, 5)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.Equal(t, 0, windows[0].Start)
	assert.Equal(t, 10, windows[0].Size())
	assert.Equal(t, 5, windows[1].Start)
	assert.Equal(t, 7, windows[1].Size())
	assert.Equal(t, ids[5:12], windows[1].IDs)

	// Index 7 sits in both windows.
	assert.Contains(t, windows[0].IDs, ids[7])
	assert.Contains(t, windows[1].IDs, ids[7])
}

func TestWindows_SingleWindowWhenListFits(t *testing.T) {
	for _, n := range []int{1, 5, 10} {
		windows, err := Windows(makeIDs(n), 10, 3)
		require.NoError(t, err)
		require.Len(t, windows, 1, "n=%d", n)
		assert.Equal(t, n, windows[0].Size())
	}
}

func TestWindows_Empty(t *testing.T) {
	windows, err := Windows(nil, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestWindows_CoverageAcrossConfigurations(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for size := 1; size <= 12; size++ {
			for step := 1; step <= size; step++ {
				ids := makeIDs(n)
				windows, err := Windows(ids, size, step)
				require.NoError(t, err)

				seen := make(map[string]bool)
				for i, w := range windows {
					assert.Equal(t, i, w.Index)
					assert.LessOrEqual(t, w.Size(), size)
					for _, id := range w.IDs {
						seen[id] = true
					}
				}
				require.Len(t, seen, n, "n=%d size=%d step=%d", n, size, step)
				last := windows[len(windows)-1]
				assert.Equal(t, n, last.Start+last.Size(), "last window must reach the end")
			}
		}
	}
}

func TestWindows_InvalidConfig(t *testing.T) {
	tests := []struct {
		name       string
		size, step int
		field      string
	}{
		{"zero size", 0, 1, "ranking.window_size"},
		{"negative step", 5, -1, "ranking.step_size"},
		{"step beyond size", 5, 6, "ranking.step_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Windows(makeIDs(20), tt.size, tt.step)
			var ce *types.ConfigError
			require.True(t, errors.As(err, &ce), "want ConfigError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
