// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	w := Window{Index: 3, IDs: []string{"2401.00001", "2401.00002", "2401.00003"}}

	tests := []struct {
		name  string
		reply string
		want  map[string]float64
	}{
		{
			name:  "bare list",
			reply: `[{"paper_id": "2401.00001", "score": 4.8, "justification": "novel"}, {"paper_id": "2401.00002", "score": 2.1}]`,
			want:  map[string]float64{"2401.00001": 4.8, "2401.00002": 2.1},
		},
		{
			name:  "object wrapping list",
			reply: `{"rankings": [{"paper_id": "2401.00003", "score": 3}]}`,
			want:  map[string]float64{"2401.00003": 3},
		},
		{
			name:  "code fence and prose",
			reply: "Here you go:\n```json\n[{\"paper_id\": \"2401.00002\", \"score\": \"3.5\"}]\n```",
			want:  map[string]float64{"2401.00002": 3.5},
		},
		{
			name:  "brackets in prose before the list",
			reply: "Scores [below], following [1]:\n[{\"paper_id\": \"2401.00001\", \"score\": 4}] {done}",
			want:  map[string]float64{"2401.00001": 4},
		},
		{
			name:  "echoed with prefix and version",
			reply: `[{"paper_id": "arXiv:2401.00001v2", "score": 4}]`,
			want:  map[string]float64{"2401.00001": 4},
		},
		{
			name:  "malformed items skipped",
			reply: `[{"paper_id": "2401.00001"}, "junk", {"score": 3}, {"paper_id": "2401.00003", "score": 1.5}]`,
			want:  map[string]float64{"2401.00003": 1.5},
		},
		{
			name:  "unknown id kept for anomaly reporting",
			reply: `[{"paper_id": "9999.99999", "score": 4}]`,
			want:  map[string]float64{"9999.99999": 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseReply(tt.reply, w)
			require.NoError(t, err)
			got := make(map[string]float64, len(res))
			for id, s := range res {
				got[id] = s.Value
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReply_KeepsJustification(t *testing.T) {
	w := Window{IDs: []string{"a"}}
	res, err := ParseReply(`[{"paper_id":"a","score":4,"justification":"solid baseline"}]`, w)
	require.NoError(t, err)
	assert.Equal(t, "solid baseline", res["a"].Justification)
}

func TestParseReply_Errors(t *testing.T) {
	w := Window{Index: 1, IDs: []string{"a"}}
	for _, reply := range []string{
		"",
		"I cannot rank these papers.",
		`[{"paper_id": "a", "score": }]`,
		`{"note": "no list here"}`,
		`[]`,
	} {
		_, err := ParseReply(reply, w)
		var pe *ParseError
		require.True(t, errors.As(err, &pe), "reply %q: want ParseError, got %v", reply, err)
		assert.Equal(t, 1, pe.Window)
	}
}
