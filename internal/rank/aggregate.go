// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"sort"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Aggregate merges window results into one score per paper: the maximum over
// every window that scored it. Papers no window scored are absent. Reports
// are visited in window order so the justification kept on ties is the
// earliest window's.
func Aggregate(reports []WindowReport) map[string]Score {
	best := make(map[string]Score)
	for _, r := range reports {
		if r.Failed() {
			continue
		}
		ids := make([]string, 0, len(r.Result))
		for id := range r.Result {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			s := r.Result[id]
			if cur, ok := best[id]; !ok || s.Value > cur.Value {
				best[id] = s
			}
		}
	}
	return best
}

// Apply returns a copy of papers with Stage1Score and status set from scores.
// Every paper is at least windowed; scored ones move to StatusScored.
func Apply(papers []types.Paper, scores map[string]Score) []types.Paper {
	out := make([]types.Paper, len(papers))
	for i, p := range papers {
		p.Status = types.StatusWindowed
		if s, ok := scores[p.ID]; ok {
			v := s.Value
			p.Stage1Score = &v
			p.Justification = s.Justification
			p.Status = types.StatusScored
		}
		out[i] = p
	}
	return out
}

// Order sorts papers for promotion: descending score, unscored last, ties
// kept in input order.
func Order(papers []types.Paper) []types.Paper {
	out := make([]types.Paper, len(papers))
	copy(out, papers)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Scored() != b.Scored() {
			return a.Scored()
		}
		return a.Score() > b.Score()
	})
	return out
}
