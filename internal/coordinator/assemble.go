// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coordinator

import (
	"fmt"

	"github.com/pdiddy/paper-digest/internal/analyze"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Placeholders stored in place of analysis text that never arrived.
const (
	PlaceholderUnavailable = "[Analysis unavailable: the model reply had no section for this paper.]"
	placeholderErrorFormat = "[Analysis failed: %s error.]"
)

// Assemble merges stage results onto papers, which must be in input order
// with promotion already marked. promoted carries the post-fetch copies of
// the promoted papers; outcomes maps their ids to analysis outcomes. The
// result has the same length, order and ids as papers, and every record
// ends in StatusAssembled.
func Assemble(papers, promoted []types.Paper, outcomes map[string]types.Outcome) []types.Paper {
	fetched := make(map[string]types.Paper, len(promoted))
	for _, p := range promoted {
		fetched[p.ID] = p
	}

	out := make([]types.Paper, len(papers))
	for i, p := range papers {
		if p.Promoted {
			if f, ok := fetched[p.ID]; ok {
				p.FullText = f.FullText
				p.FullTextDegraded = f.FullTextDegraded
			}
			o, ok := outcomes[p.ID]
			if !ok {
				o = types.Unavailable()
			}
			p.Outcome = &o
			p.Analysis = AnalysisText(o)
			if o.OK() {
				p.HTMLAnalysis = analyze.RenderHTML(o.Text)
			} else {
				p.HTMLAnalysis = analyze.RenderHTML(p.Analysis)
			}
		}
		p.Status = types.StatusAssembled
		out[i] = p
	}
	return out
}

// AnalysisText returns the text to show for o: the analysis itself or a
// clearly marked placeholder, never an empty string.
func AnalysisText(o types.Outcome) string {
	switch o.Kind {
	case types.OutcomeSuccess:
		if o.Text != "" {
			return o.Text
		}
		return PlaceholderUnavailable
	case types.OutcomeError:
		kind := o.ErrorKind
		if kind == "" {
			kind = analyze.KindUnknown
		}
		return fmt.Sprintf(placeholderErrorFormat, kind)
	default:
		return PlaceholderUnavailable
	}
}
