// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Parsed is the per-paper split of one batch reply.
type Parsed struct {
	// Outcomes holds exactly one entry per requested id.
	Outcomes map[string]types.Outcome
	// Anomalies records duplicate markers and similar oddities.
	Anomalies []string
}

// markerPattern builds the regexp matching a "Paper ID: <id>" line for any of
// ids. The label tolerates Markdown emphasis, a heading or list prefix and
// any case; the id may be bracketed, prefixed with "arXiv:" or carry a
// version suffix. The whole marker line is consumed.
func markerPattern(ids []string) *regexp.Regexp {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, regexp.QuoteMeta(id))
	}
	// Longest first so an id that prefixes another never wins the alternation.
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })

	const (
		lead  = `^[ \t>]*(?:#{1,6}[ \t]*)?(?:(?:\*{1,3}|_{1,3})?(?:\d+[.)]|[-+])[ \t]+)?`
		emph  = `(?:\*{1,3}|_{1,3})?`
		label = `paper[ \t]*id`
	)
	expr := `(?im)` + lead + emph + label + emph + `[ \t]*[:：]` + emph + `[ \t]*[\[(]?` +
		`(?:arxiv:)?(` + strings.Join(quoted, "|") + `)(?:v\d+)?` +
		`(?:[^\w\n][^\n]*)?$`
	return regexp.MustCompile(expr)
}

// Parse splits reply into outcomes for ids. Segment k runs from the end of
// marker k to the start of marker k+1 (or the end of the reply); text before
// the first marker is discarded. Ids whose marker never appears, or whose
// segment is empty, are Unavailable. When an id is marked twice the first
// segment wins. Parse never fails: the worst case is all Unavailable.
func Parse(reply string, ids []string) Parsed {
	parsed := Parsed{Outcomes: make(map[string]types.Outcome, len(ids))}
	for _, id := range ids {
		parsed.Outcomes[id] = types.Unavailable()
	}
	if len(ids) == 0 || strings.TrimSpace(reply) == "" {
		return parsed
	}

	resolve := idResolver(ids)
	re := markerPattern(ids)
	matches := re.FindAllStringSubmatchIndex(reply, -1)

	seen := make(map[string]bool, len(ids))
	for k, m := range matches {
		end := len(reply)
		if k+1 < len(matches) {
			end = matches[k+1][0]
		}

		raw := reply[m[2]:m[3]]
		id, ok := resolve(raw)
		if !ok {
			parsed.Anomalies = append(parsed.Anomalies, fmt.Sprintf("marker %q matches several ids by case only, ignored", raw))
			continue
		}

		if seen[id] {
			parsed.Anomalies = append(parsed.Anomalies, fmt.Sprintf("duplicate marker for %s ignored", id))
			continue
		}
		seen[id] = true

		text := cleanSegment(reply[m[1]:end])
		if text == "" {
			parsed.Anomalies = append(parsed.Anomalies, fmt.Sprintf("empty segment for %s", id))
			continue
		}
		parsed.Outcomes[id] = types.Success(text)
	}
	return parsed
}

// idResolver maps marker text back to a requested id. An exact match wins;
// a case-insensitive match is accepted only when a single requested id has
// that lowercase form, so ids differing only in case never share a segment.
func idResolver(ids []string) func(string) (string, bool) {
	exact := make(map[string]bool, len(ids))
	folded := make(map[string][]string, len(ids))
	for _, id := range ids {
		exact[id] = true
		key := strings.ToLower(id)
		folded[key] = append(folded[key], id)
	}
	return func(s string) (string, bool) {
		if exact[s] {
			return s, true
		}
		if c := folded[strings.ToLower(s)]; len(c) == 1 {
			return c[0], true
		}
		return "", false
	}
}

// ruleLine matches a Markdown horizontal rule.
var ruleLine = regexp.MustCompile(`^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)

// cleanSegment trims a segment and strips horizontal rules at either end,
// which the batch prompt uses as paper separators.
func cleanSegment(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for len(lines) > 0 && (ruleLine.MatchString(lines[0]) || strings.TrimSpace(lines[0]) == "") {
		lines = lines[1:]
	}
	for len(lines) > 0 && (ruleLine.MatchString(lines[len(lines)-1]) || strings.TrimSpace(lines[len(lines)-1]) == "") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
