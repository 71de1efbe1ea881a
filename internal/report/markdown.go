// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Stats aggregates the promoted papers of a digest for the report header.
type Stats struct {
	Papers        int
	Categories    []CategoryCount
	UniqueAuthors int
	Earliest      string
	Latest        string
}

// CategoryCount is one row of the category histogram.
type CategoryCount struct {
	Name  string
	Count int
}

// Summarize computes Stats over papers.
func Summarize(papers []types.Paper) Stats {
	st := Stats{Papers: len(papers)}
	counts := make(map[string]int)
	authors := make(map[string]bool)
	for _, p := range papers {
		for _, c := range p.Categories {
			counts[c]++
		}
		for _, a := range p.Authors {
			authors[a] = true
		}
		if p.Published.IsZero() {
			continue
		}
		day := p.Published.UTC().Format("2006-01-02")
		if st.Earliest == "" || day < st.Earliest {
			st.Earliest = day
		}
		if day > st.Latest {
			st.Latest = day
		}
	}
	st.UniqueAuthors = len(authors)
	for name, n := range counts {
		st.Categories = append(st.Categories, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(st.Categories, func(i, j int) bool {
		if st.Categories[i].Count != st.Categories[j].Count {
			return st.Categories[i].Count > st.Categories[j].Count
		}
		return st.Categories[i].Name < st.Categories[j].Name
	})
	return st
}

var markdownFuncs = template.FuncMap{
	"join":  strings.Join,
	"date":  func(p types.Paper) string { return p.Published.UTC().Format("2006-01-02") },
	"score": formatScore,
	"inc":   func(i int) int { return i + 1 },
}

func formatScore(p types.Paper) string {
	if !p.Scored() {
		return "unscored"
	}
	return fmt.Sprintf("%.1f", p.Score())
}

var markdownTmpl = template.Must(template.New("digest").Funcs(markdownFuncs).Parse(
	`# arXiv digest {{.Summary.StartedAt.UTC.Format "2006-01-02"}}

Fetched {{.Summary.Fetched}} papers, promoted {{.Summary.Promoted}}{{if .Summary.Fallback}} (below threshold, top-k fallback){{end}}.
{{- if .Summary.NoPromotions}}
No paper cleared the promotion threshold; deep analysis was skipped.
{{- end}}
{{with .Stats}}{{if .Papers}}
Categories: {{range $i, $c := .Categories}}{{if $i}}, {{end}}{{$c.Name}} ({{$c.Count}}){{end}}. Unique authors: {{.UniqueAuthors}}.
{{end}}{{end}}
{{- range $i, $p := .Promoted}}
## {{inc $i}}. {{$p.Title}}

**Authors**: {{join $p.Authors ", "}}

**Categories**: {{join $p.Categories ", "}}

**Published**: {{date $p}}

**Link**: [{{$p.URL}}]({{$p.URL}})

**Score**: {{score $p}}{{if $p.FullTextDegraded}} (analyzed from abstract){{end}}

### Analysis

{{$p.Analysis}}

---
{{end}}
{{- if .Others}}
## Other papers

| Score | ID | Title |
|---|---|---|
{{- range .Others}}
| {{score .}} | {{.ID}} | {{.Title}} |
{{- end}}
{{end}}`))

func renderMarkdown(d types.Digest) ([]byte, error) {
	promoted := d.PromotedPapers()
	var others []types.Paper
	for _, p := range d.Papers {
		if !p.Promoted {
			others = append(others, p)
		}
	}
	data := struct {
		Summary  types.RunSummary
		Stats    Stats
		Promoted []types.Paper
		Others   []types.Paper
	}{d.Summary, Summarize(promoted), promoted, others}

	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
