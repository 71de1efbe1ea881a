// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/paper-digest/internal/analyze"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var promptFuncs = template.FuncMap{
	"json": func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	},
	"oneline": func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	},
}

// rankingSystemPrompt asks for a relative ranking with a forced score
// distribution so overlapping windows stay comparable.
const rankingSystemPrompt = `You are an expert reviewer of machine learning papers. Rank the batch of papers you are given by relative quality.

Rules:
1. Compare the papers against each other for novelty, significance and likely impact.
2. Assign scores from 1.0 to 5.0 following this distribution within the batch:
   - top 10%: 4.5-5.0 (breakthrough work)
   - next 20%: 3.5-4.4 (important and interesting)
   - middle 40%: 2.5-3.4 (solid incremental contribution)
   - bottom 30%: 1.0-2.4 (minor, limited impact or flawed)
3. Reply with a JSON list only. Each element has "paper_id" (exactly as given), "score" and a one-sentence "justification". Do not write anything outside the JSON.

Example:
[
  {"paper_id": "2401.00001", "score": 4.8, "justification": "New method that settles a long-standing problem."},
  {"paper_id": "2401.00005", "score": 3.2, "justification": "Solid incremental work with good experiments."},
  {"paper_id": "2401.00003", "score": 1.8, "justification": "Flawed evaluation and little novelty."}
]`

var rankingUserTmpl = template.Must(template.New("ranking").Funcs(promptFuncs).Parse(
	`Rank the following papers according to the rules in the system prompt. Papers:
[
{{- range $i, $p := .}}{{if $i}},{{end}}
  {"paper_id": {{json $p.ID}}, "title": {{json (oneline $p.Title)}}, "abstract": {{json (oneline $p.Abstract)}}}
{{- end}}
]
`))

// dimensionWords sets how long each analysis dimension should be.
var dimensionWords = map[types.AnalysisType]string{
	types.AnalysisQuick:         "40-60",
	types.AnalysisComprehensive: "100-120",
	types.AnalysisDetailed:      "180-220",
}

var analysisSystemTmpl = template.Must(template.New("analysis-system").Parse(
	`You are a strict reviewer of AI research papers.

Star ratings (enforced distribution: 5 stars <1%, 4 stars <5%, 3 stars 35-45%, 2 stars 35-45%, 1 star 10-15%):
5 stars: a breakthrough that opens a new technical direction, with rigorous experiments.
4 stars: a significant advance with clear innovation and convincing experiments.
3 stars: competent research, incremental improvement, reasonable experiments.
2 stars: limited novelty or insufficient experiments.
1 star: lacks novelty or has serious experimental flaws.
Routine incremental work gets at most 3 stars; hyperparameter tuning or small architecture tweaks at most 2.

For every paper write six dimensions in this order, each {{.Words}} words, each starting with its emoji:
1. ⭐ Quality Assessment: a 1-5 star rating (0.5 steps allowed) with reasons.
2. 🎯 Core Contribution: the main innovation and how it differs from prior work.
3. 🔧 Technical Approach: the core algorithm or architecture and its key details.
4. 🧪 Experimental Validation: experimental design, datasets, baselines and credibility of results.
5. 💡 Impact: potential academic and industrial impact.
6. 🔮 Limitations and Outlook: main limitations and directions for future work.

Formatting: plain paragraphs, **bold** or *italic* allowed, no headings or bullet lists inside a dimension.`))

var analysisUserTmpl = template.Must(template.New("analysis-user").Parse(
	`Provide the full six-dimension analysis for each paper below. When full text is given, base the analysis on it.
Start each paper's analysis with the line "**Paper ID**: <id>" using the id exactly as given, and separate papers with a line containing only "---".
{{range .Items}}
---
**Paper ID**: {{.ID}}
**Title**: {{.Title}}
**{{if .FullText}}Full Text{{else}}Abstract{{end}}**:
{{.Text}}
{{end}}---
`))

// renderRankingPrompt builds the user prompt for one ranking window.
func renderRankingPrompt(papers []types.Paper) (string, error) {
	return render(rankingUserTmpl, papers)
}

// renderAnalysisPrompts builds the system and user prompts for one batch.
func renderAnalysisPrompts(b analyze.Batch, t types.AnalysisType) (string, string, error) {
	words, ok := dimensionWords[t]
	if !ok {
		return "", "", fmt.Errorf("unknown analysis type %q", t)
	}
	system, err := render(analysisSystemTmpl, struct{ Words string }{words})
	if err != nil {
		return "", "", err
	}
	user, err := render(analysisUserTmpl, b)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
