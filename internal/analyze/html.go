// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// dimension is one section of an analysis, introduced by its emoji.
type dimension struct {
	emoji string
	icon  string
}

// dimensions lists the analysis sections in prompt order.
var dimensions = []dimension{
	{"⭐", "star"},
	{"🎯", "bullseye"},
	{"🔧", "wrench"},
	{"🧪", "beaker"},
	{"💡", "lightbulb"},
	{"🔮", "crystal-ball"},
}

var (
	dimensionSplit = regexp.MustCompile(`⭐|🎯|🔧|🧪|💡|🔮`)
	boldText       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicText     = regexp.MustCompile(`\*(.+?)\*`)
	// trailingLead matches a "**2. " list prefix left before the next emoji.
	trailingLead   = regexp.MustCompile(`(?:^|\n)[ \t]*[*_#]*[ \t]*(?:\d+[.)])?[ \t]*[*_]*[ \t]*$`)
)

// RenderHTML converts analysis text into an HTML fragment. Each emoji-led
// dimension becomes an analysis-dimension block whose heading is its first
// line up to a colon; bold and italic Markdown are converted and newlines become
// <br>. Text without any dimension falls back to one escaped paragraph.
func RenderHTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return "<p>AI analysis not available.</p>"
	}

	locs := dimensionSplit.FindAllStringIndex(text, -1)
	var b strings.Builder
	for k, loc := range locs {
		end := len(text)
		if k+1 < len(locs) {
			end = locs[k+1][0]
		}
		emoji := text[loc[0]:loc[1]]
		segment := trailingLead.ReplaceAllString(text[loc[1]:end], "")
		head, body, _ := strings.Cut(strings.TrimSpace(segment), "\n")
		if i := strings.IndexAny(head, ":："); i >= 0 {
			_, size := utf8.DecodeRuneInString(head[i:])
			body = strings.TrimSpace(head[i+size:]+"\n"+body)
			head = head[:i]
		}
		title := strings.Trim(strings.TrimSpace(head), "*_ \ufe0f")
		if title == "" {
			continue
		}

		fmt.Fprintf(&b, `<div class="analysis-dimension"><div class="dimension-title"><i class="fas fa-%s"></i><h4>%s</h4></div><p>%s</p></div>`,
			iconFor(emoji), html.EscapeString(title), formatInline(strings.TrimSpace(body)))
	}

	if b.Len() == 0 {
		return "<p>" + html.EscapeString(text) + "</p>"
	}
	return `<div class="ai-analysis-container">` + b.String() + `</div>`
}

func iconFor(emoji string) string {
	for _, d := range dimensions {
		if d.emoji == emoji {
			return d.icon
		}
	}
	return "circle"
}

// formatInline escapes s and converts **bold**, *italic* and newlines.
func formatInline(s string) string {
	s = html.EscapeString(s)
	s = boldText.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicText.ReplaceAllString(s, "<em>$1</em>")
	return strings.ReplaceAll(s, "\n", "<br>")
}
