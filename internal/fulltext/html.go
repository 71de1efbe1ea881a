// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// arxivHTMLBase serves the LaTeXML rendering of arXiv papers. Package-level
// var for test substitution.
var arxivHTMLBase = "https://arxiv.org/html/"

const maxHTMLBytes = 32 << 20

// noiseSelectors are removed before text extraction: navigation, math
// annotations, bibliography and page chrome.
const noiseSelectors = "script, style, nav, header, footer, figure, .ltx_page_header, .ltx_page_footer, " +
	".ltx_bibliography, .ltx_authors, .ltx_dates, annotation, annotation-xml, .package-alerts, #header, #footer"

// bodySelectors locate the paper body, most specific first.
var bodySelectors = []string{"article.ltx_document", "article", "main", "#content", "body"}

// HTMLSource extracts text from the arXiv HTML rendering. When the LaTeXML
// structure is missing it falls back to readability extraction.
type HTMLSource struct {
	Client    *http.Client
	UserAgent string
}

func (s *HTMLSource) Name() string { return "html" }

// Fetch downloads the HTML rendering of p and returns its body text.
func (s *HTMLSource) Fetch(ctx context.Context, p types.Paper) (string, error) {
	pageURL := arxivHTMLBase + p.ID
	body, err := httputil.GetBody(ctx, s.Client, pageURL, s.UserAgent, maxHTMLBytes)
	if err != nil {
		return "", err
	}

	if text, err := selectBody(body); err == nil {
		return text, nil
	}
	return readable(body, pageURL)
}

// selectBody strips page noise with goquery and returns the text of the
// first matching body container.
func selectBody(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find(noiseSelectors).Remove()

	for _, sel := range bodySelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text, err := checkText(node.Text()); err == nil {
			return text, nil
		}
	}
	return "", ErrEmpty
}

// readable runs readability over the page as a last resort.
func readable(page []byte, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL %s: %w", pageURL, err)
	}
	article, err := readability.FromReader(bytes.NewReader(page), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return checkText(article.TextContent)
}
