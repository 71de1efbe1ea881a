// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const (
	pageSize     = 100
	maxFeedBytes = 16 << 20
)

// ArxivSource lists recent submissions in a set of categories, newest first.
type ArxivSource struct {
	Client *http.Client
	Config types.SourceConfig
	Log    zerolog.Logger

	// Now is the clock used to compute the date range; nil means time.Now.
	Now func() time.Time

	limiter *rate.Limiter
}

// NewArxivSource creates a source that spaces API calls by
// cfg.RequestInterval, as arXiv asks of API clients.
func NewArxivSource(cfg types.SourceConfig, log zerolog.Logger) *ArxivSource {
	return &ArxivSource{
		Client:  &http.Client{Timeout: cfg.Timeout},
		Config:  cfg,
		Log:     log,
		limiter: newLimiter(cfg.RequestInterval),
	}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (s *ArxivSource) Name() string { return "arxiv" }

// Fetch pages through the query until MaxPapers entries are collected or
// the feed runs out, then applies the keyword filter.
func (s *ArxivSource) Fetch(ctx context.Context) ([]types.Paper, error) {
	if len(s.Config.Categories) == 0 {
		return nil, &types.ConfigError{Field: "source.categories", Reason: "at least one category is required"}
	}
	if s.limiter == nil {
		s.limiter = newLimiter(s.Config.RequestInterval)
	}
	limit := s.Config.MaxPapers
	if limit <= 0 {
		limit = 50
	}

	query := buildQuery(s.Config.Categories, s.Config.SearchDays, s.now())
	s.Log.Info().Str("query", query).Int("max_papers", limit).Msg("querying arXiv")

	var papers []types.Paper
	seen := make(map[string]bool)
	for start := 0; len(papers) < limit; start += pageSize {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		n := min(pageSize, limit-len(papers))
		entries, err := s.page(ctx, query, start, n)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p, ok := e.paper()
			if !ok || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			papers = append(papers, p)
			if len(papers) == limit {
				break
			}
		}
		if len(entries) < n {
			break
		}
	}

	filtered := FilterKeywords(papers, s.Config.Keywords)
	s.Log.Info().Int("fetched", len(papers)).Int("kept", len(filtered)).Msg("arXiv candidates")
	return filtered, nil
}

func (s *ArxivSource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ArxivSource) page(ctx context.Context, query string, start, n int) ([]arxivEntry, error) {
	v := url.Values{}
	v.Set("search_query", query)
	v.Set("start", fmt.Sprint(start))
	v.Set("max_results", fmt.Sprint(n))
	v.Set("sortBy", "submittedDate")
	v.Set("sortOrder", "descending")

	data, err := httputil.GetBody(ctx, s.Client, arxivAPIBase+"?"+v.Encode(), s.Config.UserAgent, maxFeedBytes)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	var feed arxivFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	return feed.Entries, nil
}

// buildQuery returns "(cat:a OR cat:b) AND submittedDate:[from TO to]" for
// the last days days ending at now (UTC).
func buildQuery(categories []string, days int, now time.Time) string {
	if days <= 0 {
		days = 2
	}
	now = now.UTC()
	from := now.AddDate(0, 0, -days)

	cats := make([]string, len(categories))
	for i, c := range categories {
		cats[i] = "cat:" + strings.TrimSpace(c)
	}
	return fmt.Sprintf("(%s) AND submittedDate:[%s000000 TO %s235959]",
		strings.Join(cats, " OR "), from.Format("20060102"), now.Format("20060102"))
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Primary    arxivCategory   `xml:"primary_category"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

func (e arxivEntry) paper() (types.Paper, bool) {
	id := ExtractID(e.ID)
	if id == "" {
		return types.Paper{}, false
	}
	p := types.Paper{
		ID:       id,
		Title:    collapse(e.Title),
		Abstract: collapse(e.Summary),
		URL:      strings.TrimSpace(e.ID),
		Status:   types.StatusFetched,
	}
	for _, a := range e.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}
	if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
		p.Published = t
	}
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFURL = l.Href
		}
	}
	if e.Primary.Term != "" {
		p.Categories = append(p.Categories, e.Primary.Term)
	}
	for _, c := range e.Categories {
		if c.Term != "" && c.Term != e.Primary.Term {
			p.Categories = append(p.Categories, c.Term)
		}
	}
	return p, true
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

var versionSuffix = regexp.MustCompile(`v\d+$`)

// ExtractID pulls the versionless arXiv id from an abstract URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" gives "2301.07041").
func ExtractID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])
	return versionSuffix.ReplaceAllString(id, "")
}
