// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-digest/internal/container"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// ResultKind labels how a paper's text was obtained.
type ResultKind string

const (
	ResultFetched  ResultKind = "fetched"
	ResultCached   ResultKind = "cached"
	ResultDegraded ResultKind = "degraded"
)

// Result is the retrieval outcome for one paper. On ResultDegraded Text is
// empty and Err holds the cause.
type Result struct {
	ID   string
	Kind ResultKind
	Text string
	Err  error
}

// Summary counts results by kind.
type Summary struct {
	Fetched  int
	Cached   int
	Degraded int
}

// Total returns the number of papers processed.
func (s Summary) Total() int { return s.Fetched + s.Cached + s.Degraded }

// HasFailures reports whether any paper fell back to its abstract.
func (s Summary) HasFailures() bool { return s.Degraded > 0 }

// Summarize counts results by kind.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Kind {
		case ResultFetched:
			s.Fetched++
		case ResultCached:
			s.Cached++
		default:
			s.Degraded++
		}
	}
	return s
}

// Fetcher retrieves full text for promoted papers through Source, consulting
// Cache first.
type Fetcher struct {
	Source   Source
	Cache    Cache
	MaxChars int
	Workers  int
	Log      zerolog.Logger
}

// NewFetcher builds the configured source chain. The PDF source is included
// only when a container runtime with the pdftotext image is available;
// otherwise it is skipped with a warning.
func NewFetcher(cfg types.FetchConfig, log zerolog.Logger) *Fetcher {
	client := &http.Client{Timeout: cfg.Timeout}
	var chain ChainSource
	for _, name := range cfg.Sources {
		switch strings.ToLower(name) {
		case "html":
			chain = append(chain, &HTMLSource{Client: client, UserAgent: cfg.UserAgent})
		case "pdf":
			ext, err := pdfExtractor(cfg.PDFImage)
			if err != nil {
				log.Warn().Err(err).Msg("pdf full-text source disabled")
				continue
			}
			chain = append(chain, &PDFSource{Client: client, UserAgent: cfg.UserAgent, Extractor: ext})
		}
	}
	return &Fetcher{
		Source:   chain,
		Cache:    Cache{Dir: cfg.CacheDir},
		MaxChars: cfg.MaxChars,
		Log:      log,
	}
}

func pdfExtractor(image string) (Extractor, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, err
	}
	return NewPdftotextExtractor(rt, image)
}

// FetchAll retrieves text for every paper using a bounded pool. Results are
// returned in input order; a failure degrades only that paper.
func (f *Fetcher) FetchAll(ctx context.Context, papers []types.Paper) []Result {
	workers := f.Workers
	if workers <= 0 {
		workers = types.DeriveWorkers(len(papers))
	}
	f.Log.Info().Int("papers", len(papers)).Int("workers", workers).Msg("fetching full text")

	results := make([]Result, len(papers))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range papers {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	s := Summarize(results)
	f.Log.Info().Int("fetched", s.Fetched).Int("cached", s.Cached).
		Int("degraded", s.Degraded).Msg("full text done")
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, p types.Paper) Result {
	plog := f.Log.With().Str("paper_id", p.ID).Logger()

	if text, ok, err := f.Cache.Get(p.ID); err != nil {
		plog.Warn().Err(err).Msg("cache read failed")
	} else if ok {
		return Result{ID: p.ID, Kind: ResultCached, Text: f.clip(text)}
	}

	if f.Source == nil {
		return Result{ID: p.ID, Kind: ResultDegraded, Err: fmt.Errorf("no full-text source")}
	}
	text, err := f.Source.Fetch(ctx, p)
	if err != nil {
		plog.Warn().Err(err).Msg("full text unavailable, using abstract")
		return Result{ID: p.ID, Kind: ResultDegraded, Err: err}
	}

	text = f.clip(normalizeWhitespace(text))
	if err := f.Cache.Put(p.ID, text); err != nil {
		plog.Warn().Err(err).Msg("cache write failed")
	}
	plog.Debug().Int("chars", len(text)).Msg("full text fetched")
	return Result{ID: p.ID, Kind: ResultFetched, Text: text}
}

// clip truncates text to MaxChars runes.
func (f *Fetcher) clip(text string) string {
	if f.MaxChars <= 0 || utf8.RuneCountInString(text) <= f.MaxChars {
		return text
	}
	return string([]rune(text)[:f.MaxChars])
}

// Apply copies results onto papers by id. Degraded papers keep their
// abstract as analysis input and are flagged.
func Apply(papers []types.Paper, results []Result) []types.Paper {
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}
	out := make([]types.Paper, len(papers))
	for i, p := range papers {
		if r, ok := byID[p.ID]; ok {
			if r.Kind == ResultDegraded {
				p.FullText = ""
				p.FullTextDegraded = true
				p.Status = types.StatusFullTextFailed
			} else {
				p.FullText = r.Text
				p.FullTextDegraded = false
				p.Status = types.StatusFullTextFetched
			}
		}
		out[i] = p
	}
	return out
}
