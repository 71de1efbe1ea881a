// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes assembled digests to disk.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Sink receives the assembled digest of a run.
type Sink interface {
	Write(ctx context.Context, d types.Digest) ([]string, error)
}

// FileSink writes one file per configured format into Dir.
type FileSink struct {
	Dir     string
	Formats []string
}

// NewFileSink builds a sink from the report configuration. An empty format
// list writes YAML.
func NewFileSink(cfg types.ReportConfig) *FileSink {
	formats := cfg.Formats
	if len(formats) == 0 {
		formats = []string{"yaml"}
	}
	return &FileSink{Dir: cfg.OutputDir, Formats: formats}
}

var extensions = map[string]string{
	"yaml":     ".yaml",
	"json":     ".json",
	"markdown": ".md",
}

// Write renders d in every format and returns the written paths. Files are
// named digest-<date>-<run prefix> so repeated runs on one day never collide.
func (s *FileSink) Write(ctx context.Context, d types.Digest) ([]string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory %s: %w", s.Dir, err)
	}

	base := baseName(d.Summary)
	var paths []string
	for _, f := range s.Formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		format := strings.ToLower(f)
		ext, ok := extensions[format]
		if !ok {
			return paths, fmt.Errorf("unknown report format %q", f)
		}
		data, err := Render(format, d)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(s.Dir, base+ext)
		if err := writeAtomic(path, data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func baseName(s types.RunSummary) string {
	id := s.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	name := "digest-" + s.StartedAt.UTC().Format("2006-01-02")
	if id != "" {
		name += "-" + id
	}
	return name
}

// Render encodes d in the named format.
func Render(format string, d types.Digest) ([]byte, error) {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	case "json":
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return data, nil
	case "markdown":
		return renderMarkdown(d)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
