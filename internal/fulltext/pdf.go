// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/paper-digest/internal/container"
	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// arxivPDFBase is used when a paper carries no PDF link. Package-level var
// for test substitution.
var arxivPDFBase = "https://arxiv.org/pdf/"

const maxPDFBytes = 64 << 20

var pdfMagic = []byte("%PDF-")

// Extractor turns PDF bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, pdf io.Reader) (string, error)
}

// PDFSource downloads the paper PDF and hands it to an Extractor.
type PDFSource struct {
	Client    *http.Client
	UserAgent string
	Extractor Extractor
}

func (s *PDFSource) Name() string { return "pdf" }

// Fetch downloads the PDF of p and extracts its text.
func (s *PDFSource) Fetch(ctx context.Context, p types.Paper) (string, error) {
	pdfURL := p.PDFURL
	if pdfURL == "" {
		pdfURL = arxivPDFBase + p.ID
	}
	data, err := httputil.GetBody(ctx, s.Client, pdfURL, s.UserAgent, maxPDFBytes)
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", fmt.Errorf("%s did not return a PDF", pdfURL)
	}

	text, err := s.Extractor.Extract(ctx, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", p.ID, err)
	}
	return checkText(text)
}

// pdftotextArgs make the image's pdftotext entrypoint read stdin and write
// UTF-8 text to stdout.
var pdftotextArgs = []string{"-enc", "UTF-8", "-nopgbrk", "-", "-"}

// PdftotextExtractor runs pdftotext inside a container image.
type PdftotextExtractor struct {
	runtime container.Runtime
	image   string
}

// NewPdftotextExtractor checks that image exists in rt before returning.
func NewPdftotextExtractor(rt container.Runtime, image string) (*PdftotextExtractor, error) {
	if image == "" {
		return nil, errors.New("no pdftotext image configured")
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("pdftotext image not available in %s: %w", rt.Name(), err)
	}
	return &PdftotextExtractor{runtime: rt, image: image}, nil
}

// Extract pipes pdf through the container and returns its stdout.
func (e *PdftotextExtractor) Extract(ctx context.Context, pdf io.Reader) (string, error) {
	var out bytes.Buffer
	if err := e.runtime.Run(ctx, e.image, pdftotextArgs, pdf, &out); err != nil {
		return "", err
	}
	if out.Len() == 0 {
		return "", ErrEmpty
	}
	return out.String(), nil
}
