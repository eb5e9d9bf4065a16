// Package pdftext reads page counts and text layers out of PDFs on disk. It
// backs both the convert stage's local-extraction fallback and the
// verification engine's page sampling.
package pdftext

import (
	"context"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/wudi/pdfkit/extractor"
	"github.com/wudi/pdfkit/ir"

	"docmill/internal/services"
)

// Inspector adapts the package functions to the verification engine's
// inspector interface.
type Inspector struct{}

func (Inspector) PageCount(path string) (int, error) { return PageCount(path) }

func (Inspector) PageText(ctx context.Context, path string, page int) (string, error) {
	return ExtractPage(ctx, path, page)
}

// PageCount returns the number of pages in a PDF file.
func PageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "pdftext", "page_count", path, err)
	}
	return count, nil
}

// ExtractPages parses the PDF and returns the text layer of every page in
// order. A page without a text layer yields an empty string at its index, so
// the slice length always equals the page count the parser saw.
func ExtractPages(ctx context.Context, path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pdftext", "extract", "open "+path, err)
	}
	defer file.Close()

	pipe := ir.NewDefault()
	doc, err := pipe.Parse(ctx, file)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pdftext", "extract", "parse "+path, err)
	}
	decoded := doc.Decoded()
	if decoded == nil {
		return nil, services.Wrap(services.ErrValidation, "pdftext", "extract", "no decoded document for "+path, nil)
	}

	ext, err := extractor.New(decoded)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pdftext", "extract", "init extractor", err)
	}
	pages, err := ext.ExtractText()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "pdftext", "extract", "extract text", err)
	}

	maxIndex := -1
	for _, page := range pages {
		if page.Page > maxIndex {
			maxIndex = page.Page
		}
	}
	texts := make([]string, maxIndex+1)
	for _, page := range pages {
		if page.Page >= 0 {
			texts[page.Page] = page.Content
		}
	}
	return texts, nil
}

// ExtractPage returns the text layer of one 1-based page. Pages outside the
// document come back empty rather than failing, since a sampled boundary page
// may legitimately be absent after a miscount.
func ExtractPage(ctx context.Context, path string, page int) (string, error) {
	texts, err := ExtractPages(ctx, path)
	if err != nil {
		return "", err
	}
	if page < 1 || page > len(texts) {
		return "", nil
	}
	return texts[page-1], nil
}
