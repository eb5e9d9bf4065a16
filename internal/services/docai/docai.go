// Package docai extracts per-page text from cleaned PDFs through Google
// Document AI, falling back to the PDF's embedded text layer for files above
// the API payload limit.
package docai

import (
	"context"
	"fmt"
	"os"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"docmill/internal/config"
	"docmill/internal/pdftext"
	"docmill/internal/services"
)

// Client wraps one Document AI processor.
type Client struct {
	client       *documentai.DocumentProcessorClient
	name         string
	payloadLimit int64
	timeout      time.Duration

	// process is swappable for tests.
	process func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.Document, error)
}

// New connects to the regional Document AI endpoint using ambient
// credentials.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.DocAI.ProjectID == "" || cfg.DocAI.ProcessorID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "convert", "docai", "docai.project_id and docai.processor_id are required", nil)
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.DocAI.Location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "convert", "docai", "create client", err)
	}

	c := &Client{
		client: client,
		name: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			cfg.DocAI.ProjectID, cfg.DocAI.Location, cfg.DocAI.ProcessorID),
		payloadLimit: int64(cfg.DocAI.PayloadLimitMB) * 1024 * 1024,
		timeout:      time.Duration(cfg.DocAI.TimeoutSeconds) * time.Second,
	}
	c.process = func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.Document, error) {
		resp, err := client.ProcessDocument(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp.GetDocument(), nil
	}
	return c, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ExtractPages OCR-extracts the text of every page, in page order. Files at
// or above the payload limit never reach the API; their embedded text layer
// (already present after cleaning) is read locally instead.
func (c *Client) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "convert", "docai", "stat "+pdfPath, err)
	}
	if c.payloadLimit > 0 && info.Size() >= c.payloadLimit {
		return pdftext.ExtractPages(ctx, pdfPath)
	}

	content, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "convert", "docai", "read "+pdfPath, err)
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	doc, err := c.process(callCtx, &documentaipb.ProcessRequest{
		Name: c.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: "application/pdf",
			},
		},
		SkipHumanReview: true,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrAPI, "convert", "docai", "process "+pdfPath, err)
	}
	return pagesFromDocument(doc), nil
}

// pagesFromDocument slices the document's full text by each page's layout
// anchor. Pages without an anchor yield empty strings so indexes line up
// with physical pages.
func pagesFromDocument(doc *documentaipb.Document) []string {
	if doc == nil {
		return nil
	}
	text := doc.GetText()
	pages := make([]string, 0, len(doc.GetPages()))
	for _, page := range doc.GetPages() {
		pages = append(pages, anchorText(text, page.GetLayout().GetTextAnchor()))
	}
	return pages
}

func anchorText(text string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil {
		return ""
	}
	var out string
	for _, segment := range anchor.GetTextSegments() {
		start, end := segment.GetStartIndex(), segment.GetEndIndex()
		if start < 0 || end < start || end > int64(len(text)) {
			continue
		}
		out += text[start:end]
	}
	return out
}
