// Package gemini normalizes raw OCR text through Vertex AI. The model only
// ever sees the document body; headers and footers are reattached verbatim
// by the caller, and oversized bodies are sent in marker-aligned chunks.
package gemini

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"docmill/internal/config"
	"docmill/internal/services"
	"docmill/internal/textdoc"
)

const systemPrompt = `You are correcting OCR output for a legal document. Your task is to:
1. Fix OCR errors and preserve legal terminology
2. CRITICAL: Preserve ALL page markers EXACTLY as they appear: '[BEGIN PDF Page N]' with blank lines before and after
3. NEVER remove or modify page markers, especially [BEGIN PDF Page 1] - it MUST be preserved
4. NEVER move page markers - they must stay at the START of each page's content
5. Format with lines under 65 characters and proper paragraph breaks
6. Return only the corrected text with ALL page markers in their ORIGINAL positions`

// Formatter cleans document bodies with a generative model.
type Formatter struct {
	model      generativeModel
	client     *genai.Client
	chunkPages int
	timeout    time.Duration
}

// generativeModel is the narrow slice of the genai model the formatter
// uses, swappable for tests.
type generativeModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// New connects to Vertex AI and configures the formatting model.
func New(ctx context.Context, cfg *config.Config) (*Formatter, error) {
	if cfg.Gemini.ProjectID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "format", "gemini", "gemini.project_id is required", nil)
	}
	client, err := genai.NewClient(ctx, cfg.Gemini.ProjectID, cfg.Gemini.Location)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "format", "gemini", "create client", err)
	}

	model := client.GenerativeModel(cfg.Gemini.Model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr(float32(cfg.Gemini.Temperature)),
		MaxOutputTokens: genai.Ptr(int32(cfg.Gemini.MaxOutputTokens)),
	}

	return &Formatter{
		model:      model,
		client:     client,
		chunkPages: cfg.Gemini.ChunkPages,
		timeout:    time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
	}, nil
}

// Close releases the underlying connection.
func (f *Formatter) Close() error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// FormatBody runs the body through the model, chunking on marker boundaries
// when the page count exceeds the configured limit, and rejoins the cleaned
// chunks. Markers must survive the round trip; a response that lost them is
// an API failure, not a formatting choice.
func (f *Formatter) FormatBody(ctx context.Context, body string) (string, error) {
	chunks := textdoc.ChunkByMarkers(body, f.chunkPages)
	cleaned := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out, err := f.formatChunk(ctx, chunk)
		if err != nil {
			return "", err
		}
		if textdoc.CountMarkers(out) < textdoc.CountMarkers(chunk) {
			return "", services.Wrap(services.ErrAPI, "format", "gemini", "model response dropped page markers", nil)
		}
		cleaned = append(cleaned, out)
	}
	return strings.Join(cleaned, "\n\n"), nil
}

func (f *Formatter) formatChunk(ctx context.Context, chunk string) (string, error) {
	callCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.model.GenerateContent(callCtx, genai.Text(chunk))
	if err != nil {
		return "", services.Wrap(services.ErrAPI, "format", "gemini", "generate content", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", services.Wrap(services.ErrAPI, "format", "gemini", "empty model response", nil)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
