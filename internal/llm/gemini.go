package llm

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/pavelanni/reviewer/internal/model"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend talks to the Gemini API through its file upload and
// content generation endpoints.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini backend. An empty apiKey returns ErrConfigMissing.
func NewGemini(ctx context.Context, apiKey, modelName string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, ErrConfigMissing
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiBackend{client: client, model: modelName}, nil
}

func (g *GeminiBackend) Name() string  { return "gemini" }
func (g *GeminiBackend) Model() string { return g.model }

// Upload sends the document to the file API and returns its URI.
func (g *GeminiBackend) Upload(ctx context.Context, doc model.Document) (Attachment, error) {
	f, err := g.client.Files.Upload(ctx, bytes.NewReader(doc.Data), &genai.UploadFileConfig{
		MIMEType:    doc.MediaType,
		DisplayName: string(doc.Kind) + "_" + doc.Filename,
	})
	if err != nil {
		return Attachment{}, err
	}
	mime := f.MIMEType
	if mime == "" {
		mime = doc.MediaType
	}
	return Attachment{Kind: doc.Kind, Name: doc.Filename, MIMEType: mime, URI: f.URI}, nil
}

func (g *GeminiBackend) contents(req Request) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, att := range req.Attachments {
		switch {
		case att.URI != "":
			parts = append(parts, genai.NewPartFromURI(att.URI, att.MIMEType))
		case len(att.Data) > 0:
			parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
		}
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (g *GeminiBackend) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(req.Temperature)}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// Stream yields the text of each streamed response chunk.
func (g *GeminiBackend) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, g.contents(req), g.config(req)) {
			if err != nil {
				yield("", err)
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// Generate makes a single non-streaming call.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, g.contents(req), g.config(req))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Ping looks up the configured model.
func (g *GeminiBackend) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("get model %s: %w", g.model, err)
	}
	return nil
}
