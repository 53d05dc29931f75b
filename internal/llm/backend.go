package llm

import (
	"context"
	"iter"

	"github.com/pavelanni/reviewer/internal/model"
)

// Attachment is a document prepared for a model request. Backends with a
// file API fill URI; others carry the payload inline in Data.
type Attachment struct {
	Kind     model.DocumentKind
	Name     string
	MIMEType string
	URI      string
	Data     []byte
}

// Request is a single-turn model request.
type Request struct {
	Prompt      string
	Attachments []Attachment
	Temperature float32
	JSON        bool
}

// Backend is a hosted generative model.
type Backend interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Model returns the model identifier requests are sent to.
	Model() string
	// Upload makes a document available to later requests.
	Upload(ctx context.Context, doc model.Document) (Attachment, error)
	// Stream yields response text chunks in arrival order.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]
	// Generate returns the complete response text.
	Generate(ctx context.Context, req Request) (string, error)
	// Ping checks that the credential and model are usable.
	Ping(ctx context.Context) error
}
