// Package llmtest provides an in-memory llm.Backend for tests.
package llmtest

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/pavelanni/reviewer/internal/llm"
	"github.com/pavelanni/reviewer/internal/model"
)

// Backend records requests and replays canned responses.
type Backend struct {
	// Chunks are streamed in order by Stream and joined by Generate for
	// JSON requests.
	Chunks []string
	// StreamErr is yielded after Chunks when set.
	StreamErr error
	// Reply answers non-JSON requests. Nil echoes a fixed answer.
	Reply func(req llm.Request) (string, error)
	// UploadErr fails uploads of the given document kinds.
	UploadErr map[model.DocumentKind]error

	mu       sync.Mutex
	panicVal any
	uploads  []model.DocumentKind
	requests []llm.Request
}

var _ llm.Backend = (*Backend)(nil)

func (b *Backend) Name() string  { return "fake" }
func (b *Backend) Model() string { return "fake-model" }

func (b *Backend) Upload(_ context.Context, doc model.Document) (llm.Attachment, error) {
	if err := b.UploadErr[doc.Kind]; err != nil {
		return llm.Attachment{}, err
	}
	b.mu.Lock()
	b.uploads = append(b.uploads, doc.Kind)
	b.mu.Unlock()
	return llm.Attachment{
		Kind:     doc.Kind,
		Name:     doc.Filename,
		MIMEType: doc.MediaType,
		URI:      "fake://files/" + string(doc.Kind),
	}, nil
}

func (b *Backend) record(req llm.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
}

// PanicWith makes the next analysis calls panic with v. Nil restores
// normal replies.
func (b *Backend) PanicWith(v any) {
	b.mu.Lock()
	b.panicVal = v
	b.mu.Unlock()
}

// SetChunks replaces the canned analysis response between requests.
func (b *Backend) SetChunks(chunks ...string) {
	b.mu.Lock()
	b.Chunks = chunks
	b.mu.Unlock()
}

func (b *Backend) chunks() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Chunks
}

func (b *Backend) maybePanic() {
	b.mu.Lock()
	v := b.panicVal
	b.mu.Unlock()
	if v != nil {
		panic(v)
	}
}

func (b *Backend) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	b.record(req)
	return func(yield func(string, error) bool) {
		b.maybePanic()
		for _, c := range b.chunks() {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if b.StreamErr != nil {
			yield("", b.StreamErr)
		}
	}
}

func (b *Backend) Generate(_ context.Context, req llm.Request) (string, error) {
	b.record(req)
	if req.JSON {
		b.maybePanic()
		if b.StreamErr != nil {
			return "", b.StreamErr
		}
		return strings.Join(b.chunks(), ""), nil
	}
	if b.Reply != nil {
		return b.Reply(req)
	}
	return fmt.Sprintf("answer %d", len(b.Requests())), nil
}

func (b *Backend) Ping(context.Context) error { return nil }

// Uploads returns the document kinds uploaded so far, in order.
func (b *Backend) Uploads() []model.DocumentKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.DocumentKind(nil), b.uploads...)
}

// Requests returns the requests received so far, in order.
func (b *Backend) Requests() []llm.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]llm.Request(nil), b.requests...)
}
