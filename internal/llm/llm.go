package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pavelanni/reviewer/internal/llm/prompts"
	"github.com/pavelanni/reviewer/internal/metrics"
	"github.com/pavelanni/reviewer/internal/model"
)

const (
	analysisTemperature = 0.1
	chatTemperature     = 0.7
)

// Outcome is the result of one analysis run.
type Outcome struct {
	Result model.Value
	// Raw is the concatenated response text before fence stripping.
	Raw string
	// Sent lists the documents the model received, in request order.
	Sent []model.DocumentKind
	// Warnings holds per-document upload failures. Those documents were omitted.
	Warnings []*UploadError
}

// Client runs analyses and follow-up chats against a Backend.
type Client struct {
	backend Backend
	stream  bool
	schema  *jsonschema.Schema
}

// Option configures a Client.
type Option func(*Client)

// WithStreaming selects between streaming and single-shot analysis calls.
func WithStreaming(on bool) Option {
	return func(c *Client) { c.stream = on }
}

// New creates a client over backend. Streaming is on by default.
func New(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		stream:  true,
		schema:  jsonschema.MustCompileString("analysis_result.schema.json", resultSchema),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the backend name.
func (c *Client) Provider() string { return c.backend.Name() }

// Model returns the backend model identifier.
func (c *Client) Model() string { return c.backend.Model() }

// Ping checks the backend.
func (c *Client) Ping(ctx context.Context) error { return c.backend.Ping(ctx) }

// Analyze sends the exam documents with the grading prompt and parses the
// JSON evaluation. Documents that fail to upload are omitted and reported in
// Outcome.Warnings. A malformed response returns *MalformedJSONError together
// with a partial Outcome carrying the raw text.
func (c *Client) Analyze(ctx context.Context, settings model.EvaluationSettings, docs model.Documents) (*Outcome, error) {
	start := time.Now()
	provider := c.backend.Name()
	defer func() {
		metrics.AnalysisDuration().WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}()

	prompt, err := prompts.BuildAnalysis(settings, docs.Has(model.DocAnswerKey), docs.Has(model.DocSyllabus))
	if err != nil {
		metrics.AnalysisRuns().WithLabelValues(provider, "error").Inc()
		return nil, fmt.Errorf("build analysis prompt: %w", err)
	}

	out := &Outcome{}
	var attachments []Attachment
	for _, kind := range model.DocumentKinds {
		if !docs.Has(kind) {
			continue
		}
		doc := docs[kind]

		if kind == model.DocSyllabus && doc.IsText() {
			prompt += "\n\nSYLLABUS CONTENT:\n" + string(doc.Data)
			out.Sent = append(out.Sent, kind)
			continue
		}

		att, err := c.backend.Upload(ctx, *doc)
		if err != nil {
			ue := &UploadError{Kind: kind, Filename: doc.Filename, Err: err}
			slog.Warn("document upload failed, omitting", "kind", kind, "filename", doc.Filename, "error", err)
			metrics.UploadFailures().WithLabelValues(provider, string(kind)).Inc()
			out.Warnings = append(out.Warnings, ue)
			continue
		}
		attachments = append(attachments, att)
		out.Sent = append(out.Sent, kind)
	}

	req := Request{
		Prompt:      prompt,
		Attachments: attachments,
		Temperature: analysisTemperature,
		JSON:        true,
	}

	raw, err := c.collect(ctx, req)
	if err != nil {
		metrics.AnalysisRuns().WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	out.Raw = raw

	if strings.TrimSpace(raw) == "" {
		metrics.AnalysisRuns().WithLabelValues(provider, "empty").Inc()
		return nil, ErrEmptyResponse
	}

	result, err := parseResult(raw)
	if err != nil {
		slog.Debug("unparseable model response", "raw", raw)
		metrics.AnalysisRuns().WithLabelValues(provider, "malformed").Inc()
		return out, &MalformedJSONError{Raw: raw, Err: err}
	}
	out.Result = result

	if err := c.schema.Validate(result.Raw()); err != nil {
		slog.Warn("analysis result deviates from the requested structure", "error", err)
	}

	metrics.AnalysisRuns().WithLabelValues(provider, "ok").Inc()
	slog.Info("analysis complete", "provider", provider, "model", c.backend.Model(),
		"documents", len(out.Sent), "omitted", len(out.Warnings), "elapsed", time.Since(start))
	return out, nil
}

// parseResult decodes the response as is and falls back to stripping a
// surrounding code fence. The result must be a non-empty JSON object.
func parseResult(raw string) (model.Value, error) {
	result, err := model.ParseValue([]byte(strings.TrimSpace(raw)))
	if err != nil {
		var ferr error
		if result, ferr = model.ParseValue([]byte(StripCodeFences(raw))); ferr != nil {
			return model.Value{}, ferr
		}
	}
	if obj, ok := result.Raw().(map[string]any); !ok || len(obj) == 0 {
		return model.Value{}, ErrNotObject
	}
	return result, nil
}

func (c *Client) collect(ctx context.Context, req Request) (string, error) {
	if !c.stream {
		text, err := c.backend.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("generate analysis: %w", err)
		}
		return text, nil
	}

	var sb strings.Builder
	for chunk, err := range c.backend.Stream(ctx, req) {
		if err != nil {
			return "", fmt.Errorf("stream analysis: %w", err)
		}
		sb.WriteString(chunk)
	}
	return sb.String(), nil
}

// AskFollowUp answers a student question about a prior analysis.
// Failures are returned as *ChatCallError.
func (c *Client) AskFollowUp(ctx context.Context, settings model.EvaluationSettings, result model.Value, question string) (string, error) {
	provider := c.backend.Name()

	prompt, err := prompts.BuildChat(settings, result, question)
	if err != nil {
		metrics.ChatCalls().WithLabelValues(provider, "error").Inc()
		return "", &ChatCallError{Err: fmt.Errorf("build chat prompt: %w", err)}
	}

	text, err := c.backend.Generate(ctx, Request{Prompt: prompt, Temperature: chatTemperature})
	if err != nil {
		metrics.ChatCalls().WithLabelValues(provider, "error").Inc()
		return "", &ChatCallError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		metrics.ChatCalls().WithLabelValues(provider, "empty").Inc()
		return "", &ChatCallError{Err: ErrEmptyResponse}
	}

	metrics.ChatCalls().WithLabelValues(provider, "ok").Inc()
	return text, nil
}
