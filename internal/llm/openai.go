package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/reviewer/internal/model"
)

// ErrUnsupportedMedia is returned by backends that cannot accept a document type.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// OpenAIBackend talks to any OpenAI-compatible chat completions API.
// Images are sent as data URLs and text documents are inlined.
type OpenAIBackend struct {
	api   *openai.Client
	model string
}

// NewOpenAI creates an OpenAI-compatible backend. An empty apiKey returns
// ErrConfigMissing.
func NewOpenAI(baseURL, apiKey, modelName string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, ErrConfigMissing
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIBackend{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}, nil
}

func (o *OpenAIBackend) Name() string  { return "openai" }
func (o *OpenAIBackend) Model() string { return o.model }

// Upload keeps the document in memory for the request. Only images and
// text are accepted.
func (o *OpenAIBackend) Upload(_ context.Context, doc model.Document) (Attachment, error) {
	if !doc.IsText() && !strings.HasPrefix(doc.MediaType, "image/") {
		return Attachment{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, doc.MediaType)
	}
	return Attachment{Kind: doc.Kind, Name: doc.Filename, MIMEType: doc.MediaType, Data: doc.Data}, nil
}

func (o *OpenAIBackend) request(req Request) openai.ChatCompletionRequest {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: req.Prompt}}
	for _, att := range req.Attachments {
		if strings.HasPrefix(att.MIMEType, "text/") {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: fmt.Sprintf("\n\n%s (%s):\n%s", strings.ToUpper(string(att.Kind)), att.Name, att.Data),
			})
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + att.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(att.Data),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(parts) == 1 {
		msg.Content = req.Prompt
	} else {
		msg.MultiContent = parts
	}

	cr := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    []openai.ChatCompletionMessage{msg},
		Temperature: req.Temperature,
	}
	if req.JSON {
		cr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return cr
}

// Stream yields delta content from a streamed chat completion.
func (o *OpenAIBackend) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := o.api.CreateChatCompletionStream(ctx, o.request(req))
		if err != nil {
			yield("", fmt.Errorf("LLM API call: %w", err))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(resp.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}

// Generate makes a single chat completion call.
func (o *OpenAIBackend) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := o.api.CreateChatCompletion(ctx, o.request(req))
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping lists the models visible to the credential.
func (o *OpenAIBackend) Ping(ctx context.Context) error {
	if _, err := o.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
