package llm

import (
	"errors"
	"fmt"

	"github.com/pavelanni/reviewer/internal/model"
)

// ErrConfigMissing is returned when no model credential is configured.
var ErrConfigMissing = errors.New("model API key is not configured")

// ErrEmptyResponse is returned when the model stream produced no text.
var ErrEmptyResponse = errors.New("empty response from model")

// ErrNotObject is wrapped by MalformedJSONError when the response parses but
// is not a JSON object with at least one field.
var ErrNotObject = errors.New("response is not a non-empty JSON object")

// MalformedJSONError reports a model response that is not valid JSON.
// Raw holds the full response text as received.
type MalformedJSONError struct {
	Raw string
	Err error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("parse model response: %v", e.Err)
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// UploadError reports a document that could not be sent to the model.
type UploadError struct {
	Kind     model.DocumentKind
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s (%s): %v", e.Kind, e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ChatCallError wraps a failed follow-up chat call.
type ChatCallError struct {
	Err error
}

func (e *ChatCallError) Error() string {
	return fmt.Sprintf("chat call: %v", e.Err)
}

func (e *ChatCallError) Unwrap() error { return e.Err }
