package model

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// DocumentKind identifies one of the upload slots on the exam form.
type DocumentKind string

const (
	DocAnswerSheet   DocumentKind = "answer_sheet"
	DocQuestionPaper DocumentKind = "question_paper"
	DocAnswerKey     DocumentKind = "answer_key"
	DocSyllabus      DocumentKind = "syllabus"
)

// DocumentKinds lists the upload slots in the order they are sent to the model.
var DocumentKinds = []DocumentKind{DocAnswerSheet, DocQuestionPaper, DocAnswerKey, DocSyllabus}

// Valid reports whether k is a known upload slot.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocAnswerSheet, DocQuestionPaper, DocAnswerKey, DocSyllabus:
		return true
	}
	return false
}

// Required reports whether an analysis cannot start without this document.
func (k DocumentKind) Required() bool {
	return k == DocAnswerSheet || k == DocQuestionPaper
}

// Document is an uploaded exam document.
type Document struct {
	Kind      DocumentKind `json:"kind"`
	Filename  string       `json:"filename"`
	MediaType string       `json:"media_type"`
	Data      []byte       `json:"-"`
}

// IsText reports whether the document content can be inlined as text.
func (d Document) IsText() bool {
	return strings.HasPrefix(d.MediaType, "text/")
}

// Size returns the document size in bytes.
func (d Document) Size() int {
	return len(d.Data)
}

// Documents is the set of attached documents keyed by slot.
type Documents map[DocumentKind]*Document

// Has reports whether a document is attached to the slot.
func (ds Documents) Has(k DocumentKind) bool {
	d, ok := ds[k]
	return ok && d != nil && len(d.Data) > 0
}

// EvaluationSettings are the grading preferences chosen on the form.
// They are frozen for the duration of one analysis run.
type EvaluationSettings struct {
	Class            string   `json:"class" validate:"required,numeric"`
	Subject          string   `json:"subject" validate:"required"`
	Board            string   `json:"board" validate:"required"`
	ExamType         string   `json:"exam_type" validate:"required"`
	Strictness       float64  `json:"strictness" validate:"gte=0,lte=1"`
	StrictnessLabel  string   `json:"strictness_label,omitempty"`
	AnswerDepth      string   `json:"answer_depth" validate:"required"`
	FeedbackTone     string   `json:"feedback_tone" validate:"required"`
	ExplanationLevel string   `json:"explanation_level" validate:"required"`
	FocusAreas       []string `json:"focus_areas"`
	KeyTopics        []string `json:"key_topics,omitempty"`
}

// strictnessLabels maps the discrete slider labels to the numeric scale
// used by the grading guide.
var strictnessLabels = map[string]float64{
	"very lenient": 0.3,
	"lenient":      0.3,
	"moderate":     0.5,
	"balanced":     0.5,
	"strict":       0.7,
	"very strict":  0.9,
}

// ParseStrictness converts a strictness label or number into the 0.0-1.0 scale.
// Unknown values yield the balanced default.
func ParseStrictness(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := strictnessLabels[s]; ok {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f <= 1 {
		return f
	}
	return 0.5
}

// Role is the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry in the follow-up chat transcript.
type ChatTurn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Mode is the view a session is currently showing.
type Mode string

const (
	ModeForm   Mode = "form"
	ModeReport Mode = "report"
	ModeChat   Mode = "chat"
)

// AnalysisStatus tracks the submit cycle of the current analysis run.
type AnalysisStatus string

const (
	StatusIdle       AnalysisStatus = "idle"
	StatusSubmitting AnalysisStatus = "submitting"
	StatusSucceeded  AnalysisStatus = "succeeded"
	StatusFailed     AnalysisStatus = "failed"
)

// Session is the state of one user's interactive review.
type Session struct {
	ID        string
	Settings  *EvaluationSettings
	Documents Documents
	Result    Value
	Turns     []ChatTurn
	Mode      Mode
	Status    AnalysisStatus
	Failure   string
	RawOutput string
	Warnings  []string
	Run       RunInfo
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RunInfo identifies the model call that produced a result.
type RunInfo struct {
	ID         string    `json:"run_id"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// HasResult reports whether a successful analysis is stored.
func (s *Session) HasResult() bool {
	return s != nil && s.Result.Exists()
}

// CanChat reports whether chat mode is reachable.
func (s *Session) CanChat() bool {
	return s.HasResult()
}

// Config holds runtime server parameters set via CLI flags.
type Config struct {
	BasePath      string        // URL prefix for sub-path deployments
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
	MaxUploadMB   int           // Per-request multipart limit
	LLMTimeout    time.Duration // Upper bound for one model call
	Stream        bool          // Use the streaming generation API
	SessionTTL    time.Duration
}

type sessionCtxKey struct{}

// ContextWithSession stores the active session in the request context.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext retrieves the active session from context, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
