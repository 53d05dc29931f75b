package prompts

import (
	"bytes"
	"embed"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/reviewer/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

var studentQuestionRegex = regexp.MustCompile(`(?i)</?\s*student-question\b[^>]*>`)

// maxQuestionRunes bounds the chat question embedded in a prompt.
const maxQuestionRunes = 2000

// Band is one row of the grading strictness guide.
type Band struct {
	Range  string
	Name   string
	Policy string
	Low    float64 // inclusive lower bound on the strictness scale
	Active bool
}

// Bands are ordered from most lenient to most strict.
var Bands = []Band{
	{Range: "0.3-0.4", Name: "Very lenient", Policy: "generous partial marks, overlook minor errors, focus on effort", Low: 0},
	{Range: "0.5-0.6", Name: "Balanced", Policy: "standard evaluation, fair partial marks, standard expectations", Low: 0.45},
	{Range: "0.7-0.8", Name: "Strict", Policy: "penalize incomplete work, require clear steps, limited partial marks", Low: 0.65},
	{Range: "0.9-1.0", Name: "Very strict", Policy: "demand perfection, mark every error, minimal partial marks", Low: 0.85},
}

// BandFor returns the index into Bands that applies to strictness.
func BandFor(strictness float64) int {
	idx := 0
	for i, b := range Bands {
		if strictness >= b.Low {
			idx = i
		}
	}
	return idx
}

// AnalysisData holds template data for the grading prompt.
type AnalysisData struct {
	Subject          string
	Class            string
	Board            string
	ExamType         string
	Strictness       string
	AnswerDepth      string
	FocusAreas       string
	KeyTopics        string
	FeedbackTone     string
	ExplanationLevel string
	HasAnswerKey     bool
	HasSyllabus      bool
	Bands            []Band
}

// ChatData holds template data for follow-up chat prompts.
type ChatData struct {
	Subject      string
	Class        string
	Board        string
	ExamType     string
	FeedbackTone string
	Tone         string
	Level        string
	AnalysisJSON string
	Question     string
}

// BuildAnalysis renders the grading contract sent with the exam documents.
// Empty settings fields fall back to neutral defaults.
func BuildAnalysis(s model.EvaluationSettings, hasAnswerKey, hasSyllabus bool) (string, error) {
	focus := "Conceptual understanding"
	if len(s.FocusAreas) > 0 {
		focus = strings.Join(s.FocusAreas, ", ")
	}

	bands := make([]Band, len(Bands))
	copy(bands, Bands)
	bands[BandFor(s.Strictness)].Active = true

	data := AnalysisData{
		Subject:          orDefault(s.Subject, "Subject"),
		Class:            orDefault(s.Class, "9"),
		Board:            orDefault(s.Board, "CBSE"),
		ExamType:         orDefault(s.ExamType, "Exam"),
		Strictness:       strconv.FormatFloat(s.Strictness, 'f', -1, 64),
		AnswerDepth:      orDefault(s.AnswerDepth, "Medium"),
		FocusAreas:       focus,
		KeyTopics:        strings.Join(s.KeyTopics, ", "),
		FeedbackTone:     orDefault(s.FeedbackTone, "Encouraging"),
		ExplanationLevel: orDefault(s.ExplanationLevel, "Grade-appropriate"),
		HasAnswerKey:     hasAnswerKey,
		HasSyllabus:      hasSyllabus,
		Bands:            bands,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "analysis.tmpl", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildChat renders the tutor prompt for one follow-up question.
func BuildChat(s model.EvaluationSettings, result model.Value, question string) (string, error) {
	tone := orDefault(s.FeedbackTone, "Encouraging")
	data := ChatData{
		Subject:      s.Subject,
		Class:        s.Class,
		Board:        s.Board,
		ExamType:     s.ExamType,
		FeedbackTone: tone,
		Tone:         strings.ToLower(tone),
		Level:        strings.ToLower(orDefault(s.ExplanationLevel, "grade-appropriate")),
		AnalysisJSON: result.JSON(true),
		Question:     SanitizeQuestion(question),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "chat.tmpl", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SanitizeQuestion strips delimiter tags and bounds the question length.
func SanitizeQuestion(q string) string {
	q = studentQuestionRegex.ReplaceAllString(q, "")
	q = strings.TrimSpace(q)

	if q == "" {
		return "[No question provided]"
	}

	if utf8.RuneCountInString(q) > maxQuestionRunes {
		runes := []rune(q)
		q = string(runes[:maxQuestionRunes]) + "\n\n[Question truncated due to length]"
	}
	return q
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
