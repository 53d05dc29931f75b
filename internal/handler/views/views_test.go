package views

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/reviewer/internal/classconfig"
	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/model"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func renderCtx() context.Context {
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer("en"))
	ctx = model.ContextWithBasePath(ctx, "/review")
	return model.ContextWithCSRFToken(ctx, "tok123")
}

func mustParse(t *testing.T, s string) model.Value {
	t.Helper()
	v, err := model.ParseValue([]byte(s))
	require.NoError(t, err)
	return v
}

func TestNewReportDefaults(t *testing.T) {
	settings := &model.EvaluationSettings{Class: "9", Subject: "Science", ExamType: "Unit Test"}
	r := NewReport(model.Value{}, settings)

	assert.False(t, r.Header.HasDetails)
	assert.Equal(t, "Student", r.Header.Student)
	assert.Equal(t, "N/A", r.Header.RollNumber)
	assert.Equal(t, "9", r.Header.Class)
	assert.Equal(t, "Science", r.Header.Subject)
	assert.Equal(t, "Unit Test", r.Header.ExamName)

	assert.Equal(t, "100", r.Score.TotalMarks)
	assert.Equal(t, "0", r.Score.MarksObtained)
	assert.Zero(t, r.Score.Percentage)

	assert.False(t, r.Topics.Present)
	assert.Empty(t, r.Accurate)
	assert.Empty(t, r.NeedsWork)
	assert.False(t, r.Errors.Present)
	assert.Len(t, r.Errors.Categories, 5)
	assert.False(t, r.Feedback.Structured)
	assert.Empty(t, r.Feedback.Plain)

	// nil settings are tolerated
	r = NewReport(model.Value{}, nil)
	assert.Empty(t, r.Header.Class)
}

func TestNewReportScore(t *testing.T) {
	r := NewReport(mustParse(t, `{"overall_score": {
		"total_marks": 60, "total_marks_obtained": "45",
		"total_questions": 20, "attempted_questions": 18,
		"correct_answers": 12, "partially_correct": 4, "incorrect_answers": 2,
		"unattempted": 2, "accuracy_percentage": "80%"
	}}`), nil)

	assert.InDelta(t, 75.0, r.Score.Percentage, 1e-9)
	assert.Equal(t, "45", r.Score.MarksObtained)
	assert.Equal(t, "60", r.Score.TotalMarks)
	assert.Equal(t, 18, r.Score.Attempted)
	assert.Equal(t, 2, r.Score.Unattempted)
	assert.InDelta(t, 80.0, r.Score.Accuracy, 1e-9)

	r = NewReport(mustParse(t, `{"overall_score": {"total_marks": 0, "total_marks_obtained": 10}}`), nil)
	assert.Zero(t, r.Score.Percentage)
}

func TestNewReportAliases(t *testing.T) {
	r := NewReport(mustParse(t, `{
		"topic_analysis": {
			"strong_topics": [{"name": "Algebra", "score": 90}],
			"weak_topics": [{"topic": "Geometry", "score": "4/10 marks", "feedback": "Revise theorems", "suggestion": "Practice proofs"}],
			"not_assessed": ["Statistics"]
		},
		"improvements": ["show working"],
		"personalized_feedback": "Keep it **up**"
	}`), nil)

	require.True(t, r.Topics.Present)
	require.Len(t, r.Topics.Strong, 1)
	assert.Equal(t, "Algebra", r.Topics.Strong[0].Name)
	assert.Equal(t, "90%", r.Topics.Strong[0].Score)
	require.Len(t, r.Topics.Weak, 1)
	assert.Equal(t, "Geometry", r.Topics.Weak[0].Name)
	assert.Equal(t, "4/10 marks", r.Topics.Weak[0].Score)
	assert.Equal(t, "Revise theorems", r.Topics.Weak[0].Details)
	assert.Equal(t, "Practice proofs", r.Topics.Weak[0].Recommendation)
	assert.Equal(t, []string{"Statistics"}, r.Topics.NotAssessed)
	assert.Equal(t, []string{"show working"}, r.Improvement)
	assert.False(t, r.Feedback.Structured)
	assert.Equal(t, "Keep it **up**", r.Feedback.Plain)
}

func TestNewReportQuestionsAndErrors(t *testing.T) {
	r := NewReport(mustParse(t, `{
		"question_wise_breakdown": {
			"highly_accurate_questions": [{"question_numbers": [1, 2, 5], "topic": "Algebra"}, {"question_numbers": []}],
			"needs_improvement": {"question_number": 7, "marks_obtained": 1, "total_marks": 4, "issues": ["sign error"]}
		},
		"error_analysis": {
			"conceptual_errors": [{"description": "Confused area and perimeter", "questions_affected": ["Q3"], "remedy": "Draw diagrams"}],
			"notation_errors": 2,
			"time_management_issues": 1
		},
		"personal_feedback": {"overall_impression": "Good effort", "action_plan": ["Week 1: revise"]}
	}`), nil)

	require.Len(t, r.Accurate, 1)
	assert.Equal(t, "1, 2, 5", r.Accurate[0].Questions)
	assert.Equal(t, "Perfectly answered", r.Accurate[0].Summary)

	require.Len(t, r.NeedsWork, 1)
	assert.Equal(t, "7", r.NeedsWork[0].Number)
	assert.Equal(t, "N/A", r.NeedsWork[0].StudentAnswer)
	assert.Equal(t, []string{"sign error"}, r.NeedsWork[0].Issues)

	require.True(t, r.Errors.Present)
	assert.True(t, r.Errors.HasDetails)
	assert.Equal(t, 1, r.Errors.TimeManagement)
	byKey := map[string]ErrorCategory{}
	for _, c := range r.Errors.Categories {
		byKey[c.Key] = c
	}
	assert.Equal(t, 1, byKey["conceptual_errors"].Count)
	assert.Equal(t, "Draw diagrams", byKey["conceptual_errors"].Items[0].Note)
	assert.Equal(t, "ErrRemedy", byKey["conceptual_errors"].Items[0].NoteLabel)
	assert.Equal(t, 2, byKey["notation_errors"].Count)
	assert.Empty(t, byKey["notation_errors"].Items)

	assert.True(t, r.Feedback.Structured)
	assert.Equal(t, "Dear Student,", r.Feedback.Opening)
	assert.Equal(t, []string{"Week 1: revise"}, r.Feedback.ActionPlan)
}

func TestMarkdownSanitizes(t *testing.T) {
	got := string(Markdown("**bold** <script>alert(1)</script>"))
	assert.Contains(t, got, "<strong>bold</strong>")
	assert.NotContains(t, got, "<script>")
}

func TestNewSlots(t *testing.T) {
	slots := NewSlots(model.Documents{
		model.DocQuestionPaper: {Kind: model.DocQuestionPaper, Filename: "qp.pdf", Data: []byte("pdf")},
	})
	require.Len(t, slots, len(model.DocumentKinds))
	for i, s := range slots {
		assert.Equal(t, model.DocumentKinds[i], s.Kind)
		assert.Equal(t, s.Kind.Required(), s.Required)
		assert.Equal(t, s.Kind == model.DocQuestionPaper, s.Attached)
	}
	assert.Equal(t, "qp.pdf", slots[1].Filename)
	assert.Equal(t, 3, slots[1].Size)
}

func TestFormPageRenders(t *testing.T) {
	cfg := classconfig.Builtin("10")
	f := Form{
		Classes:     classconfig.Classes,
		Config:      cfg,
		Settings:    cfg.DefaultSettings(),
		FocusAreas:  classconfig.FocusAreas,
		Slots:       NewSlots(nil),
		Errors:      []string{"Question paper is required"},
		MaxUploadMB: 20,
	}
	require.False(t, f.CanSubmit())

	var buf bytes.Buffer
	require.NoError(t, FormPage(f).Render(renderCtx(), &buf))
	html := buf.String()

	assert.Contains(t, html, `action="/review/settings"`)
	assert.Contains(t, html, `action="/review/documents/answer_sheet"`)
	assert.Contains(t, html, `value="tok123"`)
	assert.Contains(t, html, "Question paper is required")
	assert.Contains(t, html, "Student answer sheet")
	assert.Contains(t, html, " disabled>")
	assert.Contains(t, html, `<option value="10" selected>Class 10</option>`)
}

func TestReportPageRenders(t *testing.T) {
	data := ReportPageData{
		Report:   NewReport(mustParse(t, `{"strengths": ["neat <b>work</b>"], "personal_feedback": "plain text"}`), nil),
		Warnings: []string{"syllabus was left out"},
		Archive:  true,
	}

	var buf bytes.Buffer
	require.NoError(t, ReportPage(data).Render(renderCtx(), &buf))
	html := buf.String()

	assert.Contains(t, html, "neat &lt;b&gt;work&lt;/b&gt;")
	assert.Contains(t, html, "syllabus was left out")
	assert.Contains(t, html, "plain text")
	assert.Contains(t, html, `action="/review/archive"`)
	assert.Contains(t, html, `href="/review/export.json"`)
}

func TestChatPageRenders(t *testing.T) {
	now := time.Now()
	c := Chat{
		Header: Header{Student: "Asha", Class: "8", Subject: "Mathematics"},
		Turns: NewTurns([]model.ChatTurn{
			{Role: model.RoleUser, Content: "Why <Q3>?", CreatedAt: now},
			{Role: model.RoleAssistant, Content: "Because of **units**", CreatedAt: now},
		}),
		QuickQuestions: []QuickQuestion{{Key: "score", LabelID: "QuickScore"}},
	}
	require.Len(t, c.Turns, 2)
	assert.True(t, c.Turns[0].User)
	assert.Empty(t, c.Turns[0].HTML)

	var buf bytes.Buffer
	require.NoError(t, ChatPage(c).Render(renderCtx(), &buf))
	html := buf.String()

	assert.Contains(t, html, "Why &lt;Q3&gt;?")
	assert.Contains(t, html, "<strong>units</strong>")
	assert.Contains(t, html, "Score improvement tips?")
	assert.Contains(t, html, `name="quick" value="score"`)
}

func TestErrorPageRenders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorPage(404, "Page not found").Render(renderCtx(), &buf))
	assert.Contains(t, buf.String(), "Page not found")
	assert.Contains(t, buf.String(), "(404)")
}
