package views

import (
	"strconv"

	"github.com/pavelanni/reviewer/internal/model"
)

// Report is the render-ready form of an analysis result. Every field has a
// default so partial or oddly shaped model output still renders.
type Report struct {
	Header      Header
	Score       Score
	Topics      Topics
	Accurate    []AccurateGroup
	NeedsWork   []QuestionReview
	Errors      ErrorSummary
	Strengths   []string
	Improvement []string
	Feedback    Feedback
}

type Header struct {
	HasDetails bool
	Student    string
	RollNumber string
	Class      string
	Subject    string
	ExamName   string
	Date       string
	School     string
}

type Score struct {
	Percentage     float64
	MarksObtained  string
	TotalMarks     string
	TotalQuestions int
	Attempted      int
	Correct        int
	Partial        int
	Incorrect      int
	Unattempted    int
	Accuracy       float64
}

type Topic struct {
	Name           string
	Score          string
	Accuracy       string
	Questions      string
	Details        string
	Gaps           []string
	Recommendation string
}

type Topics struct {
	Present     bool
	Strong      []Topic
	Weak        []Topic
	NotAssessed []string
}

type AccurateGroup struct {
	Questions string
	Topic     string
	Summary   string
}

type QuestionReview struct {
	Number         string
	Topic          string
	Marks          string
	Total          string
	QuestionText   string
	StudentAnswer  string
	ExpectedAnswer string
	WhatCorrect    string
	WhatWrong      string
	Issues         []string
	Feedback       string
}

// ErrorCategory is one of the five error kinds in the report.
type ErrorCategory struct {
	Key   string // JSON key, also the message ID suffix
	Count int
	Items []ErrorItem
}

type ErrorItem struct {
	Severity     string
	Description  string
	Questions    string
	Example      string
	NoteLabel    string // message ID of the category-specific field
	Note         string
	MissingSteps []string
}

type ErrorSummary struct {
	Present        bool
	Categories     []ErrorCategory
	TimeManagement int
	HasDetails     bool
}

type Feedback struct {
	Structured bool
	Opening    string
	Impression string
	Detailed   string
	Takeaways  []string
	ActionPlan []string
	Motivation string
	Potential  string
	Plain      string
}

// errorCategories lists the categories in display order with the field that
// carries each category's advice.
var errorCategories = []struct {
	key, noteField, noteLabel string
}{
	{"conceptual_errors", "remedy", "ErrRemedy"},
	{"calculation_mistakes", "pattern", "ErrPattern"},
	{"incomplete_steps", "impact", "ErrImpact"},
	{"poor_explanation", "suggestion", "ErrSuggestion"},
	{"notation_errors", "correct_notation", "ErrCorrectNotation"},
}

// NewReport builds the report for result. Settings fill header fields the
// model did not return.
func NewReport(result model.Value, settings *model.EvaluationSettings) Report {
	var s model.EvaluationSettings
	if settings != nil {
		s = *settings
	}
	return Report{
		Header:      newHeader(result.Get("personal_details"), s),
		Score:       newScore(result.Get("overall_score")),
		Topics:      newTopics(result.First("topic_wise_performance", "topic_analysis")),
		Accurate:    newAccurate(result.Get("question_wise_breakdown", "highly_accurate_questions")),
		NeedsWork:   newNeedsWork(result.Get("question_wise_breakdown", "needs_improvement")),
		Errors:      newErrors(result.Get("error_analysis")),
		Strengths:   result.Get("strengths").Strings(),
		Improvement: result.First("improvements_needed", "improvements").Strings(),
		Feedback:    newFeedback(result),
	}
}

func newHeader(pd model.Value, s model.EvaluationSettings) Header {
	return Header{
		HasDetails: pd.Exists(),
		Student:    pd.Get("student_name").Str("Student"),
		RollNumber: pd.Get("roll_number").Str("N/A"),
		Class:      pd.Get("class").Str(s.Class),
		Subject:    pd.Get("subject").Str(s.Subject),
		ExamName:   pd.Get("exam_name").Str(s.ExamType),
		Date:       pd.Get("date").Str(""),
		School:     pd.Get("school_name").Str(""),
	}
}

func newScore(sc model.Value) Score {
	total := sc.Get("total_marks").Num(100)
	obtained := sc.Get("total_marks_obtained").Num(0)
	var pct float64
	if total > 0 {
		pct = obtained / total * 100
	}
	return Score{
		Percentage:     pct,
		MarksObtained:  formatNum(obtained),
		TotalMarks:     formatNum(total),
		TotalQuestions: sc.Get("total_questions").Int(0),
		Attempted:      sc.Get("attempted_questions").Int(0),
		Correct:        sc.Get("correct_answers").Int(0),
		Partial:        sc.Get("partially_correct").Int(0),
		Incorrect:      sc.Get("incorrect_answers").Int(0),
		Unattempted:    sc.Get("unattempted").Int(0),
		Accuracy:       sc.Get("accuracy_percentage").Num(0),
	}
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// scoreText renders a topic score: bare numbers are percentages, strings
// such as "8/10 marks" are shown as given.
func scoreText(v model.Value) string {
	if n, ok := v.Raw().(float64); ok {
		return formatNum(n) + "%"
	}
	return v.Str("")
}

func newTopic(t model.Value) Topic {
	return Topic{
		Name:           t.First("topic", "name").Str("Topic"),
		Score:          scoreText(t.Get("score")),
		Accuracy:       scoreText(t.Get("accuracy")),
		Questions:      t.Get("questions").Join(", "),
		Details:        t.First("details", "feedback").Str(""),
		Gaps:           t.Get("gaps").Strings(),
		Recommendation: t.First("recommendations", "suggestion").Str(""),
	}
}

func newTopics(ta model.Value) Topics {
	topics := Topics{
		Present:     ta.Exists(),
		NotAssessed: ta.Get("not_assessed").Strings(),
	}
	for _, t := range ta.Get("strong_topics").List() {
		topics.Strong = append(topics.Strong, newTopic(t))
	}
	for _, t := range ta.First("areas_for_improvement", "weak_topics").List() {
		topics.Weak = append(topics.Weak, newTopic(t))
	}
	return topics
}

// asList treats a single object as a one-element list.
func asList(v model.Value) []model.Value {
	if list := v.List(); list != nil {
		return list
	}
	if v.Exists() {
		return []model.Value{v}
	}
	return nil
}

func newAccurate(v model.Value) []AccurateGroup {
	var out []AccurateGroup
	for _, g := range asList(v) {
		nums := g.First("question_numbers", "questions").Join(", ")
		if nums == "" {
			continue
		}
		out = append(out, AccurateGroup{
			Questions: nums,
			Topic:     g.Get("topic").Str("Topic"),
			Summary:   g.Get("summary").Str("Perfectly answered"),
		})
	}
	return out
}

func newNeedsWork(v model.Value) []QuestionReview {
	var out []QuestionReview
	for _, q := range asList(v) {
		out = append(out, QuestionReview{
			Number:         q.Get("question_number").Str("?"),
			Topic:          q.Get("topic").Str("Topic"),
			Marks:          q.Get("marks_obtained").Str("0"),
			Total:          q.Get("total_marks").Str("?"),
			QuestionText:   q.Get("question_text").Str("N/A"),
			StudentAnswer:  q.Get("student_answer").Str("N/A"),
			ExpectedAnswer: q.Get("expected_answer").Str("N/A"),
			WhatCorrect:    q.Get("what_was_correct").Str(""),
			WhatWrong:      q.Get("what_was_wrong").Str(""),
			Issues:         q.Get("issues").Strings(),
			Feedback:       q.Get("feedback").Str("N/A"),
		})
	}
	return out
}

func newErrors(ea model.Value) ErrorSummary {
	sum := ErrorSummary{
		Present:        ea.Exists(),
		TimeManagement: ea.Get("time_management_issues").Int(0),
	}
	for _, c := range errorCategories {
		v := ea.Get(c.key)
		cat := ErrorCategory{Key: c.key, Count: v.Len()}
		for _, e := range v.List() {
			cat.Items = append(cat.Items, ErrorItem{
				Severity:     e.Get("severity").Str(""),
				Description:  e.Get("description").Str(""),
				Questions:    e.Get("questions_affected").Join(", "),
				Example:      e.Get("example").Str(""),
				NoteLabel:    c.noteLabel,
				Note:         e.Get(c.noteField).Str(""),
				MissingSteps: e.Get("missing_steps").Strings(),
			})
		}
		if len(cat.Items) > 0 {
			sum.HasDetails = true
		}
		sum.Categories = append(sum.Categories, cat)
	}
	return sum
}

func newFeedback(result model.Value) Feedback {
	pf := result.Get("personal_feedback")
	if _, ok := pf.Raw().(map[string]any); !ok {
		text := result.Get("personalized_feedback").Str("")
		if text == "" {
			text = pf.Str("")
		}
		return Feedback{Plain: text}
	}
	return Feedback{
		Structured: true,
		Opening:    pf.Get("opening").Str("Dear Student,"),
		Impression: pf.Get("overall_impression").Str(""),
		Detailed:   pf.Get("detailed_analysis").Str(""),
		Takeaways:  pf.Get("key_takeaways").Strings(),
		ActionPlan: pf.Get("action_plan").Strings(),
		Motivation: pf.Get("motivation").Str(""),
		Potential:  pf.Get("estimated_improvement_potential").Str(""),
	}
}

// ReportPageData is the data for the report page.
type ReportPageData struct {
	Report   Report
	Warnings []string
	Flash    []string
	Archive  bool // an archival sink is configured
}
