package model

import (
	"reflect"
	"testing"
)

func TestParseStrictness(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"Lenient", 0.3},
		{"Moderate", 0.5},
		{"Strict", 0.7},
		{"Very Strict", 0.9},
		{"  very strict ", 0.9},
		{"0.8", 0.8},
		{"1.5", 0.5},
		{"", 0.5},
		{"whatever", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseStrictness(tt.in); got != tt.want {
				t.Errorf("ParseStrictness(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDocumentKinds(t *testing.T) {
	for _, k := range DocumentKinds {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if DocumentKind("resume").Valid() {
		t.Error("unknown kind should be invalid")
	}
	if !DocAnswerSheet.Required() || !DocQuestionPaper.Required() {
		t.Error("answer sheet and question paper are required")
	}
	if DocAnswerKey.Required() || DocSyllabus.Required() {
		t.Error("answer key and syllabus are optional")
	}
}

func TestDocumentsHas(t *testing.T) {
	ds := Documents{
		DocAnswerSheet: {Kind: DocAnswerSheet, Data: []byte("x")},
		DocSyllabus:    {Kind: DocSyllabus},
	}
	if !ds.Has(DocAnswerSheet) {
		t.Error("answer sheet should be attached")
	}
	if ds.Has(DocSyllabus) {
		t.Error("empty document should not count as attached")
	}
	if ds.Has(DocQuestionPaper) {
		t.Error("missing slot should not count as attached")
	}

	sum := ds.Summarize()
	if len(sum) != 1 || sum[0].Kind != DocAnswerSheet || sum[0].Size != 1 {
		t.Errorf("Summarize() = %+v", sum)
	}
}

func TestSessionCanChat(t *testing.T) {
	var nilSess *Session
	if nilSess.CanChat() {
		t.Error("nil session cannot chat")
	}
	s := &Session{}
	if s.CanChat() {
		t.Error("session without result cannot chat")
	}
	s.Result = NewValue(map[string]any{"strengths": []any{}})
	if !s.CanChat() {
		t.Error("session with result should be able to chat")
	}
}

func TestValueAccessors(t *testing.T) {
	v, err := ParseValue([]byte(`{
		"personal_details": {"student_name": "Asha", "roll_number": 17, "date": ""},
		"overall_score": {"total_marks": 80, "total_marks_obtained": "60", "accuracy_percentage": "75%"},
		"strengths": ["neat work", "", "good diagrams"],
		"error_analysis": {"conceptual_errors": [{"questions_affected": [3, 7]}], "notation_errors": 2},
		"flag": true
	}`))
	if err != nil {
		t.Fatalf("ParseValue: %v", err)
	}

	if got := v.Get("personal_details", "student_name").Str("Student"); got != "Asha" {
		t.Errorf("student_name = %q", got)
	}
	if got := v.Get("personal_details", "roll_number").Str("N/A"); got != "17" {
		t.Errorf("roll_number = %q", got)
	}
	if got := v.Get("personal_details", "date").Str("Not found"); got != "Not found" {
		t.Errorf("empty date should use default, got %q", got)
	}
	if got := v.Get("personal_details", "missing", "deeper").Str("d"); got != "d" {
		t.Errorf("missing path should use default, got %q", got)
	}
	if got := v.Get("overall_score", "total_marks_obtained").Num(0); got != 60 {
		t.Errorf("numeric string = %v", got)
	}
	if got := v.Get("overall_score", "accuracy_percentage").Int(0); got != 75 {
		t.Errorf("percent string = %v", got)
	}
	if got := v.Get("strengths").Strings(); !reflect.DeepEqual(got, []string{"neat work", "good diagrams"}) {
		t.Errorf("Strings() = %v", got)
	}
	if got := v.Get("error_analysis", "conceptual_errors").Len(); got != 1 {
		t.Errorf("list Len() = %d", got)
	}
	if got := v.Get("error_analysis", "notation_errors").Len(); got != 2 {
		t.Errorf("count Len() = %d", got)
	}
	first := v.Get("error_analysis", "conceptual_errors").List()[0]
	if got := first.Get("questions_affected").Join(", "); got != "3, 7" {
		t.Errorf("Join() = %q", got)
	}
	if got := first.Get("questions_affected").Ints(); !reflect.DeepEqual(got, []int{3, 7}) {
		t.Errorf("Ints() = %v", got)
	}
	if got := NewValue([]any{"Q4", "5", "none", 6.0}).Ints(); !reflect.DeepEqual(got, []int{4, 5, 6}) {
		t.Errorf("Ints() on mixed = %v", got)
	}
	if got := v.Get("flag").Str(""); got != "true" {
		t.Errorf("bool Str() = %q", got)
	}
	if v.Get("strengths").Get("nested").Exists() {
		t.Error("Get on array should be empty")
	}
	if got := v.First("topic_analysis", "overall_score").Get("total_marks").Int(0); got != 80 {
		t.Errorf("First() fallback = %d", got)
	}
	if v.Get("strengths").Num(-1) != -1 {
		t.Error("Num on array should use default")
	}
}

func TestParseValueErrors(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":1} trailing`, `not json`} {
		if _, err := ParseValue([]byte(in)); err == nil {
			t.Errorf("ParseValue(%q) should fail", in)
		}
	}
}

func TestValueJSON(t *testing.T) {
	v := NewValue(map[string]any{"a": []any{1.0, "b"}})
	if got := v.JSON(false); got != `{"a":[1,"b"]}` {
		t.Errorf("JSON(false) = %s", got)
	}
	var back Value
	if err := back.UnmarshalJSON([]byte(v.JSON(true))); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if !reflect.DeepEqual(back.Raw(), v.Raw()) {
		t.Errorf("round trip = %v", back.Raw())
	}
	if (Value{}).JSON(false) != "null" {
		t.Error("empty value should render null")
	}
}
