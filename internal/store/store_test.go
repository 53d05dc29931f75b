package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pavelanni/reviewer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(MemoryPath)
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSession(t *testing.T, s *Store) *model.Session {
	t.Helper()
	sess, err := s.CreateSession(model.EvaluationSettings{Class: "9", Subject: "Mathematics", Strictness: 0.5}, time.Hour)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	created := newTestSession(t, s)

	if len(created.ID) != 64 {
		t.Errorf("expected 64-char hex session id, got %q", created.ID)
	}

	got, err := s.GetSession(created.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.Mode != model.ModeForm || got.Status != model.StatusIdle {
		t.Errorf("new session mode=%s status=%s", got.Mode, got.Status)
	}
	if got.Settings == nil || got.Settings.Subject != "Mathematics" {
		t.Errorf("settings not stored: %+v", got.Settings)
	}
	if got.HasResult() || got.CanChat() {
		t.Error("new session should have no result")
	}

	if err := s.DeleteSession(created.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	got, err = s.GetSession(created.ID)
	if err != nil {
		t.Fatalf("GetSession after delete: %v", err)
	}
	if got != nil {
		t.Error("deleted session should not be found")
	}
}

func TestGetSessionMissing(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetSession("nope")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown session")
	}
	if err := s.SetMode("nope", model.ModeReport); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetMode on unknown session: err = %v, want ErrNotFound", err)
	}
}

func TestSaveSettings(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)

	updated := model.EvaluationSettings{
		Class: "10", Subject: "Science", Board: "ICSE", ExamType: "Annual Exam",
		Strictness: 0.9, FocusAreas: []string{"Problem Solving"}, KeyTopics: []string{"Light"},
	}
	if err := s.SaveSettings(sess.ID, updated); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, _ := s.GetSession(sess.ID)
	if got.Settings.Class != "10" || got.Settings.Strictness != 0.9 || got.Settings.KeyTopics[0] != "Light" {
		t.Errorf("settings = %+v", got.Settings)
	}
}

func TestDocuments(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)

	put := func(kind model.DocumentKind, name string, data string) {
		t.Helper()
		if err := s.PutDocument(sess.ID, model.Document{Kind: kind, Filename: name, MediaType: "image/png", Data: []byte(data)}); err != nil {
			t.Fatalf("PutDocument: %v", err)
		}
	}
	put(model.DocAnswerSheet, "a1.png", "first")
	put(model.DocQuestionPaper, "q.png", "paper")
	put(model.DocAnswerSheet, "a2.png", "second")

	docs, err := s.ListDocuments(sess.ID)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if d := docs[model.DocAnswerSheet]; d.Filename != "a2.png" || string(d.Data) != "second" {
		t.Errorf("replacement not applied: %+v", d)
	}

	if err := s.RemoveDocument(sess.ID, model.DocAnswerSheet); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if err := s.RemoveDocument(sess.ID, model.DocSyllabus); err != nil {
		t.Fatalf("RemoveDocument on empty slot: %v", err)
	}
	got, _ := s.GetSession(sess.ID)
	if got.Documents.Has(model.DocAnswerSheet) || !got.Documents.Has(model.DocQuestionPaper) {
		t.Errorf("documents after remove: %v", got.Documents.Summarize())
	}
}

func TestResultAndFailure(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)

	if err := s.SetStatus(sess.ID, model.StatusSubmitting); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := s.SetStatus(sess.ID, model.StatusSubmitting); !errors.Is(err, ErrBusy) {
		t.Errorf("second submit: err = %v, want ErrBusy", err)
	}

	if err := s.SaveFailure(sess.ID, "empty response from model", "", nil); err != nil {
		t.Fatalf("SaveFailure: %v", err)
	}
	got, _ := s.GetSession(sess.ID)
	if got.Status != model.StatusFailed || got.Failure == "" || got.Mode != model.ModeForm {
		t.Errorf("after failure status=%s failure=%q mode=%s", got.Status, got.Failure, got.Mode)
	}

	result := model.NewValue(map[string]any{"overall_score": map[string]any{"total_marks": 80.0}})
	run := model.RunInfo{ID: "run-1", Provider: "fake", Model: "m", StartedAt: time.Now().Add(-time.Second), FinishedAt: time.Now()}
	if err := s.SaveResult(sess.ID, run, result, "{}", []string{"syllabus omitted"}); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, _ = s.GetSession(sess.ID)
	if !got.CanChat() || got.Mode != model.ModeReport || got.Status != model.StatusSucceeded {
		t.Errorf("after result mode=%s status=%s", got.Mode, got.Status)
	}
	if got.Failure != "" {
		t.Error("failure should be cleared by a successful result")
	}
	if got.Result.Get("overall_score", "total_marks").Int(0) != 80 {
		t.Errorf("result = %s", got.Result.JSON(false))
	}
	if got.Run.ID != "run-1" || got.Run.StartedAt.IsZero() {
		t.Errorf("run info = %+v", got.Run)
	}
	if len(got.Warnings) != 1 {
		t.Errorf("warnings = %v", got.Warnings)
	}

	exp, err := s.ExportSession(sess.ID)
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}
	if exp == nil || exp.RunInfo.Provider != "fake" || exp.Settings.Subject != "Mathematics" {
		t.Errorf("export = %+v", exp)
	}
}

func TestExportWithoutResult(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)
	exp, err := s.ExportSession(sess.ID)
	if err != nil {
		t.Fatalf("ExportSession: %v", err)
	}
	if exp != nil {
		t.Error("expected nil export without a result")
	}
}

func TestTurnsKeepOrder(t *testing.T) {
	s := newTestStore(t)
	sess := newTestSession(t, s)

	const n = 4
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			if err := s.AppendExchange(sess.ID, "question", "answer"); err != nil {
				t.Fatalf("AppendExchange: %v", err)
			}
			continue
		}
		if _, err := s.AppendTurn(sess.ID, model.RoleUser, "question"); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
		if _, err := s.AppendTurn(sess.ID, model.RoleAssistant, "answer"); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	turns, err := s.ListTurns(sess.ID)
	if err != nil {
		t.Fatalf("ListTurns: %v", err)
	}
	if len(turns) != 2*n {
		t.Fatalf("expected %d turns, got %d", 2*n, len(turns))
	}
	for i, turn := range turns {
		want := model.RoleUser
		if i%2 == 1 {
			want = model.RoleAssistant
		}
		if turn.Role != want {
			t.Errorf("turn %d role = %s, want %s", i, turn.Role, want)
		}
		if i > 0 && turn.ID <= turns[i-1].ID {
			t.Errorf("turn %d out of order", i)
		}
	}

	// A new result replaces the transcript in the same write.
	result, _ := model.ParseValue([]byte(`{"a": 1}`))
	if err := s.SaveResult(sess.ID, model.RunInfo{ID: "run-2"}, result, `{"a": 1}`, nil); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if turns, _ := s.ListTurns(sess.ID); len(turns) != 0 {
		t.Errorf("expected empty transcript, got %d", len(turns))
	}
	if err := s.SaveResult("missing", model.RunInfo{}, result, "", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveResult on missing session: err = %v, want ErrNotFound", err)
	}
}

func TestReopenFailsInterruptedAnalysis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviewer.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess := newTestSession(t, s)
	if err := s.SetStatus(sess.ID, model.StatusSubmitting); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	s.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	got, err := reopened.GetSession(sess.ID)
	if err != nil || got == nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != model.StatusFailed {
		t.Errorf("status = %s, want %s", got.Status, model.StatusFailed)
	}
	if err := reopened.SetStatus(sess.ID, model.StatusSubmitting); err != nil {
		t.Errorf("a new analysis should be accepted after reopen: %v", err)
	}
}

func TestExpiry(t *testing.T) {
	s := newTestStore(t)

	expired, err := s.CreateSession(model.EvaluationSettings{}, -time.Minute)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := s.AppendTurn(expired.ID, model.RoleUser, "old"); err != nil {
		t.Fatalf("AppendTurn: %v", err)
	}
	live := newTestSession(t, s)

	n, err := s.CleanupExpired()
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired session removed, got %d", n)
	}
	if got, _ := s.GetSession(live.ID); got == nil {
		t.Error("live session should survive cleanup")
	}

	short, _ := s.CreateSession(model.EvaluationSettings{}, -time.Second)
	if got, _ := s.GetSession(short.ID); got != nil {
		t.Error("expired session should read as missing")
	}
	if err := s.Touch(live.ID, 2*time.Hour); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, _ := s.GetSession(live.ID)
	if time.Until(got.ExpiresAt) < time.Hour {
		t.Errorf("Touch should extend expiry, got %v", got.ExpiresAt)
	}
}
