package handler

import (
	"net/http"
	"slices"

	"github.com/pavelanni/reviewer/internal/classconfig"
	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/model"
)

// handleClass switches the form to another class and resets the settings to
// that class's defaults.
func (h *Handler) handleClass(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	class := r.FormValue("class")
	if !classconfig.IsValidClass(class) {
		http.Error(w, "unknown class", http.StatusBadRequest)
		return
	}

	cfg := h.classes.Load(class)
	settings := cfg.DefaultSettings()
	if cur := sess.Settings; cur != nil && len(cur.FocusAreas) > 0 {
		settings.FocusAreas = cur.FocusAreas
	}
	if err := h.store.SaveSettings(sess.ID, settings); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectHome(w, r)
}

// handleSettings stores the submitted form selection. Values that are not
// offered for the class fall back to the class default.
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	class := r.FormValue("class")
	if !classconfig.IsValidClass(class) {
		class = settingsOf(sess).Class
	}
	settings := buildSettings(h.classes.Load(class), r)

	if err := h.store.SaveSettings(sess.ID, settings); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "SettingsSaved"))
	h.redirectHome(w, r)
}

func buildSettings(cfg *classconfig.ClassConfig, r *http.Request) model.EvaluationSettings {
	s := cfg.DefaultSettings()
	s.Subject = choose(r.FormValue("subject"), cfg.AvailableSubjects, s.Subject)
	s.Board = choose(r.FormValue("board"), cfg.Boards, s.Board)
	s.ExamType = choose(r.FormValue("exam_type"), cfg.ExamTypes, s.ExamType)
	s.StrictnessLabel = choose(r.FormValue("strictness"), cfg.CheckingStrictness.Options, s.StrictnessLabel)
	s.Strictness = model.ParseStrictness(s.StrictnessLabel)
	s.AnswerDepth = choose(r.FormValue("answer_depth"), cfg.AnswerDepth.Options, s.AnswerDepth)
	s.FeedbackTone = choose(r.FormValue("feedback_tone"), cfg.FeedbackTone.Options, s.FeedbackTone)
	s.ExplanationLevel = choose(r.FormValue("explanation_level"), cfg.ExplanationLevel.Options, s.ExplanationLevel)
	s.KeyTopics = cfg.Topics(s.Subject)

	s.FocusAreas = nil
	for _, fa := range r.Form["focus_areas"] {
		if slices.Contains(classconfig.FocusAreas, fa) && !slices.Contains(s.FocusAreas, fa) {
			s.FocusAreas = append(s.FocusAreas, fa)
		}
	}
	return s
}

func choose(v string, options []string, def string) string {
	if slices.Contains(options, v) {
		return v
	}
	return def
}
