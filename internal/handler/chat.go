package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/reviewer/internal/handler/views"
	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/llm"
	"github.com/pavelanni/reviewer/internal/model"
)

type quickQuestion struct {
	views.QuickQuestion
	Text string
}

// quickQuestions are the one-click chat prompts, in display order.
var quickQuestions = []quickQuestion{
	{views.QuickQuestion{Key: "study-first", LabelID: "QuickStudyFirst"}, "Based on my weak topics, what should I focus on first to improve?"},
	{views.QuickQuestion{Key: "accuracy", LabelID: "QuickAccuracy"}, "I noticed some calculation errors. How can I improve my accuracy?"},
	{views.QuickQuestion{Key: "score", LabelID: "QuickScore"}, "What is a realistic score improvement I can achieve if I fix my errors?"},
}

func quickQuestionText(key string) (string, bool) {
	for _, q := range quickQuestions {
		if q.Key == key {
			return q.Text, true
		}
	}
	return "", false
}

func (h *Handler) chatView(sess *model.Session, flash []string) views.Chat {
	c := views.Chat{
		Header: views.NewReport(sess.Result, sess.Settings).Header,
		Turns:  views.NewTurns(sess.Turns),
		Flash:  flash,
	}
	for _, q := range quickQuestions {
		c.QuickQuestions = append(c.QuickQuestions, q.QuickQuestion)
	}
	return c
}

func (h *Handler) handleEnterChat(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if !sess.CanChat() {
		h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "NoResult"))
		h.setMode(w, r, model.ModeForm)
		return
	}
	h.setMode(w, r, model.ModeChat)
}

// handleAsk appends the question and the tutor's answer to the transcript.
// A failed call is recorded as an assistant turn carrying the error.
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if !sess.CanChat() {
		h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "NoResult"))
		h.redirectHome(w, r)
		return
	}

	question := strings.TrimSpace(r.FormValue("question"))
	if key := r.FormValue("quick"); key != "" {
		text, ok := quickQuestionText(key)
		if !ok {
			http.Error(w, "unknown quick question", http.StatusBadRequest)
			return
		}
		question = text
	}
	if question == "" {
		h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "EmptyQuestion"))
		h.redirectHome(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.LLMTimeout)
	answer, err := h.llm.AskFollowUp(ctx, settingsOf(sess), sess.Result, question)
	cancel()
	if err != nil {
		slog.Error("follow-up chat failed", "error", err)
		cause := err
		var chatErr *llm.ChatCallError
		if errors.As(err, &chatErr) && chatErr.Err != nil {
			cause = chatErr.Err
		}
		answer = appI18n.Td(r.Context(), "ChatError", map[string]any{"Error": cause.Error()})
	}

	if err := h.store.AppendExchange(sess.ID, question, answer); err != nil {
		h.serverError(w, r, err)
		return
	}
	if sess.Mode != model.ModeChat {
		if err := h.store.SetMode(sess.ID, model.ModeChat); err != nil {
			h.serverError(w, r, err)
			return
		}
	}
	h.redirectHome(w, r)
}
