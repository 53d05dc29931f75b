package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/llm"
	"github.com/pavelanni/reviewer/internal/model"
	"github.com/pavelanni/reviewer/internal/store"
)

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())

	if errs := Validate(h.validate, sess.Settings, sess.Documents); len(errs) > 0 {
		slog.Info("analysis blocked by validation", "errors", len(errs))
		h.redirectHome(w, r)
		return
	}

	if err := h.store.SetStatus(sess.ID, model.StatusSubmitting); err != nil {
		if errors.Is(err, store.ErrBusy) {
			h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "FailBusy"))
			h.redirectHome(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}

	// A run that ends without storing an outcome, including by panic, must
	// not leave the session stuck in submitting.
	finalized := false
	defer func() {
		if finalized {
			return
		}
		slog.Warn("analysis ended without a stored outcome")
		if err := h.store.SaveFailure(sess.ID, appI18n.T(r.Context(), "FailInterrupted"), "", nil); err != nil {
			slog.Error("failed to release interrupted analysis", "error", err)
		}
	}()

	settings := *sess.Settings
	run := model.RunInfo{
		ID:        uuid.NewString(),
		Provider:  h.llm.Provider(),
		Model:     h.llm.Model(),
		StartedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.LLMTimeout)
	out, err := h.llm.Analyze(ctx, settings, sess.Documents)
	cancel()
	run.FinishedAt = time.Now().UTC()

	var warnings []string
	if out != nil {
		for _, ue := range out.Warnings {
			warnings = append(warnings, appI18n.Td(r.Context(), "UploadOmitted", map[string]any{
				"Slot":  appI18n.T(r.Context(), "Slot_"+string(ue.Kind)),
				"File":  ue.Filename,
				"Error": ue.Err.Error(),
			}))
		}
	}

	if err != nil {
		slog.Error("analysis failed", "run", run.ID, "error", err)
		var raw string
		var malformed *llm.MalformedJSONError
		if errors.As(err, &malformed) {
			raw = malformed.Raw
		}
		if serr := h.store.SaveFailure(sess.ID, h.failureMessage(r.Context(), err), raw, warnings); serr != nil {
			h.serverError(w, r, serr)
			return
		}
		finalized = true
		if serr := h.store.SetMode(sess.ID, model.ModeForm); serr != nil {
			h.serverError(w, r, serr)
			return
		}
		h.redirectHome(w, r)
		return
	}

	if err := h.store.SaveResult(sess.ID, run, out.Result, out.Raw, warnings); err != nil {
		h.serverError(w, r, err)
		return
	}
	finalized = true
	slog.Info("analysis stored", "run", run.ID, "elapsed", run.FinishedAt.Sub(run.StartedAt))
	h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "AnalysisComplete"))
	h.redirectHome(w, r)
}

// failureMessage turns an analysis error into the message shown on the form.
func (h *Handler) failureMessage(ctx context.Context, err error) string {
	var malformed *llm.MalformedJSONError
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		return appI18n.T(ctx, "FailEmpty")
	case errors.As(err, &malformed):
		return appI18n.Td(ctx, "FailMalformed", map[string]any{"Error": malformed.Err.Error()})
	default:
		return appI18n.Td(ctx, "FailCall", map[string]any{"Error": err.Error()})
	}
}
