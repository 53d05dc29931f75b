package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavelanni/reviewer/internal/archive"
	"github.com/pavelanni/reviewer/internal/classconfig"
	"github.com/pavelanni/reviewer/internal/handler/views"
	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/llm"
	"github.com/pavelanni/reviewer/internal/model"
	"github.com/pavelanni/reviewer/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	llm      *llm.Client
	classes  *classconfig.Loader
	sink     archive.Sink
	config   model.Config
	validate *validator.Validate
	sessions *sessionStates
}

// New creates a new Handler. A nil sink disables archiving.
func New(s *store.Store, l *llm.Client, classes *classconfig.Loader, sink archive.Sink, cfg model.Config) (*Handler, error) {
	if s == nil || l == nil || classes == nil {
		return nil, fmt.Errorf("handler: store, llm client and class loader are required")
	}
	if sink == nil {
		sink = archive.NopSink{}
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &Handler{
		store:    s,
		llm:      l,
		classes:  classes,
		sink:     sink,
		config:   cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		sessions: newSessionStates(),
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Use(h.formMiddleware)
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handleIndex)
		r.Get("/export.json", h.handleExport)

		r.With(h.exclusive).Post("/analyze", h.handleAnalyze)

		r.Group(func(r chi.Router) {
			r.Use(h.serialize)
			r.Post("/class", h.handleClass)
			r.Post("/settings", h.handleSettings)
			r.Post("/documents/{kind}", h.handleUpload)
			r.Post("/documents/{kind}/remove", h.handleRemoveDocument)
			r.Post("/form", h.handleShowForm)
			r.Post("/report", h.handleShowReport)
			r.Post("/chat", h.handleEnterChat)
			r.Post("/chat/back", h.handleShowReport)
			r.Post("/chat/ask", h.handleAsk)
			r.Post("/archive", h.handleArchive)
			r.Post("/session/end", h.handleEndSession)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.renderStatus(w, r, http.StatusNotFound, views.ErrorPage(http.StatusNotFound, appI18n.T(r.Context(), "NotFound")))
	})
}

// BasePathMiddleware makes the configured URL prefix available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// path prefixes an application path with the base path.
func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	h.renderStatus(w, r, http.StatusOK, c)
}

func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	h.renderStatus(w, r, http.StatusInternalServerError, views.ErrorPage(http.StatusInternalServerError, err.Error()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		http.Error(w, "database: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	flash := h.sessions.popFlash(sess.ID)

	switch {
	case sess.Mode == model.ModeChat && sess.CanChat():
		h.render(w, r, views.ChatPage(h.chatView(sess, flash)))
	case sess.Mode == model.ModeReport && sess.HasResult():
		h.render(w, r, views.ReportPage(views.ReportPageData{
			Report:   views.NewReport(sess.Result, sess.Settings),
			Warnings: sess.Warnings,
			Flash:    flash,
			Archive:  h.archiveEnabled(),
		}))
	default:
		h.render(w, r, views.FormPage(h.formView(r.Context(), sess, flash)))
	}
}

func (h *Handler) formView(ctx context.Context, sess *model.Session, flash []string) views.Form {
	settings := settingsOf(sess)
	f := views.Form{
		Classes:     classconfig.Classes,
		Config:      h.classes.Load(settings.Class),
		Settings:    settings,
		FocusAreas:  classconfig.FocusAreas,
		Slots:       views.NewSlots(sess.Documents),
		Flash:       flash,
		Busy:        sess.Status == model.StatusSubmitting,
		HasResult:   sess.HasResult(),
		MaxUploadMB: h.config.MaxUploadMB,
	}
	for _, e := range Validate(h.validate, sess.Settings, sess.Documents) {
		f.Errors = append(f.Errors, e.Localize(ctx))
	}
	if sess.Status == model.StatusFailed {
		f.Failure = sess.Failure
		f.RawOutput = sess.RawOutput
		f.Warnings = sess.Warnings
	}
	return f
}

func (h *Handler) setMode(w http.ResponseWriter, r *http.Request, mode model.Mode) {
	sess := model.SessionFromContext(r.Context())
	if err := h.store.SetMode(sess.ID, mode); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.redirectHome(w, r)
}

func (h *Handler) handleShowForm(w http.ResponseWriter, r *http.Request) {
	h.setMode(w, r, model.ModeForm)
}

func (h *Handler) handleShowReport(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if !sess.HasResult() {
		h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "NoResult"))
		h.setMode(w, r, model.ModeForm)
		return
	}
	h.setMode(w, r, model.ModeReport)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	exp, err := h.store.ExportSession(sess.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if exp == nil {
		http.Error(w, appI18n.T(r.Context(), "NoResult"), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis_%s.json"`, exp.ID))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		slog.Error("encode export", "error", err)
	}
}

// settingsOf returns the session's settings or the zero value.
func settingsOf(sess *model.Session) model.EvaluationSettings {
	if sess == nil || sess.Settings == nil {
		return model.EvaluationSettings{}
	}
	return *sess.Settings
}
