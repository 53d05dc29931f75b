package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pavelanni/reviewer/internal/classconfig"
	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/model"
)

const sessionCookieName = "reviewer_session"

// sessionState is the process-local companion of a stored session: the lock
// that serializes its mutating requests and pending flash messages.
type sessionState struct {
	sync.Mutex
	used  time.Time
	flash []string
}

type sessionStates struct {
	mu sync.Mutex
	m  map[string]*sessionState
}

func newSessionStates() *sessionStates {
	return &sessionStates{m: make(map[string]*sessionState)}
}

func (s *sessionStates) get(id string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	if !ok {
		st = &sessionState{}
		s.m[id] = st
	}
	st.used = time.Now()
	return st
}

func (s *sessionStates) addFlash(id, msg string) {
	st := s.get(id)
	s.mu.Lock()
	st.flash = append(st.flash, msg)
	s.mu.Unlock()
}

func (s *sessionStates) popFlash(id string) []string {
	st := s.get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	flash := st.flash
	st.flash = nil
	return flash
}

func (s *sessionStates) drop(id string) {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
}

// prune forgets idle, unlocked states last used before cutoff.
func (s *sessionStates) prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.m {
		if st.used.After(cutoff) || !st.TryLock() {
			continue
		}
		st.Unlock()
		delete(s.m, id)
		n++
	}
	return n
}

// startSession creates a session with the first class's defaults and sets its cookie.
func (h *Handler) startSession(w http.ResponseWriter) (*model.Session, error) {
	settings := h.classes.Load(classconfig.Classes[0]).DefaultSettings()
	sess, err := h.store.CreateSession(settings, h.config.SessionTTL)
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     h.cookiePath(),
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Debug("session started", "session", sess.ID[:8])
	return sess, nil
}

// sessionMiddleware loads the caller's session, starting one when the cookie
// is missing or the session expired, and extends its lifetime.
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *model.Session
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			sess, err = h.store.GetSession(cookie.Value)
			if err != nil {
				h.serverError(w, r, err)
				return
			}
		}

		if sess == nil {
			var err error
			if sess, err = h.startSession(w); err != nil {
				h.serverError(w, r, err)
				return
			}
		} else if err := h.store.Touch(sess.ID, h.config.SessionTTL); err != nil {
			slog.Warn("failed to extend session", "error", err)
		}

		ctx := model.ContextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// serialize runs one mutating request per session at a time. The session is
// reloaded once the lock is held so the handler sees the latest state.
func (h *Handler) serialize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := model.SessionFromContext(r.Context())
		st := h.sessions.get(sess.ID)
		st.Lock()
		defer st.Unlock()
		h.withFreshSession(w, r, next)
	})
}

// exclusive is serialize for long requests: a second request while one holds
// the lock is turned away instead of queued.
func (h *Handler) exclusive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := model.SessionFromContext(r.Context())
		st := h.sessions.get(sess.ID)
		if !st.TryLock() {
			h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "FailBusy"))
			h.redirectHome(w, r)
			return
		}
		defer st.Unlock()
		h.withFreshSession(w, r, next)
	})
}

func (h *Handler) withFreshSession(w http.ResponseWriter, r *http.Request, next http.Handler) {
	sess := model.SessionFromContext(r.Context())
	fresh, err := h.store.GetSession(sess.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if fresh == nil {
		h.redirectHome(w, r)
		return
	}
	next.ServeHTTP(w, r.WithContext(model.ContextWithSession(r.Context(), fresh)))
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	if err := h.store.DeleteSession(sess.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.sessions.drop(sess.ID)

	next, err := h.startSession(w)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.sessions.addFlash(next.ID, appI18n.T(r.Context(), "SessionEnded"))
	h.redirectHome(w, r)
}

// Sweep deletes expired sessions every interval until ctx is done.
func (h *Handler) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := h.store.CleanupExpired()
			if err != nil {
				slog.Error("session cleanup failed", "error", err)
				continue
			}
			pruned := h.sessions.prune(time.Now().Add(-h.config.SessionTTL))
			if n > 0 || pruned > 0 {
				slog.Info("expired sessions removed", "sessions", n, "states", pruned)
			}
		}
	}
}
