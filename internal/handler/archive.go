package handler

import (
	"net/http"
	"time"

	"github.com/pavelanni/reviewer/internal/archive"
	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/model"
)

func (h *Handler) archiveEnabled() bool {
	_, nop := h.sink.(archive.NopSink)
	return !nop
}

// handleArchive copies the session's documents to the archival sink.
// Failures are reported as flash messages and never change the session.
func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	ctx := r.Context()
	if !h.archiveEnabled() {
		h.sessions.addFlash(sess.ID, appI18n.T(ctx, "ArchiveDisabled"))
		h.redirectHome(w, r)
		return
	}

	folder := archive.NewFolder(time.Now())
	ok := 0
	for _, res := range archive.All(ctx, h.sink, folder, sess.Documents) {
		if res.Err != nil {
			h.sessions.addFlash(sess.ID, appI18n.Td(ctx, "ArchiveFailed", map[string]any{
				"Slot":  appI18n.T(ctx, "Slot_"+string(res.Kind)),
				"Error": res.Err.Error(),
			}))
			continue
		}
		ok++
	}
	h.sessions.addFlash(sess.ID, appI18n.Tp(ctx, "ArchivedDocuments", ok))
	h.redirectHome(w, r)
}
