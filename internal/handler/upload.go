package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/reviewer/internal/i18n"
	"github.com/pavelanni/reviewer/internal/model"
)

// acceptedTypes are the document formats the upload slots take.
var acceptedTypes = []string{"application/pdf", "text/plain", "image/png", "image/jpeg"}

func slotKind(r *http.Request) (model.DocumentKind, bool) {
	kind := model.DocumentKind(chi.URLParam(r, "kind"))
	return kind, kind.Valid()
}

// DetectMediaType identifies the content by its bytes; the browser supplied
// type is not trusted. Parameters such as charset are dropped.
func DetectMediaType(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), acceptedTypes...) {
		return "", fmt.Errorf("unsupported file type %s", mt.String())
	}
	base, _, _ := strings.Cut(mt.String(), ";")
	return base, nil
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	kind, ok := slotKind(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	reject := func(err error) {
		slog.Info("upload rejected", "kind", kind, "error", err)
		h.sessions.addFlash(sess.ID, appI18n.Td(r.Context(), "UploadRejected", map[string]any{"Error": err.Error()}))
		h.redirectHome(w, r)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "UploadMissingFile"))
		h.redirectHome(w, r)
		return
	}
	defer file.Close()

	limit := int64(h.config.MaxUploadMB) << 20
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		reject(err)
		return
	}
	if int64(len(data)) > limit {
		reject(fmt.Errorf("file exceeds %d MB", h.config.MaxUploadMB))
		return
	}
	if len(data) == 0 {
		h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "UploadMissingFile"))
		h.redirectHome(w, r)
		return
	}

	mediaType, err := DetectMediaType(data)
	if err != nil {
		reject(err)
		return
	}

	doc := model.Document{
		Kind:      kind,
		Filename:  filepath.Base(header.Filename),
		MediaType: mediaType,
		Data:      data,
	}
	if err := h.store.PutDocument(sess.ID, doc); err != nil {
		h.serverError(w, r, err)
		return
	}
	slog.Info("document attached", "kind", kind, "media_type", mediaType, "bytes", len(data))
	h.sessions.addFlash(sess.ID, appI18n.Td(r.Context(), "DocumentSaved", map[string]any{"File": doc.Filename}))
	h.redirectHome(w, r)
}

func (h *Handler) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	kind, ok := slotKind(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := h.store.RemoveDocument(sess.ID, kind); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.sessions.addFlash(sess.ID, appI18n.T(r.Context(), "DocumentRemoved"))
	h.redirectHome(w, r)
}
