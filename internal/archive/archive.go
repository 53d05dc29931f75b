// Package archive copies submitted exam documents to long-term storage.
// Archival is best-effort: callers report failures but never block on them.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/reviewer/internal/metrics"
	"github.com/pavelanni/reviewer/internal/model"
)

// Root is the top-level directory of every archived path.
const Root = "database"

// Sink stores one document under a session folder and returns its location.
type Sink interface {
	Name() string
	Archive(ctx context.Context, folder string, doc model.Document) (string, error)
}

// NewFolder names the folder for one archival run: a timestamp plus a short
// random ID so concurrent sessions never collide.
func NewFolder(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// Path returns the archive path of doc inside folder.
func Path(folder string, doc model.Document) string {
	name := filepath.Base(strings.ReplaceAll(doc.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "document"
	}
	return path.Join(Root, folder, string(doc.Kind)+"_"+name)
}

// Result is the outcome of archiving one document.
type Result struct {
	Kind     model.DocumentKind
	Location string
	Err      error
}

// All archives every attached document in slot order and reports each
// outcome. It never stops at the first failure.
func All(ctx context.Context, sink Sink, folder string, docs model.Documents) []Result {
	var results []Result
	for _, kind := range model.DocumentKinds {
		if !docs.Has(kind) {
			continue
		}
		loc, err := sink.Archive(ctx, folder, *docs[kind])
		outcome := "ok"
		if err != nil {
			outcome = "error"
			err = fmt.Errorf("archive %s: %w", kind, err)
			slog.Warn("archive failed", "sink", sink.Name(), "kind", kind, "error", err)
		}
		metrics.ArchiveOperations().WithLabelValues(sink.Name(), outcome).Inc()
		results = append(results, Result{Kind: kind, Location: loc, Err: err})
	}
	return results
}

// NopSink discards documents.
type NopSink struct{}

func (NopSink) Name() string { return "none" }

func (NopSink) Archive(_ context.Context, folder string, doc model.Document) (string, error) {
	return Path(folder, doc), nil
}
