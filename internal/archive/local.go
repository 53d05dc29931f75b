package archive

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pavelanni/reviewer/internal/model"
)

// LocalSink writes documents below a directory on disk.
type LocalSink struct {
	Dir string
}

func (l LocalSink) Name() string { return "local" }

func (l LocalSink) Archive(_ context.Context, folder string, doc model.Document) (string, error) {
	dst := filepath.Join(l.Dir, filepath.FromSlash(Path(folder, doc)))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, doc.Data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}
