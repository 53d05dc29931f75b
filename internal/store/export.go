package store

import (
	"fmt"

	"github.com/pavelanni/reviewer/internal/model"
)

// ExportSession builds the downloadable record of the session's current
// result, or nil if the session has no result.
func (s *Store) ExportSession(id string) (*model.AnalysisExport, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if !sess.HasResult() {
		return nil, nil
	}

	exp := &model.AnalysisExport{
		RunInfo:   sess.Run,
		Documents: sess.Documents.Summarize(),
		Warnings:  sess.Warnings,
		Result:    sess.Result,
	}
	if sess.Settings != nil {
		exp.Settings = *sess.Settings
	}
	return exp, nil
}
