package store

import (
	"time"

	"github.com/pavelanni/reviewer/internal/model"
)

// PutDocument attaches doc to its slot, replacing any earlier upload.
func (s *Store) PutDocument(sessionID string, doc model.Document) error {
	_, err := s.db.Exec(
		`INSERT INTO documents (session_id, kind, filename, media_type, data, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, kind) DO UPDATE SET
		   filename = excluded.filename, media_type = excluded.media_type,
		   data = excluded.data, uploaded_at = excluded.uploaded_at`,
		sessionID, doc.Kind, doc.Filename, doc.MediaType, doc.Data, time.Now(),
	)
	return err
}

// RemoveDocument clears a slot. Removing an empty slot is not an error.
func (s *Store) RemoveDocument(sessionID string, kind model.DocumentKind) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE session_id = ? AND kind = ?`, sessionID, kind)
	return err
}

// ListDocuments returns the documents attached to a session keyed by slot.
func (s *Store) ListDocuments(sessionID string) (model.Documents, error) {
	rows, err := s.db.Query(
		`SELECT kind, filename, media_type, data FROM documents WHERE session_id = ?`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := model.Documents{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.Kind, &d.Filename, &d.MediaType, &d.Data); err != nil {
			return nil, err
		}
		docs[d.Kind] = &d
	}
	return docs, rows.Err()
}
