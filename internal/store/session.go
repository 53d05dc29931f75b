package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/reviewer/internal/model"
)

// ErrNotFound is returned when updating a session that does not exist.
var ErrNotFound = errors.New("session not found")

// CreateSession starts a session in form mode with the given settings.
func (s *Store) CreateSession(settings model.EvaluationSettings, ttl time.Duration) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, settings, mode, status, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		token, string(raw), model.ModeForm, model.StatusIdle, now, now.Add(ttl),
	)
	if err != nil {
		return nil, err
	}
	return &model.Session{
		ID:        token,
		Settings:  &settings,
		Documents: model.Documents{},
		Mode:      model.ModeForm,
		Status:    model.StatusIdle,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// GetSession loads a session with its documents and transcript, or nil if
// not found or expired.
func (s *Store) GetSession(id string) (*model.Session, error) {
	var (
		sess                    model.Session
		settings, result, warns string
		startedAt, finishedAt   sql.NullTime
	)
	err := s.db.QueryRow(
		`SELECT id, settings, mode, status, result, failure, raw_output, warnings,
		        run_id, provider, model, started_at, finished_at, created_at, expires_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &settings, &sess.Mode, &sess.Status, &result, &sess.Failure, &sess.RawOutput, &warns,
		&sess.Run.ID, &sess.Run.Provider, &sess.Run.Model, &startedAt, &finishedAt, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteSession(id)
		return nil, nil
	}

	if settings != "" {
		var es model.EvaluationSettings
		if err := json.Unmarshal([]byte(settings), &es); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
		sess.Settings = &es
	}
	if result != "" {
		if sess.Result, err = model.ParseValue([]byte(result)); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(warns), &sess.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	sess.Run.StartedAt = startedAt.Time
	sess.Run.FinishedAt = finishedAt.Time

	if sess.Documents, err = s.ListDocuments(id); err != nil {
		return nil, err
	}
	if sess.Turns, err = s.ListTurns(id); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Touch extends the session lifetime by ttl from now.
func (s *Store) Touch(id string, ttl time.Duration) error {
	return s.update(`UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().Add(ttl), id)
}

// SaveSettings replaces the session's evaluation settings.
func (s *Store) SaveSettings(id string, settings model.EvaluationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.update(`UPDATE sessions SET settings = ? WHERE id = ?`, string(raw), id)
}

// SetMode records which view the session shows.
func (s *Store) SetMode(id string, mode model.Mode) error {
	return s.update(`UPDATE sessions SET mode = ? WHERE id = ?`, mode, id)
}

// SetStatus records the analysis status. Moving to submitting is atomic:
// it fails with ErrBusy when another analysis is already in flight.
func (s *Store) SetStatus(id string, status model.AnalysisStatus) error {
	if status != model.StatusSubmitting {
		return s.update(`UPDATE sessions SET status = ? WHERE id = ?`, status, id)
	}
	res, err := s.db.Exec(`UPDATE sessions SET status = ? WHERE id = ? AND status != ?`, status, id, model.StatusSubmitting)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrBusy
	}
	return nil
}

// ErrBusy is returned when an analysis is already running for the session.
var ErrBusy = errors.New("analysis already in progress")

// SaveResult stores a successful analysis, replacing any earlier one along
// with its chat transcript, and switches the session to report mode.
func (s *Store) SaveResult(id string, run model.RunInfo, result model.Value, raw string, warnings []string) error {
	warns, err := json.Marshal(nonNil(warnings))
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE sessions SET result = ?, raw_output = ?, warnings = ?, failure = '', status = ?, mode = ?,
		        run_id = ?, provider = ?, model = ?, started_at = ?, finished_at = ?
		 WHERE id = ?`,
		result.JSON(false), raw, string(warns), model.StatusSucceeded, model.ModeReport,
		run.ID, run.Provider, run.Model, run.StartedAt, run.FinishedAt, id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM chat_turns WHERE session_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveFailure records a failed analysis. The form state and any earlier
// result are kept.
func (s *Store) SaveFailure(id, failure, raw string, warnings []string) error {
	warns, err := json.Marshal(nonNil(warnings))
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	return s.update(
		`UPDATE sessions SET failure = ?, raw_output = ?, warnings = ?, status = ? WHERE id = ?`,
		failure, raw, string(warns), model.StatusFailed, id,
	)
}

// DeleteSession removes a session with its documents and transcript.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM chat_turns WHERE session_id = ?`,
		`DELETE FROM documents WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CleanupExpired removes all expired sessions and returns how many were removed.
func (s *Store) CleanupExpired() (int64, error) {
	now := time.Now()
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM chat_turns WHERE session_id IN (SELECT id FROM sessions WHERE expires_at < ?)`,
		`DELETE FROM documents WHERE session_id IN (SELECT id FROM sessions WHERE expires_at < ?)`,
	} {
		if _, err := tx.Exec(q, now); err != nil {
			return 0, err
		}
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// failInterrupted marks analyses left in submitting by an earlier process
// as failed. No analysis survives a restart.
func (s *Store) failInterrupted() error {
	res, err := s.db.Exec(`UPDATE sessions SET status = ? WHERE status = ?`, model.StatusFailed, model.StatusSubmitting)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Warn("marked interrupted analyses as failed", "sessions", n)
	}
	return nil
}

func (s *Store) update(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
