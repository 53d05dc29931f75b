package store

import (
	"time"

	"github.com/pavelanni/reviewer/internal/model"
)

// AppendTurn adds a chat turn to the end of the session transcript.
func (s *Store) AppendTurn(sessionID string, role model.Role, content string) (model.ChatTurn, error) {
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO chat_turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now,
	)
	if err != nil {
		return model.ChatTurn{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ChatTurn{}, err
	}
	return model.ChatTurn{ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: now}, nil
}

// ListTurns returns the session transcript in insertion order.
func (s *Store) ListTurns(sessionID string) ([]model.ChatTurn, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, role, content, created_at FROM chat_turns WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.ChatTurn
	for rows.Next() {
		var t model.ChatTurn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AppendExchange adds a question and its answer as one unit, so the
// transcript keeps alternating even when a write fails.
func (s *Store) AppendExchange(sessionID, question, answer string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	for _, t := range []struct {
		role    model.Role
		content string
	}{
		{model.RoleUser, question},
		{model.RoleAssistant, answer},
	} {
		if _, err := tx.Exec(
			`INSERT INTO chat_turns (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			sessionID, t.role, t.content, now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}
