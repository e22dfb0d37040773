package store

import (
	"context"
	"fmt"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

// CreateComment appends one activity entry.
func (s *Store) CreateComment(ctx context.Context, c models.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, finding_id, author, content, action_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.FindingID, c.Author, c.Content, c.ActionType, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListComments returns a finding's activity trail oldest first. The
// autoincrement seq breaks ties between entries written in the same
// timestamp tick.
func (s *Store) ListComments(ctx context.Context, findingID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, finding_id, author, content, action_type, created_at
		FROM comments WHERE finding_id = ?
		ORDER BY created_at ASC, seq ASC`, findingID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.FindingID, &c.Author, &c.Content, &c.ActionType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CreateSignal journals one raw ingestion event.
func (s *Store) CreateSignal(ctx context.Context, sig models.Signal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (id, tool, payload, created_at)
		VALUES (?, ?, ?, ?)`,
		sig.ID, sig.Tool, sig.Payload, sig.CreatedAt)
	if err != nil {
		return fmt.Errorf("create signal: %w", err)
	}
	return nil
}

// ListSignals returns the most recent journal entries, newest first.
func (s *Store) ListSignals(ctx context.Context, limit int) ([]models.Signal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tool, payload, created_at
		FROM signals ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	signals := []models.Signal{}
	for rows.Next() {
		var sig models.Signal
		if err := rows.Scan(&sig.ID, &sig.Tool, &sig.Payload, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}
