package trace

import (
	"context"
	"fmt"

	"github.com/roach88/cadenza/internal/backend"
)

// WriteSession records one playback session. ON CONFLICT DO NOTHING
// keeps writes idempotent: re-recording a token is silently ignored.
func (s *Store) WriteSession(ctx context.Context, token, sound string, anchor float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, sound, anchor)
		VALUES (?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, sound, anchor)
	if err != nil {
		return fmt.Errorf("trace: write session: %w", err)
	}
	return nil
}

// WriteOps records scheduled operations under a session token. The
// session must exist (foreign key). Duplicate (token, seq) pairs are
// silently ignored, so re-recording a render is idempotent.
func (s *Store) WriteOps(ctx context.Context, token string, ops []backend.Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("trace: write ops: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ops (token, seq, node, param, kind, value, target, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("trace: write ops: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		if _, err := stmt.ExecContext(ctx,
			token, op.Seq, op.Node, op.Param, string(op.Kind), op.Value, op.Target, op.At,
		); err != nil {
			return fmt.Errorf("trace: write op seq %d: %w", op.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("trace: write ops: %w", err)
	}
	return nil
}
