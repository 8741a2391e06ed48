package trace

import (
	"context"
	"fmt"

	"github.com/roach88/cadenza/internal/backend"
)

// SessionRecord is one logged playback session.
type SessionRecord struct {
	Token  string  `json:"token"`
	Sound  string  `json:"sound"`
	Anchor float64 `json:"anchor"`
}

// Sessions returns every logged session ordered by token. UUIDv7
// tokens sort by creation time, so this is chronological for
// production tokens.
func (s *Store) Sessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, sound, anchor FROM sessions ORDER BY token
	`)
	if err != nil {
		return nil, fmt.Errorf("trace: read sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.Token, &r.Sound, &r.Anchor); err != nil {
			return nil, fmt.Errorf("trace: read sessions: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace: read sessions: %w", err)
	}
	return out, nil
}

// Ops returns a session's operations in execution order (at, seq).
func (s *Store) Ops(ctx context.Context, token string) ([]backend.Op, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, node, param, kind, value, target, at
		FROM ops WHERE token = ?
		ORDER BY at, seq
	`, token)
	if err != nil {
		return nil, fmt.Errorf("trace: read ops: %w", err)
	}
	defer rows.Close()

	var out []backend.Op
	for rows.Next() {
		var op backend.Op
		var kind string
		if err := rows.Scan(&op.Seq, &op.Node, &op.Param, &kind, &op.Value, &op.Target, &op.At); err != nil {
			return nil, fmt.Errorf("trace: read ops: %w", err)
		}
		op.Kind = backend.OpKind(kind)
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace: read ops: %w", err)
	}
	return out, nil
}
