package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadenza/internal/backend"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSession(ctx, "tok-1", "drums", 1.5))
	ops := []backend.Op{
		{Seq: 2, Node: "sample#1", Param: "gain.value", Kind: backend.OpSetValue, Value: 0.001, At: 1.5},
		{Seq: 3, Node: "sample#1", Param: "gain.value", Kind: backend.OpExponentialRamp, Value: 1, At: 1.55},
		{Seq: 1, Node: "sample#1", Kind: backend.OpConnect, Target: "gain#1", At: 1.5},
		{Seq: 4, Node: "sample#1", Kind: backend.OpStart, At: 1.5},
	}
	require.NoError(t, s.WriteOps(ctx, "tok-1", ops))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, SessionRecord{Token: "tok-1", Sound: "drums", Anchor: 1.5}, sessions[0])

	got, err := s.Ops(ctx, "tok-1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	// Execution order: same time resolves by seq.
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, int64(2), got[1].Seq)
	assert.Equal(t, int64(4), got[2].Seq)
	assert.Equal(t, backend.OpExponentialRamp, got[3].Kind)
	assert.Equal(t, 1.55, got[3].At)
}

func TestStore_WritesAreIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteSession(ctx, "tok-1", "drums", 0))
	require.NoError(t, s.WriteSession(ctx, "tok-1", "drums", 0))

	op := []backend.Op{{Seq: 1, Node: "n", Kind: backend.OpStart, At: 0}}
	require.NoError(t, s.WriteOps(ctx, "tok-1", op))
	require.NoError(t, s.WriteOps(ctx, "tok-1", op))

	got, err := s.Ops(ctx, "tok-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_OpsRequireSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WriteOps(ctx, "ghost", []backend.Op{{Seq: 1, Node: "n", Kind: backend.OpStart}})
	assert.Error(t, err, "foreign key enforcement")
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.WriteSession(context.Background(), "tok", "x", 0))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	sessions, err := s2.Sessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
