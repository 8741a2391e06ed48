// Package testutil provides deterministic test doubles for the
// scheduling core.
package testutil

import (
	"fmt"
	"sync"
)

// FixedTokens returns predetermined session tokens, enabling
// deterministic golden comparison of schedules. After the provided
// tokens run out it falls back to "token-N" counting from the number
// provided.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokens creates a generator yielding the given tokens in order.
func NewFixedTokens(tokens ...string) *FixedTokens {
	return &FixedTokens{tokens: tokens}
}

// Generate implements player.TokenGenerator.
func (f *FixedTokens) Generate() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx < len(f.tokens) {
		t := f.tokens[f.idx]
		f.idx++
		return t
	}
	f.idx++
	return fmt.Sprintf("token-%d", f.idx)
}
