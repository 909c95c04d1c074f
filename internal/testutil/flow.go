package testutil

import (
	"fmt"
	"sync"
)

// SequenceTokens generates "<prefix>-1", "<prefix>-2", ... in order.
//
// It stands in for the UUIDv7 generator wherever ids end up in assertions or
// golden files.
//
// Thread-safety: SequenceTokens is safe for concurrent use via internal mutex.
type SequenceTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceTokens creates a generator. An empty prefix uses "test".
func NewSequenceTokens(prefix string) *SequenceTokens {
	if prefix == "" {
		prefix = "test"
	}
	return &SequenceTokens{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
