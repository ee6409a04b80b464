package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs hands out predictable UUID-shaped identifiers:
// 00000000-0000-7000-8000-000000000001, ...000002, and so on.
//
// The same test with a fresh SequentialIDs produces byte-identical index
// rows, which keeps assertions on ids exact.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu sync.Mutex
	n  int
}

// NewSequentialIDs creates a generator whose first id ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// Next returns the next identifier. It has the signature of store.IDFunc.
func (g *SequentialIDs) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return ID(g.n), nil
}

// ID returns the identifier SequentialIDs produces on its n-th call.
func ID(n int) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", n)
}
