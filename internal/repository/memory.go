package repository

import (
	"fmt"
	"sync"
)

// Memory is a Snapshotter over repositories that exist only in memory.
// Restore moves the named repository onto the branch, tag or commit it
// names, recording each call in Restores.
type Memory struct {
	mu       sync.Mutex
	repos    map[string]Snapshot
	known    map[string]map[string]Snapshot
	Restores []string
}

// NewMemory creates an empty in-memory snapshotter.
func NewMemory() *Memory {
	return &Memory{
		repos: make(map[string]Snapshot),
		known: make(map[string]map[string]Snapshot),
	}
}

// Set makes s the current state of s.Path and remembers it under every
// ref it can be restored by.
func (m *Memory) Set(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Path = normalizePath(s.Path)
	m.repos[s.Path] = s
	refs := m.known[s.Path]
	if refs == nil {
		refs = make(map[string]Snapshot)
		m.known[s.Path] = refs
	}
	for _, ref := range append(append([]string{s.BranchName, s.Commit.SHA}, s.Tags...), s.Branches...) {
		if ref != "" {
			refs[ref] = s
		}
	}
}

// Snapshot implements Snapshotter.
func (m *Memory) Snapshot(path string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.repos[normalizePath(path)]
	if !ok {
		return Snapshot{}, fmt.Errorf("no repository at %s", path)
	}
	return s.normalize(), nil
}

// Restore implements Snapshotter.
func (m *Memory) Restore(path, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = normalizePath(path)
	s, ok := m.known[path][ref]
	if !ok {
		return fmt.Errorf("unknown ref %q in %s", ref, path)
	}
	m.repos[path] = s
	m.Restores = append(m.Restores, path+"@"+ref)
	return nil
}

func normalizePath(p string) string {
	if p == "" {
		return "."
	}
	return p
}
