// Package repository captures and restores the state of version-controlled
// working trees so a recording can put them back the way they were.
package repository

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jcejohnson/rekorder/internal/ir"
)

// Snapshot is the state of one repository at a point in time.
type Snapshot struct {
	Path       string   `json:"path"`
	HeadName   string   `json:"head_name"`
	BranchName string   `json:"branch_name,omitempty"`
	Commit     Commit   `json:"commit"`
	Tags       []string `json:"tags"`
	Branches   []string `json:"branches"`
	Remote     *Remote  `json:"remote,omitempty"`
}

// Commit describes the commit HEAD points at.
type Commit struct {
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	Message     string `json:"message"`
	SHA         string `json:"sha"`
}

// Remote describes the upstream of the checked-out branch.
type Remote struct {
	Name      string `json:"name"`
	Branch    string `json:"branch"`
	CommitSHA string `json:"commit_sha"`
}

// Snapshotter inspects and restores repositories.
type Snapshotter interface {
	Snapshot(path string) (Snapshot, error)
	// Restore checks the working tree at path out to ref, which is a
	// branch name, a tag name or a commit sha.
	Restore(path, ref string) error
}

// Target picks the ref to restore: the branch if one was checked out,
// else the only tag at HEAD, else the commit sha.
func (s Snapshot) Target() string {
	switch {
	case s.BranchName != "":
		return s.BranchName
	case len(s.Tags) == 1:
		return s.Tags[0]
	default:
		return s.Commit.SHA
	}
}

// normalize sorts the ref lists and replaces nil with empty lists so
// snapshots of the same state always serialize identically.
func (s Snapshot) normalize() Snapshot {
	s.Tags = sortedCopy(s.Tags)
	s.Branches = sortedCopy(s.Branches)
	return s
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

// Notes converts the snapshot into tune notes.
func (s Snapshot) Notes() (ir.IRObject, error) {
	data, err := json.Marshal(s.normalize())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return v.(ir.IRObject), nil
}

// SnapshotFromNotes reads a snapshot back from tune notes.
func SnapshotFromNotes(v ir.IRValue) (Snapshot, error) {
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// Capture snapshots every path and returns {repositories: [...]}.
func Capture(snap Snapshotter, paths []string) (ir.IRObject, error) {
	repos := make(ir.IRArray, 0, len(paths))
	for _, p := range paths {
		s, err := snap.Snapshot(p)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", p, err)
		}
		n, err := s.Notes()
		if err != nil {
			return nil, err
		}
		repos = append(repos, n)
	}
	return ir.IRObject{"repositories": repos}, nil
}

// Snapshots decodes the repositories listed in notes.
func Snapshots(notes ir.IRObject) ([]Snapshot, error) {
	arr, _ := notes.Get("repositories").(ir.IRArray)
	out := make([]Snapshot, 0, len(arr))
	for i, v := range arr {
		s, err := SnapshotFromNotes(v)
		if err != nil {
			return nil, fmt.Errorf("repository %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// RestoreAll checks every repository in notes back out to its target.
func RestoreAll(snap Snapshotter, notes ir.IRObject) error {
	snaps, err := Snapshots(notes)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		if err := snap.Restore(s.Path, s.Target()); err != nil {
			return fmt.Errorf("restore %s to %s: %w", s.Path, s.Target(), err)
		}
	}
	return nil
}
