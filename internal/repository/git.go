package repository

import (
	"errors"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Git snapshots and restores repositories on disk with go-git.
type Git struct{}

// Snapshot reads HEAD, the branch (if any), the tags and branches that
// point at HEAD, and the upstream of the branch.
func (Git) Snapshot(path string) (Snapshot, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read HEAD: %w", err)
	}

	s := Snapshot{Path: path, HeadName: head.Name().Short()}
	if head.Name().IsBranch() {
		s.BranchName = head.Name().Short()
	} else {
		s.HeadName = head.Hash().String()
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Snapshot{}, fmt.Errorf("read commit %s: %w", head.Hash(), err)
	}
	s.Commit = Commit{
		AuthorName:  commit.Author.Name,
		AuthorEmail: commit.Author.Email,
		Message:     strings.TrimSpace(commit.Message),
		SHA:         commit.Hash.String(),
	}

	tags, err := repo.Tags()
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tags: %w", err)
	}
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		// Annotated tags point at a tag object, not the commit.
		if tag, err := repo.TagObject(target); err == nil {
			target = tag.Target
		}
		if target == head.Hash() {
			s.Tags = append(s.Tags, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list tags: %w", err)
	}

	branches, err := repo.Branches()
	if err != nil {
		return Snapshot{}, fmt.Errorf("list branches: %w", err)
	}
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		if ref.Hash() == head.Hash() {
			s.Branches = append(s.Branches, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list branches: %w", err)
	}

	if s.BranchName != "" {
		remote, err := upstream(repo, s.BranchName)
		if err != nil {
			return Snapshot{}, err
		}
		s.Remote = remote
	}
	return s.normalize(), nil
}

// upstream returns the tracking branch of branch, or nil when it has none.
func upstream(repo *git.Repository, branch string) (*Remote, error) {
	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" || b.Merge == "" {
		return nil, nil
	}
	remote := &Remote{Name: b.Remote, Branch: b.Merge.Short()}
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(b.Remote, remote.Branch), true)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	case err != nil:
		return nil, fmt.Errorf("resolve upstream %s/%s: %w", b.Remote, remote.Branch, err)
	default:
		remote.CommitSHA = ref.Hash().String()
	}
	return remote, nil
}

// Restore checks path out to ref. A local branch is checked out by name;
// anything else is resolved to a commit and checked out detached.
func (Git) Restore(path, ref string) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	branch := plumbing.NewBranchReferenceName(ref)
	if _, err := repo.Reference(branch, false); err == nil {
		return wt.Checkout(&git.CheckoutOptions{Branch: branch})
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("resolve %q: %w", ref, err)
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: *hash})
}
