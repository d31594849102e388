package git

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/sprin/trac-post-receive-hook/internal/models"
)

// Repo reads history in-process through go-git
type Repo struct {
	repo *git.Repository
}

// OpenRepo opens the repository at path (bare or not)
func OpenRepo(path string) (*Repo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return &Repo{repo: repo}, nil
}

// ListNewCommits walks from newRev and drops every commit reachable from
// oldRev. Merge commits have multiple parents, so the walk must visit
// all paths rather than stopping at the first excluded commit.
func (r *Repo) ListNewCommits(oldRev, newRev string) ([]string, error) {
	newHash, err := r.repo.ResolveRevision(plumbing.Revision(newRev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", newRev, err)
	}

	exclude := make(map[plumbing.Hash]bool)
	if oldRev != models.ZeroRev {
		oldHash, err := r.repo.ResolveRevision(plumbing.Revision(oldRev))
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", oldRev, err)
		}
		oldIter, err := r.repo.Log(&git.LogOptions{From: *oldHash})
		if err != nil {
			return nil, err
		}
		oldIter.ForEach(func(c *object.Commit) error {
			exclude[c.Hash] = true
			return nil
		})
	}

	newIter, err := r.repo.Log(&git.LogOptions{From: *newHash})
	if err != nil {
		return nil, err
	}

	var revs []string
	seen := make(map[plumbing.Hash]bool)
	err = newIter.ForEach(func(c *object.Commit) error {
		if seen[c.Hash] || exclude[c.Hash] {
			return nil
		}
		seen[c.Hash] = true
		revs = append(revs, c.Hash.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revs, nil
}

// CommitMessage renders rev's message with the in-process pretty-format
// subset (see FormatCommit)
func (r *Repo) CommitMessage(rev, format string) (string, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", rev, err)
	}
	return FormatCommit(commit, format)
}
