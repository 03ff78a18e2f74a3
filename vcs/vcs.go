// Package vcs commits migration changes to the workspace's git repository,
// the Runner's sole interaction with version control: stage everything,
// commit under a caller-supplied message, and report the resulting sha.
package vcs

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Committer stages and commits the current working tree.
type Committer struct {
	repo *git.Repository
}

// Open opens the git repository rooted at (or above) root. Returns an
// error if root is not inside a git repository.
func Open(root string) (*Committer, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", root, err)
	}
	return &Committer{repo: repo}, nil
}

// Commit stages every change under the worktree and commits it with
// message, returning the resulting commit sha.
func (c *Committer) Commit(message string) (string, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("failed to stage changes: %w", err)
	}

	sha, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name: "migrate",
			When: time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	return sha.String(), nil
}
