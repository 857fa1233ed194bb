// Package gitutil provides helpers for working with remote Git repositories.
package gitutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

// ErrBranchNotFound means the remote has no such branch.
var ErrBranchNotFound = errors.New("branch not found on remote")

// Resolver looks up branch heads on remote repositories without cloning them.
type Resolver struct {
	Logger *slog.Logger
}

// NewResolver returns a new Resolver instance.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Logger: logger}
}

// ResolveBranchHead returns the commit SHA at the head of branch, the
// equivalent of `git ls-remote <url> refs/heads/<branch>`.
func (r *Resolver) ResolveBranchHead(ctx context.Context, repoURL, branch, token string) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})

	opts := &git.ListOptions{}
	if token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: token}
	}
	refs, err := remote.ListContext(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("list remote refs of %s: %w", repoURL, err)
	}

	sha, err := branchHead(refs, branch)
	if err != nil {
		return "", fmt.Errorf("%s: %w", repoURL, err)
	}
	r.Logger.DebugContext(ctx, "resolved branch head", "url", repoURL, "branch", branch, "sha", sha)
	return sha, nil
}

func branchHead(refs []*plumbing.Reference, branch string) (string, error) {
	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want && ref.Type() == plumbing.HashReference {
			return ref.Hash().String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrBranchNotFound, branch)
}
