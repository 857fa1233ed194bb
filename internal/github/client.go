// Package github reports build states to GitHub and authenticates the core
// against it.
package github

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

// Client is the subset of the GitHub API used for commit statuses.
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks . Client
type Client interface {
	CreateStatus(ctx context.Context, owner, repo, sha string, status *github.RepoStatus) error
}

type statusClient struct {
	repos  *github.RepositoriesService
	logger *slog.Logger
}

// NewGitHubClient adapts an authenticated go-github client.
func NewGitHubClient(client *github.Client, logger *slog.Logger) Client {
	return &statusClient{repos: client.Repositories, logger: logger}
}

// NewPATClient authenticates every request with a static personal access token.
func NewPATClient(ctx context.Context, token string, logger *slog.Logger) Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewGitHubClient(github.NewClient(oauth2.NewClient(ctx, src)), logger)
}

func (c *statusClient) CreateStatus(ctx context.Context, owner, repo, sha string, status *github.RepoStatus) error {
	_, resp, err := c.repos.CreateStatus(ctx, owner, repo, sha, status)
	if err == nil {
		return nil
	}
	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	c.logger.Warn("commit status rejected",
		"repo", owner+"/"+repo, "sha", sha, "state", status.GetState(), "http_status", code, "error", err)
	return fmt.Errorf("create status on %s/%s@%s: %w", owner, repo, sha, err)
}
