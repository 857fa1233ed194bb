package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"

	"github.com/cloud-gov/pages-core-sub005/internal/config"
)

// TokenFunc returns a token usable for git operations over HTTPS.
type TokenFunc func(ctx context.Context) (string, error)

// NewClientFromConfig authenticates as the configured GitHub App installation,
// or with a personal access token when no App is configured.
func NewClientFromConfig(ctx context.Context, cfg *config.GitHubConfig, logger *slog.Logger) (Client, TokenFunc, error) {
	if cfg.AppID == 0 {
		logger.Info("using personal access token for GitHub")
		token := cfg.Token
		return NewPATClient(ctx, token, logger), func(context.Context) (string, error) { return token, nil }, nil
	}

	logger.Info("creating GitHub installation client", "app_id", cfg.AppID, "installation_id", cfg.InstallationID)
	privateKey, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read private key from %s: %w", cfg.PrivateKeyPath, err)
	}

	// The installation transport refreshes its token before expiry.
	transport, err := ghinstallation.New(http.DefaultTransport, cfg.AppID, cfg.InstallationID, privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	client := github.NewClient(&http.Client{Transport: transport})

	tokenFn := func(ctx context.Context) (string, error) {
		token, err := transport.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get installation token for installation ID %d: %w", cfg.InstallationID, err)
		}
		return token, nil
	}
	return NewGitHubClient(client, logger), tokenFn, nil
}
