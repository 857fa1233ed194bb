package gitutil

import (
	"fmt"
	"regexp"
	"strings"
)

var fullNameRegex = regexp.MustCompile(`^(?:https?://)?(?:github\.com/)?([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)

// RepositoryURL returns the HTTPS clone URL of a GitHub repository.
func RepositoryURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
}

// ParseRepository extracts the owner and repository from "owner/repo" or a GitHub URL.
func ParseRepository(s string) (owner, repo string, err error) {
	matches := fullNameRegex.FindStringSubmatch(strings.TrimSpace(s))
	if len(matches) != 3 {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", s)
	}
	return matches[1], matches[2], nil
}
