package jobs

import (
	"fmt"
	"strings"

	"github.com/sevigo/migration-warden/internal/core"
)

// ValidatePullRequest ensures a queued pull request carries everything the
// server-side job needs to clone and comment.
func ValidatePullRequest(pr *core.PullRequest) error {
	if pr == nil {
		return fmt.Errorf("pull request cannot be nil")
	}
	if pr.Owner == "" || pr.Repo == "" {
		return fmt.Errorf("repository owner and name are required")
	}
	if pr.Number <= 0 {
		return fmt.Errorf("invalid pull request number: %d", pr.Number)
	}
	if pr.InstallationID == 0 {
		return fmt.Errorf("installation ID is required")
	}
	if pr.CloneURL == "" {
		return fmt.Errorf("clone URL is required")
	}
	if !strings.HasPrefix(pr.CloneURL, "https://") {
		return fmt.Errorf("clone URL must use https: %s", pr.CloneURL)
	}
	return nil
}
