// Package gitutil checks out the pull request head the migrations are dry-run against.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
)

const (
	fetchRetries   = 3
	fetchBaseDelay = 2 * time.Second
)

// Client handles interacting with Git repositories.
type Client struct {
	Logger *slog.Logger
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger}
}

// Clone clones repoURL into path without checking out a specific commit.
func (c *Client) Clone(ctx context.Context, repoURL, path, token string) error {
	authURL, err := authenticatedURL(repoURL, token)
	if err != nil {
		return err
	}

	c.Logger.InfoContext(ctx, "cloning repository", "url", repoURL, "path", path)
	cmd := exec.CommandContext(ctx, "git", "-c", "core.longpaths=true", "clone", "--no-tags", authURL, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone failed: %s: %w", redact(string(out), token), err)
	}
	return nil
}

// FetchCommit fetches a single commit from origin. Pull request heads pushed
// after the clone started are not reachable from any cloned ref otherwise.
func (c *Client) FetchCommit(ctx context.Context, path, sha string) error {
	var err error
	for i := 0; i <= fetchRetries; i++ {
		if i > 0 {
			delay := fetchBaseDelay * time.Duration(1<<(i-1))
			c.Logger.WarnContext(ctx, "git fetch failed, retrying", "attempt", i, "delay", delay, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		cmd := exec.CommandContext(ctx, "git", "-c", "core.longpaths=true", "fetch", "--no-tags", "origin", sha)
		cmd.Dir = path
		out, cmdErr := cmd.CombinedOutput()
		if cmdErr == nil {
			return nil
		}
		err = fmt.Errorf("git fetch failed: %s: %w", strings.TrimSpace(string(out)), cmdErr)
	}
	return err
}

// Checkout switches the worktree to sha and verifies that HEAD landed there.
func (c *Client) Checkout(ctx context.Context, path, sha string) error {
	c.Logger.InfoContext(ctx, "checking out commit", "sha", sha)

	cmd := exec.CommandContext(ctx, "git", "-c", "core.longpaths=true", "checkout", "--force", "--detach", sha)
	cmd.Dir = path
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git checkout failed: %s: %w", strings.TrimSpace(string(out)), err)
	}

	head, err := HeadSHA(path)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(head, sha) {
		return fmt.Errorf("checkout ended at %s, expected %s", head, sha)
	}
	return nil
}

// HeadSHA returns the commit HEAD points to in the repository at path.
func HeadSHA(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// CloneAndCheckoutTemp clones a repo into a temporary directory, checks out sha,
// and returns the path with a cleanup function.
func (c *Client) CloneAndCheckoutTemp(ctx context.Context, repoURL, sha, token string) (string, func(), error) {
	repoPath, err := os.MkdirTemp("", "migration-warden-repo-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup := func() {
		c.Logger.Info("cleaning up temporary repository", "path", repoPath)
		if removeErr := os.RemoveAll(repoPath); removeErr != nil {
			c.Logger.Error("failed to remove temp repo", "path", repoPath, "error", removeErr)
		}
	}

	if err := c.Clone(ctx, repoURL, repoPath, token); err != nil {
		cleanup()
		return "", nil, err
	}

	if err := c.Checkout(ctx, repoPath, sha); err != nil {
		c.Logger.InfoContext(ctx, "commit not in clone, fetching it", "sha", sha)
		if fetchErr := c.FetchCommit(ctx, repoPath, sha); fetchErr != nil {
			cleanup()
			return "", nil, fetchErr
		}
		if err := c.Checkout(ctx, repoPath, sha); err != nil {
			cleanup()
			return "", nil, err
		}
	}

	c.Logger.InfoContext(ctx, "repository cloned and checked out successfully", "sha", sha)
	return repoPath, cleanup, nil
}

// authenticatedURL embeds token into an https clone URL. Local paths pass
// through unchanged; file:// is unsupported.
func authenticatedURL(repoURL, token string) (string, error) {
	if !strings.Contains(repoURL, "://") {
		return repoURL, nil
	}
	if !strings.HasPrefix(repoURL, "https://") && !strings.HasPrefix(repoURL, "http://") {
		return "", fmt.Errorf("invalid repository URL: %s", repoURL)
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse repository URL '%s': %w", repoURL, err)
	}
	if token != "" {
		parsedURL.User = url.UserPassword("x-access-token", token)
	}
	return parsedURL.String(), nil
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}
