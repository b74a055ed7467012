// Package jobs runs migration checks, either once from the CLI or as
// background jobs fed by webhooks.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/migration-warden/internal/config"
	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/github"
	"github.com/sevigo/migration-warden/internal/gitutil"
	"github.com/sevigo/migration-warden/internal/llm"
	"github.com/sevigo/migration-warden/internal/storage"
)

const cloneTimeout = 2 * time.Minute

// ClientFactory returns an authenticated GitHub client and its raw token.
type ClientFactory func(ctx context.Context, installationID int64) (github.Client, string, error)

// Checkout prepares a working copy of the pull request head.
type Checkout interface {
	CloneAndCheckoutTemp(ctx context.Context, repoURL, sha, token string) (string, func(), error)
}

// PullRequestJob is the server-side job: it clones the pull request head,
// runs a MigrationCheck against it and records the run.
type PullRequestJob struct {
	cfg      *config.Config
	clients  ClientFactory
	checkout Checkout
	prompts  *llm.PromptManager
	store    storage.Store
	logger   *slog.Logger
}

// NewPullRequestJob creates the job. store may be nil to skip run history.
func NewPullRequestJob(cfg *config.Config, clients ClientFactory, checkout Checkout, prompts *llm.PromptManager, store storage.Store, logger *slog.Logger) core.Job {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if clients == nil {
		panic("client factory cannot be nil")
	}
	if checkout == nil {
		panic("checkout cannot be nil")
	}
	if prompts == nil {
		panic("prompt manager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &PullRequestJob{cfg: cfg, clients: clients, checkout: checkout, prompts: prompts, store: store, logger: logger}
}

// InstallationClients builds a ClientFactory backed by GitHub App installations.
func InstallationClients(cfg *config.Config, logger *slog.Logger) ClientFactory {
	return func(ctx context.Context, installationID int64) (github.Client, string, error) {
		return github.CreateInstallationClient(ctx, cfg, installationID, logger)
	}
}

// NewGitCheckout adapts the git client to Checkout.
func NewGitCheckout(logger *slog.Logger) Checkout {
	return gitutil.NewClient(logger)
}

// Run executes the migration check for a pull request.
func (j *PullRequestJob) Run(ctx context.Context, pr *core.PullRequest) error {
	if err := ValidatePullRequest(pr); err != nil {
		j.logger.Error("input validation failed", "error", err)
		return fmt.Errorf("input validation failed: %w", err)
	}
	j.logger.Info("starting migration check", "repo", pr.FullName(), "pr", pr.Number)

	res, err := j.run(ctx, pr)
	j.record(ctx, pr, res, err)
	if err != nil {
		return err
	}

	j.logger.Info("migration check finished", "repo", pr.FullName(), "pr", pr.Number, "outcome", res.Outcome)
	return nil
}

func (j *PullRequestJob) run(ctx context.Context, pr *core.PullRequest) (Result, error) {
	failed := Result{Outcome: core.OutcomeFailed}

	// The default artisan command would run pull request code in a bare clone.
	if j.cfg.Check.ExtractCommand == "" {
		return failed, config.ErrMissingExtractCommand
	}

	ghClient, token, err := j.clients(ctx, pr.InstallationID)
	if err != nil {
		return failed, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	if pr.HeadSHA == "" {
		ghPR, err := ghClient.GetPullRequest(ctx, pr.Owner, pr.Repo, pr.Number)
		if err != nil {
			return failed, &core.PlatformAPIError{Op: "get pull request", Err: err}
		}
		if ghPR.GetHead().GetSHA() == "" {
			return failed, fmt.Errorf("PR %d has no valid head SHA", pr.Number)
		}
		pr.HeadSHA = ghPR.GetHead().GetSHA()
	}

	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()
	repoPath, cleanup, err := j.checkout.CloneAndCheckoutTemp(cloneCtx, pr.CloneURL, pr.HeadSHA, token)
	if err != nil {
		return failed, fmt.Errorf("failed to clone repository: %w", err)
	}
	defer cleanup()

	check, err := NewCheckForWorkdir(ctx, CheckDeps{
		Config:   j.cfg,
		Files:    ghClient,
		Comments: github.NewCommentStore(ghClient, j.logger),
		Prompts:  j.prompts,
		Logger:   j.logger,
	}, repoPath)
	if err != nil {
		return failed, err
	}

	return check.Execute(ctx, pr)
}

// record stores the run after all PR-visible work is done. History is best
// effort and never fails the job.
func (j *PullRequestJob) record(ctx context.Context, pr *core.PullRequest, res Result, runErr error) {
	if j.store == nil {
		return
	}
	run := &core.CheckRun{
		RepoFullName:   pr.FullName(),
		PRNumber:       pr.Number,
		HeadSHA:        pr.HeadSHA,
		Outcome:        res.Outcome,
		RunHash:        res.RunHash,
		MigrationCount: res.Migrations,
	}
	if runErr != nil {
		run.Outcome = core.OutcomeFailed
		run.Error = runErr.Error()
	}
	if err := j.store.SaveCheckRun(ctx, run); err != nil {
		j.logger.Error("failed to record check run", "repo", pr.FullName(), "pr", pr.Number, "error", err)
	}
}
