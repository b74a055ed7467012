package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gogithub "github.com/google/go-github/v73/github"
	"github.com/spf13/cobra"

	"github.com/sevigo/migration-warden/internal/config"
	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/github"
	"github.com/sevigo/migration-warden/internal/gitutil"
	"github.com/sevigo/migration-warden/internal/jobs"
	"github.com/sevigo/migration-warden/internal/llm"
	"github.com/sevigo/migration-warden/internal/logger"
	"github.com/sevigo/migration-warden/internal/wire"
)

var (
	prURL     string
	eventPath string
	workDir   string
	dryRun    bool
	record    bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the migrations of one pull request",
	Long: `Check the migrations of one pull request.

The pull request is taken from --pr-url or, inside a GitHub Actions run, from the
event payload at $GITHUB_EVENT_PATH. Migrations are dry-run in --workdir, which
must be a checkout of the pull request head with its dependencies installed.

Examples:
  migration-warden check
  migration-warden check --pr-url https://github.com/acme/shop/pull/42 --dry-run
  migration-warden check --pr-url acme/shop#42 --workdir ../shop`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	checkCmd.Flags().StringVar(&prURL, "pr-url", "", "Pull request URL or owner/repo#number")
	checkCmd.Flags().StringVar(&eventPath, "event-path", os.Getenv("GITHUB_EVENT_PATH"), "Path to a pull_request webhook payload")
	checkCmd.Flags().StringVarP(&workDir, "workdir", "w", ".", "Application checkout the migrations are dry-run in")
	checkCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the comment instead of posting it")
	checkCmd.Flags().BoolVar(&record, "record", false, "Save the run to the history database")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.NewLogger(cfg.Logging, os.Stderr)

	pr, err := resolvePullRequest()
	if err != nil {
		return err
	}

	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("invalid workdir %q: %w", workDir, err)
	}

	client, err := newCLIClient(ctx, cfg, log)
	if err != nil {
		return err
	}

	var comments core.CommentStore
	if dryRun {
		comments = github.NewDryRunStore(client, cmd.OutOrStdout(), log)
	} else {
		comments = github.NewCommentStore(client, log)
	}

	prompts, err := llm.NewPromptManager()
	if err != nil {
		return fmt.Errorf("failed to initialize prompt manager: %w", err)
	}

	check, err := jobs.NewCheckForWorkdir(ctx, jobs.CheckDeps{
		Config:          cfg,
		Files:           client,
		Comments:        comments,
		Prompts:         prompts,
		Logger:          log,
		TrustRepoConfig: true,
	}, absWorkDir)
	if err != nil {
		return err
	}

	titleColor.Fprintf(cmd.ErrOrStderr(), "Checking migrations of %s#%d\n", pr.FullName(), pr.Number)
	res, runErr := check.Execute(ctx, pr)

	if record {
		saveRun(ctx, pr, res, runErr, log)
	}
	if runErr != nil {
		return describeFailure(runErr)
	}

	printOutcome(cmd, res)
	return nil
}

// newCLIClient authenticates with the configured token. Without one, a dry run
// still works against public repositories.
func newCLIClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (github.Client, error) {
	if cfg.GitHub.Token != "" {
		return github.NewPATClient(ctx, cfg.GitHub.Token, log), nil
	}
	if !dryRun {
		return nil, errors.New("a GitHub token is required, set MW_GITHUB_TOKEN or GITHUB_TOKEN")
	}
	warnColor.Fprintln(os.Stderr, "No GitHub token set, using unauthenticated API access")
	return github.NewGitHubClient(gogithub.NewClient(nil), log), nil
}

func resolvePullRequest() (*core.PullRequest, error) {
	if prURL != "" {
		owner, repo, number, err := gitutil.ParsePullRequestURL(prURL)
		if err != nil {
			return nil, err
		}
		return &core.PullRequest{Owner: owner, Repo: repo, Number: number, CloneURL: gitutil.CloneURL(owner, repo)}, nil
	}
	if eventPath == "" {
		return nil, errors.New("no pull request given, pass --pr-url or run inside a pull_request workflow")
	}
	return pullRequestFromEventFile(eventPath)
}

// pullRequestFromEventFile reads the pull request a workflow was triggered by.
// Unlike the webhook server it accepts any action: the workflow's own
// trigger filter decides when a check runs.
func pullRequestFromEventFile(path string) (*core.PullRequest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}
	event, err := gogithub.ParseWebHook("pull_request", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}
	e, ok := event.(*gogithub.PullRequestEvent)
	if !ok || e.GetPullRequest() == nil {
		return nil, errors.New("event payload is not a pull_request event")
	}

	owner, repo := e.GetRepo().GetOwner().GetLogin(), e.GetRepo().GetName()
	number := e.GetNumber()
	if number == 0 {
		number = e.GetPullRequest().GetNumber()
	}
	if owner == "" || repo == "" || number <= 0 {
		return nil, errors.New("event payload is missing the repository or pull request number")
	}
	return &core.PullRequest{
		Owner:    owner,
		Repo:     repo,
		Number:   number,
		HeadSHA:  e.GetPullRequest().GetHead().GetSHA(),
		CloneURL: e.GetRepo().GetCloneURL(),
	}, nil
}

func saveRun(ctx context.Context, pr *core.PullRequest, res jobs.Result, runErr error, log *slog.Logger) {
	store, cleanup, err := wire.InitializeHistory()
	if err != nil {
		log.Warn("run history unavailable", "error", err)
		return
	}
	defer cleanup()

	run := &core.CheckRun{
		RepoFullName:   pr.FullName(),
		PRNumber:       pr.Number,
		HeadSHA:        pr.HeadSHA,
		Outcome:        res.Outcome,
		RunHash:        res.RunHash,
		MigrationCount: res.Migrations,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := store.SaveCheckRun(ctx, run); err != nil {
		log.Warn("failed to record check run", "error", err)
	}
}

func describeFailure(err error) error {
	var (
		apiErr     *core.PlatformAPIError
		extractErr *core.ExtractionError
		reviewErr  *core.ReviewCallError
	)
	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("GitHub API call %q failed: %w", apiErr.Op, apiErr.Err)
	case errors.As(err, &extractErr):
		if extractErr.Output != "" {
			dimColor.Fprintln(os.Stderr, extractErr.Output)
		}
		return fmt.Errorf("could not dry-run %s: %w", extractErr.Path, extractErr.Err)
	case errors.As(err, &reviewErr):
		return fmt.Errorf("%s review failed, nothing was posted: %w", reviewErr.Provider, reviewErr.Err)
	default:
		return err
	}
}

func printOutcome(cmd *cobra.Command, res jobs.Result) {
	out := cmd.ErrOrStderr()
	switch res.Outcome {
	case core.OutcomeNoMigrations:
		dimColor.Fprintln(out, "No migration files changed.")
	case core.OutcomeNoReviewRequested:
		successColor.Fprintf(out, "Posted the SQL of %d migration(s), review disabled.\n", res.Migrations)
	case core.OutcomeReviewSkippedUnchanged:
		successColor.Fprintf(out, "Migrations unchanged since the last review (%s), nothing to do.\n", shortHash(res.RunHash))
	case core.OutcomeReviewPerformed:
		successColor.Fprintf(out, "Reviewed %d migration(s) (%s).\n", res.Migrations, shortHash(res.RunHash))
	default:
		warnColor.Fprintf(out, "Finished with outcome %s.\n", res.Outcome)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
