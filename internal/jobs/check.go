package jobs

import (
	"context"
	"log/slog"

	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/github"
	"github.com/sevigo/migration-warden/internal/migration"
)

// QueryAttacher fills in the SQL and source of detected migrations.
type QueryAttacher interface {
	Attach(ctx context.Context, ms []core.MigrationRecord) ([]core.MigrationRecord, error)
}

// Settings are the per-run knobs of a check.
type Settings struct {
	MigrationsPath string
	Extension      string
	Context        string
}

// Result describes a finished check.
type Result struct {
	Outcome    core.Outcome
	RunHash    string
	Migrations int
}

// MigrationCheck keeps the tracked comment of a pull request in sync with the
// migrations it changes.
type MigrationCheck struct {
	files    core.ChangedFileLister
	comments core.CommentStore
	attacher QueryAttacher
	reviewer core.MigrationReviewer
	settings Settings
	logger   *slog.Logger
}

// NewMigrationCheck wires a check. reviewer may be nil to disable the review.
func NewMigrationCheck(files core.ChangedFileLister, comments core.CommentStore, attacher QueryAttacher, reviewer core.MigrationReviewer, settings Settings, logger *slog.Logger) *MigrationCheck {
	if files == nil {
		panic("file lister cannot be nil")
	}
	if comments == nil {
		panic("comment store cannot be nil")
	}
	if attacher == nil {
		panic("query attacher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MigrationCheck{
		files:    files,
		comments: comments,
		attacher: attacher,
		reviewer: reviewer,
		settings: settings,
		logger:   logger,
	}
}

// Check runs one pass and returns its outcome.
func (c *MigrationCheck) Check(ctx context.Context, pr *core.PullRequest) (core.Outcome, error) {
	res, err := c.Execute(ctx, pr)
	return res.Outcome, err
}

// Execute runs one pass. The comment upsert is the last side effect, so a
// failure at any earlier step leaves the pull request untouched.
func (c *MigrationCheck) Execute(ctx context.Context, pr *core.PullRequest) (Result, error) {
	log := c.logger.With("repo", pr.FullName(), "pr", pr.Number)
	failed := Result{Outcome: core.OutcomeFailed}

	files, err := c.files.ListChangedFiles(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return failed, &core.PlatformAPIError{Op: "list files", Err: err}
	}
	ms := migration.DetectMigrations(files, c.settings.MigrationsPath, c.settings.Extension)
	log.InfoContext(ctx, "migrations detected", "changed_files", len(files), "migrations", len(ms))

	existing, err := c.comments.Find(ctx, pr)
	if err != nil {
		return failed, err
	}

	if len(ms) == 0 {
		if existing != nil {
			if err := c.comments.Delete(ctx, pr, existing.ID); err != nil {
				return failed, err
			}
		}
		log.InfoContext(ctx, "no migration files changed")
		return Result{Outcome: core.OutcomeNoMigrations}, nil
	}
	failed.Migrations = len(ms)

	ms, err = c.attacher.Attach(ctx, ms)
	if err != nil {
		return failed, err
	}

	if c.reviewer == nil {
		if err := c.upsert(ctx, pr, existing, github.RenderComment(ms)); err != nil {
			return failed, err
		}
		log.InfoContext(ctx, "migration summary posted without review")
		return Result{Outcome: core.OutcomeNoReviewRequested, Migrations: len(ms)}, nil
	}

	current := migration.ComputeRunHash(c.reviewer.Instructions(), c.settings.Context, ms)
	failed.RunHash = current
	if existing != nil {
		if last, ok := migration.ExtractRunHash(existing.Body); ok && last == current {
			log.InfoContext(ctx, "migrations unchanged since last review, skipping", "run_hash", current)
			return Result{Outcome: core.OutcomeReviewSkippedUnchanged, RunHash: current, Migrations: len(ms)}, nil
		}
	}

	reviewed, err := c.reviewer.Review(ctx, ms, c.settings.Context)
	if err != nil {
		return failed, err
	}

	body := github.RenderComment(reviewed) + "\n" + migration.RunHashMarker(current)
	if err := c.upsert(ctx, pr, existing, body); err != nil {
		return failed, err
	}
	log.InfoContext(ctx, "migration review posted", "run_hash", current)
	return Result{Outcome: core.OutcomeReviewPerformed, RunHash: current, Migrations: len(ms)}, nil
}

func (c *MigrationCheck) upsert(ctx context.Context, pr *core.PullRequest, existing *core.TrackedComment, body string) error {
	if existing != nil {
		return c.comments.Update(ctx, pr, existing.ID, body)
	}
	return c.comments.Create(ctx, pr, body)
}
