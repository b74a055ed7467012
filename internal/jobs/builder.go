package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/migration-warden/internal/config"
	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/extractor"
	"github.com/sevigo/migration-warden/internal/llm"
)

// CheckDeps are the collaborators a check needs beyond the checkout itself.
type CheckDeps struct {
	Config   *config.Config
	Files    core.ChangedFileLister
	Comments core.CommentStore
	Prompts  *llm.PromptManager
	Logger   *slog.Logger

	// TrustRepoConfig lets the checkout's .migrations-check.yml set the
	// extract command and review context. Leave it false when the checkout
	// is a pull request head fetched onto a shared host.
	TrustRepoConfig bool
}

// NewCheckForWorkdir builds a MigrationCheck for an application checked out
// at workDir, applying the repository's .migrations-check.yml if present.
// Untrusted checkouts only contribute the migrations path and extension.
func NewCheckForWorkdir(ctx context.Context, deps CheckDeps, workDir string) (*MigrationCheck, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repoCfg, err := config.LoadRepoConfig(workDir)
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load repository config: %w", err)
	}
	if !deps.TrustRepoConfig && repoCfg != nil {
		if repoCfg.ExtractCommand != "" || repoCfg.Context != "" {
			logger.WarnContext(ctx, "ignoring extract_command and context from untrusted repository config",
				"file", config.RepoConfigFile)
		}
		repoCfg = repoCfg.PathSettings()
	}
	settings := deps.Config.Check.Merge(repoCfg)

	ex, err := extractor.NewCommandExtractor(workDir, settings.ExtractCommand, logger)
	if err != nil {
		return nil, err
	}
	attacher := extractor.NewAttacher(ex, workDir, settings.Concurrency, logger)

	var reviewer core.MigrationReviewer
	if deps.Config.AI.ReviewEnabled() {
		provider, err := llm.NewProvider(ctx, deps.Config.AI, deps.Prompts, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create review provider: %w", err)
		}
		r, err := llm.NewReviewer(provider, deps.Prompts, logger)
		if err != nil {
			return nil, err
		}
		reviewer = r
	} else {
		logger.InfoContext(ctx, "no LLM API key configured, review disabled")
	}

	return NewMigrationCheck(deps.Files, deps.Comments, attacher, reviewer, Settings{
		MigrationsPath: settings.MigrationsPath,
		Extension:      settings.Extension,
		Context:        settings.Context,
	}, logger), nil
}
