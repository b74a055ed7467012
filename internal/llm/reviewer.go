// Package llm runs the optional language model review of migrations.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/migration"
)

// Reviewer implements core.MigrationReviewer on top of a Provider.
type Reviewer struct {
	provider     Provider
	instructions string
	schema       map[string]any
	logger       *slog.Logger
}

// NewReviewer loads the review instructions and response schema once.
func NewReviewer(provider Provider, prompts *PromptManager, logger *slog.Logger) (*Reviewer, error) {
	if provider == nil {
		return nil, fmt.Errorf("review provider is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	instructions, err := prompts.Render(MigrationReviewPrompt, ModelProvider(provider.Name()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load review instructions: %w", err)
	}
	schema, err := ResponseSchema()
	if err != nil {
		return nil, err
	}
	return &Reviewer{
		provider:     provider,
		instructions: strings.TrimSpace(instructions),
		schema:       schema,
		logger:       logger,
	}, nil
}

// Instructions returns the fixed review instructions.
func (r *Reviewer) Instructions() string {
	return r.instructions
}

// Review asks the provider for a verdict on every migration and attaches each
// one by exact filename. Migrations the model skipped keep a nil Review. The
// input slice is left untouched.
func (r *Reviewer) Review(ctx context.Context, ms []core.MigrationRecord, projectContext string) ([]core.MigrationRecord, error) {
	req := Request{
		Instructions: r.instructions + projectContext,
		Input:        migration.CanonicalInput(ms),
		Schema:       r.schema,
	}

	r.logger.InfoContext(ctx, "requesting migration review",
		"provider", r.provider.Name(),
		"migrations", len(ms),
		"approx_tokens", EstimateTokens(req.Instructions)+EstimateTokens(req.Input))
	text, err := r.provider.Complete(ctx, req)
	if err != nil {
		return nil, &core.ReviewCallError{Provider: r.provider.Name(), Err: err}
	}
	r.logger.DebugContext(ctx, "review response received", "provider", r.provider.Name(), "output", text)

	resp, err := ParseReviewResponse(text)
	if err != nil {
		return nil, &core.ReviewCallError{Provider: r.provider.Name(), Err: err}
	}

	return Merge(ms, resp.Migrations), nil
}

// Merge attaches entries to migrations by exact filename. When the model
// returns the same filename twice the first entry wins.
func Merge(ms []core.MigrationRecord, entries []ReviewEntry) []core.MigrationRecord {
	byName := make(map[string]ReviewEntry, len(entries))
	for _, e := range entries {
		if _, dup := byName[e.Filename]; !dup {
			byName[e.Filename] = e
		}
	}

	out := make([]core.MigrationRecord, len(ms))
	for i, m := range ms {
		out[i] = m
		out[i].Review = nil
		if e, ok := byName[m.Filename]; ok {
			out[i].Review = &core.ReviewResult{
				Safe:             e.Safe,
				Comment:          e.Comment,
				SuggestedChanges: e.Changes,
			}
		}
	}
	return out
}
