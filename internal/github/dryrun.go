package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/glamour"

	"github.com/sevigo/migration-warden/internal/core"
)

// dryRunStore reads through to GitHub when a client is available but prints
// every mutation to out instead of performing it.
type dryRunStore struct {
	reader core.CommentStore
	out    io.Writer
	logger *slog.Logger
}

// NewDryRunStore returns a core.CommentStore that previews changes in the
// terminal. client may be nil, in which case no tracked comment is ever found.
func NewDryRunStore(client Client, out io.Writer, logger *slog.Logger) core.CommentStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &dryRunStore{out: out, logger: logger}
	if client != nil {
		s.reader = NewCommentStore(client, logger)
	}
	return s
}

func (s *dryRunStore) Find(ctx context.Context, pr *core.PullRequest) (*core.TrackedComment, error) {
	if s.reader == nil {
		return nil, nil
	}
	return s.reader.Find(ctx, pr)
}

func (s *dryRunStore) Create(_ context.Context, pr *core.PullRequest, body string) error {
	fmt.Fprintf(s.out, "[dry-run] would create a comment on %s#%d\n\n", pr.FullName(), pr.Number)
	return s.preview(body)
}

func (s *dryRunStore) Update(_ context.Context, pr *core.PullRequest, commentID int64, body string) error {
	fmt.Fprintf(s.out, "[dry-run] would update comment %d on %s#%d\n\n", commentID, pr.FullName(), pr.Number)
	return s.preview(body)
}

func (s *dryRunStore) Delete(_ context.Context, pr *core.PullRequest, commentID int64) error {
	fmt.Fprintf(s.out, "[dry-run] would delete comment %d on %s#%d\n", commentID, pr.FullName(), pr.Number)
	return nil
}

func (s *dryRunStore) preview(body string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
		glamour.WithEmoji(),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendered, err := r.Render(WithHeader(body))
	if err != nil {
		s.logger.Warn("markdown preview failed, printing raw body", "error", err)
		rendered = WithHeader(body)
	}
	_, err = io.WriteString(s.out, rendered)
	return err
}
