package github

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sevigo/migration-warden/internal/core"
)

// HeaderMarker is the hidden first line of every tracked comment.
const HeaderMarker = "<!-- laravel-migrations-check -->"

// commentStore keeps a single marker-prefixed comment per pull request.
type commentStore struct {
	client Client
	logger *slog.Logger
}

// NewCommentStore returns a core.CommentStore backed by the GitHub API.
func NewCommentStore(client Client, logger *slog.Logger) core.CommentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &commentStore{client: client, logger: logger}
}

// WithHeader prefixes body with the tracking marker.
func WithHeader(body string) string {
	return HeaderMarker + "\n" + body
}

// IsTracked reports whether a comment body belongs to this bot.
func IsTracked(body string) bool {
	return strings.HasPrefix(body, HeaderMarker)
}

// Find returns the first tracked comment, or nil when there is none.
func (s *commentStore) Find(ctx context.Context, pr *core.PullRequest) (*core.TrackedComment, error) {
	tracked, err := s.tracked(ctx, pr)
	if err != nil {
		return nil, err
	}
	if len(tracked) == 0 {
		return nil, nil
	}
	return &tracked[0], nil
}

// Create posts a new tracked comment. If one appeared since the caller last
// looked, it is updated instead so that a second one is never created.
func (s *commentStore) Create(ctx context.Context, pr *core.PullRequest, body string) error {
	tracked, err := s.tracked(ctx, pr)
	if err != nil {
		return err
	}
	if len(tracked) > 0 {
		s.logger.InfoContext(ctx, "tracked comment already exists, updating instead", "repo", pr.FullName(), "pr", pr.Number, "comment_id", tracked[0].ID)
		return s.update(ctx, pr, tracked[0].ID, body, tracked[1:])
	}

	id, err := s.client.CreateComment(ctx, pr.Owner, pr.Repo, pr.Number, WithHeader(body))
	if err != nil {
		return &core.PlatformAPIError{Op: "create comment", Err: err}
	}
	s.logger.InfoContext(ctx, "tracked comment created", "repo", pr.FullName(), "pr", pr.Number, "comment_id", id)
	return nil
}

// Update replaces the tracked comment body and removes any duplicates.
func (s *commentStore) Update(ctx context.Context, pr *core.PullRequest, commentID int64, body string) error {
	tracked, err := s.tracked(ctx, pr)
	if err != nil {
		return err
	}
	return s.update(ctx, pr, commentID, body, others(tracked, commentID))
}

// Delete removes the given comment together with any other tracked comment.
func (s *commentStore) Delete(ctx context.Context, pr *core.PullRequest, commentID int64) error {
	tracked, err := s.tracked(ctx, pr)
	if err != nil {
		return err
	}
	ids := []int64{commentID}
	for _, c := range others(tracked, commentID) {
		ids = append(ids, c.ID)
	}
	for _, id := range ids {
		if err := s.client.DeleteComment(ctx, pr.Owner, pr.Repo, id); err != nil {
			return &core.PlatformAPIError{Op: "delete comment", Err: err}
		}
		s.logger.InfoContext(ctx, "tracked comment deleted", "repo", pr.FullName(), "pr", pr.Number, "comment_id", id)
	}
	return nil
}

func (s *commentStore) update(ctx context.Context, pr *core.PullRequest, commentID int64, body string, duplicates []core.TrackedComment) error {
	if err := s.client.UpdateComment(ctx, pr.Owner, pr.Repo, commentID, WithHeader(body)); err != nil {
		return &core.PlatformAPIError{Op: "update comment", Err: err}
	}
	s.logger.InfoContext(ctx, "tracked comment updated", "repo", pr.FullName(), "pr", pr.Number, "comment_id", commentID)

	for _, d := range duplicates {
		if err := s.client.DeleteComment(ctx, pr.Owner, pr.Repo, d.ID); err != nil {
			return &core.PlatformAPIError{Op: "delete duplicate comment", Err: err}
		}
		s.logger.WarnContext(ctx, "duplicate tracked comment removed", "repo", pr.FullName(), "pr", pr.Number, "comment_id", d.ID)
	}
	return nil
}

func (s *commentStore) tracked(ctx context.Context, pr *core.PullRequest) ([]core.TrackedComment, error) {
	comments, err := s.client.ListIssueComments(ctx, pr.Owner, pr.Repo, pr.Number)
	if err != nil {
		return nil, &core.PlatformAPIError{Op: "list comments", Err: err}
	}
	var out []core.TrackedComment
	for _, c := range comments {
		if IsTracked(c.Body) {
			out = append(out, core.TrackedComment(c))
		}
	}
	return out, nil
}

func others(tracked []core.TrackedComment, id int64) []core.TrackedComment {
	var out []core.TrackedComment
	for _, c := range tracked {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
