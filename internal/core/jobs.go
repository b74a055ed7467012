// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"context"
)

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// webhook handler from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch queues a pull request for a migration check.
	// It returns an error if the queue is full, providing backpressure.
	Dispatch(ctx context.Context, pr *PullRequest) error
	// Stop waits for all queued jobs to finish.
	Stop()
}

// Job is a single unit of work executed for a pull request.
type Job interface {
	Run(ctx context.Context, pr *PullRequest) error
}

// CommentStore reads and writes the tracked comment of a pull request.
// Implementations guarantee that at most one tracked comment exists.
type CommentStore interface {
	Find(ctx context.Context, pr *PullRequest) (*TrackedComment, error)
	Create(ctx context.Context, pr *PullRequest, body string) error
	Update(ctx context.Context, pr *PullRequest, commentID int64, body string) error
	Delete(ctx context.Context, pr *PullRequest, commentID int64) error
}

// ChangedFileLister lists the files touched by a pull request.
type ChangedFileLister interface {
	ListChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error)
}

// QueryExtractor returns the SQL statements a migration would issue, in
// execution order.
type QueryExtractor interface {
	ExtractQueries(ctx context.Context, path string) ([]string, error)
}

// MigrationReviewer runs the optional language model safety review.
type MigrationReviewer interface {
	// Instructions returns the fixed review instructions that take part in the run hash.
	Instructions() string
	Review(ctx context.Context, migrations []MigrationRecord, projectContext string) ([]MigrationRecord, error)
}
