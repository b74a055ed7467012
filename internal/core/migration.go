package core

// ChangeKind is the file status reported by GitHub for a pull request file.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeModified  ChangeKind = "modified"
	ChangeRenamed   ChangeKind = "renamed"
	ChangeCopied    ChangeKind = "copied"
	ChangeChanged   ChangeKind = "changed"
	ChangeRemoved   ChangeKind = "removed"
	ChangeUnchanged ChangeKind = "unchanged"
)

// Reviewable reports whether a file with this status can be dry-run.
// Removed files have nothing left to execute.
func (k ChangeKind) Reviewable() bool {
	switch k {
	case ChangeAdded, ChangeModified, ChangeRenamed, ChangeCopied, ChangeChanged:
		return true
	default:
		return false
	}
}

// ChangedFile is a single file entry of a pull request.
type ChangedFile struct {
	Path   string
	Status ChangeKind
}

// ReviewResult is the language model verdict for one migration.
type ReviewResult struct {
	Safe             bool
	Comment          string
	SuggestedChanges string
}

// MigrationRecord is a migration file changed by the pull request, together
// with the SQL it would execute and, optionally, its review.
type MigrationRecord struct {
	// Filename is the final path segment, used for display and review matching.
	Filename string
	// Path is the repository-relative path used to dry-run the migration.
	Path       string
	Status     ChangeKind
	Queries    []string
	SourceCode string
	Review     *ReviewResult
}

// IssueComment is a plain comment on a pull request conversation.
type IssueComment struct {
	ID   int64
	Body string
}

// TrackedComment is the single bot-owned comment of a pull request.
type TrackedComment IssueComment

// Outcome is the terminal state of a migration check run.
type Outcome string

const (
	OutcomeNoMigrations           Outcome = "no_migrations"
	OutcomeNoReviewRequested      Outcome = "no_review_requested"
	OutcomeReviewSkippedUnchanged Outcome = "review_skipped_unchanged"
	OutcomeReviewPerformed        Outcome = "review_performed"
	OutcomeFailed                 Outcome = "failed"
)
