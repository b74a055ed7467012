package core

import (
	"fmt"
	"time"

	"github.com/google/go-github/v73/github"
)

// PullRequest identifies the target of one migration check run.
type PullRequest struct {
	Owner          string
	Repo           string
	Number         int
	HeadSHA        string
	CloneURL       string
	InstallationID int64
}

// FullName returns "owner/repo".
func (p *PullRequest) FullName() string {
	return p.Owner + "/" + p.Repo
}

// CheckRun is the persisted record of a finished run.
type CheckRun struct {
	ID             int64     `db:"id" json:"id"`
	RepoFullName   string    `db:"repo_full_name" json:"repo_full_name"`
	PRNumber       int       `db:"pr_number" json:"pr_number"`
	HeadSHA        string    `db:"head_sha" json:"head_sha"`
	Outcome        Outcome   `db:"outcome" json:"outcome"`
	RunHash        string    `db:"run_hash" json:"run_hash,omitempty"`
	MigrationCount int       `db:"migration_count" json:"migration_count"`
	Error          string    `db:"error" json:"error,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

var triggeringActions = map[string]bool{
	"opened":           true,
	"synchronize":      true,
	"reopened":         true,
	"edited":           true,
	"ready_for_review": true,
}

// EventFromPullRequest transforms a raw GitHub PullRequestEvent into the
// application's PullRequest. It acts as an anti-corruption layer, ensuring
// the payload carries everything a run needs before a job is queued.
func EventFromPullRequest(event *github.PullRequestEvent) (*PullRequest, error) {
	if !triggeringActions[event.GetAction()] {
		return nil, fmt.Errorf("pull request action %q does not trigger a check", event.GetAction())
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("repository or owner information is missing from the event")
	}

	number := event.GetNumber()
	if number <= 0 {
		number = event.GetPullRequest().GetNumber()
	}
	if number <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", number)
	}

	headSHA := event.GetPullRequest().GetHead().GetSHA()
	if headSHA == "" {
		return nil, fmt.Errorf("head SHA is missing from the event")
	}

	return &PullRequest{
		Owner:          repo.GetOwner().GetLogin(),
		Repo:           repo.GetName(),
		Number:         number,
		HeadSHA:        headSHA,
		CloneURL:       repo.GetCloneURL(),
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}
