package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/migration-warden/internal/core"
	"github.com/sevigo/migration-warden/internal/migration"
)

type fakeLister struct {
	files []core.ChangedFile
	err   error
}

func (f *fakeLister) ListChangedFiles(_ context.Context, _, _ string, _ int) ([]core.ChangedFile, error) {
	return f.files, f.err
}

type fakeComments struct {
	existing *core.TrackedComment
	findErr  error

	created []string
	updated map[int64]string
	deleted []int64
}

func (f *fakeComments) Find(context.Context, *core.PullRequest) (*core.TrackedComment, error) {
	return f.existing, f.findErr
}

func (f *fakeComments) Create(_ context.Context, _ *core.PullRequest, body string) error {
	f.created = append(f.created, body)
	return nil
}

func (f *fakeComments) Update(_ context.Context, _ *core.PullRequest, id int64, body string) error {
	if f.updated == nil {
		f.updated = map[int64]string{}
	}
	f.updated[id] = body
	return nil
}

func (f *fakeComments) Delete(_ context.Context, _ *core.PullRequest, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeComments) mutated() bool {
	return len(f.created) > 0 || len(f.updated) > 0 || len(f.deleted) > 0
}

type fakeAttacher struct {
	queries map[string][]string
	err     error
	calls   int
}

func (f *fakeAttacher) Attach(_ context.Context, ms []core.MigrationRecord) ([]core.MigrationRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.MigrationRecord, len(ms))
	copy(out, ms)
	for i := range out {
		out[i].Queries = f.queries[out[i].Path]
		out[i].SourceCode = "<?php // " + out[i].Filename
	}
	return out, nil
}

type fakeReviewer struct {
	instructions string
	verdicts     map[string]core.ReviewResult
	err          error
	calls        int
	gotContext   string
}

func (f *fakeReviewer) Instructions() string { return f.instructions }

func (f *fakeReviewer) Review(_ context.Context, ms []core.MigrationRecord, projectContext string) ([]core.MigrationRecord, error) {
	f.calls++
	f.gotContext = projectContext
	if f.err != nil {
		return nil, f.err
	}
	out := make([]core.MigrationRecord, len(ms))
	copy(out, ms)
	for i := range out {
		if v, ok := f.verdicts[out[i].Filename]; ok {
			out[i].Review = &v
		}
	}
	return out, nil
}

func testPR() *core.PullRequest {
	return &core.PullRequest{Owner: "acme", Repo: "shop", Number: 42, HeadSHA: "abc123"}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func usersMigration() []core.ChangedFile {
	return []core.ChangedFile{
		{Path: "app/Models/User.php", Status: core.ChangeModified},
		{Path: "database/migrations/2024_01_01_000000_create_users.php", Status: core.ChangeAdded},
	}
}

func usersQueries() map[string][]string {
	return map[string][]string{
		"database/migrations/2024_01_01_000000_create_users.php": {
			"create table `users` (`id` bigint unsigned not null)",
			"alter table `users` add unique `users_email_unique`(`email`)",
		},
	}
}

func TestMigrationCheck_NoMigrationsDeletesTrackedComment(t *testing.T) {
	comments := &fakeComments{existing: &core.TrackedComment{ID: 7, Body: "old"}}
	attacher := &fakeAttacher{}
	reviewer := &fakeReviewer{instructions: "review"}
	check := NewMigrationCheck(
		&fakeLister{files: []core.ChangedFile{{Path: "README.md", Status: core.ChangeModified}}},
		comments, attacher, reviewer, Settings{}, discardLogger())

	outcome, err := check.Check(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeNoMigrations, outcome)
	assert.Equal(t, []int64{7}, comments.deleted)
	assert.Empty(t, comments.created)
	assert.Zero(t, attacher.calls)
	assert.Zero(t, reviewer.calls)
}

func TestMigrationCheck_NoMigrationsWithoutCommentIsNoop(t *testing.T) {
	comments := &fakeComments{}
	check := NewMigrationCheck(&fakeLister{}, comments, &fakeAttacher{}, nil, Settings{}, discardLogger())

	outcome, err := check.Check(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeNoMigrations, outcome)
	assert.False(t, comments.mutated())
}

func TestMigrationCheck_RemovedMigrationIsIgnored(t *testing.T) {
	comments := &fakeComments{}
	files := []core.ChangedFile{{Path: "database/migrations/2020_drop.php", Status: core.ChangeRemoved}}
	check := NewMigrationCheck(&fakeLister{files: files}, comments, &fakeAttacher{}, nil, Settings{}, discardLogger())

	outcome, err := check.Check(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeNoMigrations, outcome)
}

func TestMigrationCheck_WithoutReviewerPostsSummary(t *testing.T) {
	comments := &fakeComments{}
	check := NewMigrationCheck(&fakeLister{files: usersMigration()}, comments,
		&fakeAttacher{queries: usersQueries()}, nil, Settings{}, discardLogger())

	res, err := check.Execute(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeNoReviewRequested, res.Outcome)
	assert.Equal(t, 1, res.Migrations)
	assert.Empty(t, res.RunHash)

	require.Len(t, comments.created, 1)
	body := comments.created[0]
	assert.Contains(t, body, "#### (added) 2024_01_01_000000_create_users.php")
	assert.Contains(t, body, "```sql\n"+
		"create table `users` (`id` bigint unsigned not null)\n"+
		"alter table `users` add unique `users_email_unique`(`email`)\n"+
		"```")
	assert.Equal(t, 1, strings.Count(body, "```sql"))
	assert.NotContains(t, body, "llm-run-hash")
	assert.NotContains(t, body, "LLM Review")
}

func TestMigrationCheck_WithoutReviewerUpdatesExisting(t *testing.T) {
	comments := &fakeComments{existing: &core.TrackedComment{ID: 3, Body: "stale"}}
	check := NewMigrationCheck(&fakeLister{files: usersMigration()}, comments,
		&fakeAttacher{queries: usersQueries()}, nil, Settings{}, discardLogger())

	outcome, err := check.Check(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeNoReviewRequested, outcome)
	assert.Empty(t, comments.created)
	assert.Contains(t, comments.updated, int64(3))
}

func TestMigrationCheck_ReviewPerformed(t *testing.T) {
	comments := &fakeComments{}
	reviewer := &fakeReviewer{
		instructions: "review these",
		verdicts: map[string]core.ReviewResult{
			"2024_01_01_000000_create_users.php": {Safe: true, Comment: "Creates a new table."},
		},
	}
	settings := Settings{Context: "MySQL 8, users has 2M rows"}
	check := NewMigrationCheck(&fakeLister{files: usersMigration()}, comments,
		&fakeAttacher{queries: usersQueries()}, reviewer, settings, discardLogger())

	res, err := check.Execute(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeReviewPerformed, res.Outcome)
	assert.Equal(t, 1, reviewer.calls)
	assert.Equal(t, settings.Context, reviewer.gotContext)

	require.Len(t, comments.created, 1)
	body := comments.created[0]
	assert.Contains(t, body, "✅ Safe")
	assert.Contains(t, body, "Creates a new table.")
	assert.True(t, strings.HasSuffix(body, migration.RunHashMarker(res.RunHash)))

	got, ok := migration.ExtractRunHash(body)
	require.True(t, ok)
	assert.Equal(t, res.RunHash, got)
}

func TestMigrationCheck_UnchangedHashSkipsReview(t *testing.T) {
	attacher := &fakeAttacher{queries: usersQueries()}
	reviewer := &fakeReviewer{instructions: "review these"}
	settings := Settings{Context: "ctx"}

	attached, err := attacher.Attach(context.Background(),
		migration.DetectMigrations(usersMigration(), "", ""))
	require.NoError(t, err)
	hash := migration.ComputeRunHash(reviewer.instructions, settings.Context, attached)

	comments := &fakeComments{existing: &core.TrackedComment{
		ID:   11,
		Body: "previous review\n" + migration.RunHashMarker(hash),
	}}
	check := NewMigrationCheck(&fakeLister{files: usersMigration()}, comments, attacher, reviewer, settings, discardLogger())

	res, err := check.Execute(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeReviewSkippedUnchanged, res.Outcome)
	assert.Equal(t, hash, res.RunHash)
	assert.Zero(t, reviewer.calls)
	assert.False(t, comments.mutated())
}

func TestMigrationCheck_ChangedContextTriggersReview(t *testing.T) {
	attacher := &fakeAttacher{queries: usersQueries()}
	reviewer := &fakeReviewer{instructions: "review these"}

	attached, err := attacher.Attach(context.Background(),
		migration.DetectMigrations(usersMigration(), "", ""))
	require.NoError(t, err)
	oldHash := migration.ComputeRunHash(reviewer.instructions, "old context", attached)

	comments := &fakeComments{existing: &core.TrackedComment{ID: 11, Body: migration.RunHashMarker(oldHash)}}
	check := NewMigrationCheck(&fakeLister{files: usersMigration()}, comments, attacher, reviewer,
		Settings{Context: "new context"}, discardLogger())

	res, err := check.Execute(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeReviewPerformed, res.Outcome)
	assert.NotEqual(t, oldHash, res.RunHash)
	assert.Equal(t, 1, reviewer.calls)
	assert.Contains(t, comments.updated, int64(11))
}

func TestMigrationCheck_FailuresLeaveCommentUntouched(t *testing.T) {
	listErr := errors.New("boom")

	tests := []struct {
		name     string
		lister   *fakeLister
		attacher *fakeAttacher
		reviewer *fakeReviewer
		target   any
	}{
		{
			name:     "list files fails",
			lister:   &fakeLister{err: listErr},
			attacher: &fakeAttacher{},
			reviewer: &fakeReviewer{},
			target:   new(*core.PlatformAPIError),
		},
		{
			name:     "extraction fails",
			lister:   &fakeLister{files: usersMigration()},
			attacher: &fakeAttacher{err: &core.ExtractionError{Path: "database/migrations/x.php", Err: listErr}},
			reviewer: &fakeReviewer{},
			target:   new(*core.ExtractionError),
		},
		{
			name:     "review fails",
			lister:   &fakeLister{files: usersMigration()},
			attacher: &fakeAttacher{queries: usersQueries()},
			reviewer: &fakeReviewer{err: &core.ReviewCallError{Provider: "openai", Err: listErr}},
			target:   new(*core.ReviewCallError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comments := &fakeComments{existing: &core.TrackedComment{ID: 5, Body: "keep me"}}
			check := NewMigrationCheck(tt.lister, comments, tt.attacher, tt.reviewer, Settings{}, discardLogger())

			outcome, err := check.Check(context.Background(), testPR())
			require.Error(t, err)
			assert.Equal(t, core.OutcomeFailed, outcome)
			assert.ErrorAs(t, err, tt.target)
			assert.ErrorIs(t, err, listErr)
			assert.False(t, comments.mutated())
		})
	}
}

func TestMigrationCheck_FindFailureIsReturned(t *testing.T) {
	findErr := &core.PlatformAPIError{Op: "list comments", Err: errors.New("403")}
	comments := &fakeComments{findErr: findErr}
	check := NewMigrationCheck(&fakeLister{files: usersMigration()}, comments, &fakeAttacher{}, nil, Settings{}, discardLogger())

	outcome, err := check.Check(context.Background(), testPR())
	require.ErrorIs(t, err, findErr)
	assert.Equal(t, core.OutcomeFailed, outcome)
	assert.False(t, comments.mutated())
}

func TestMigrationCheck_CustomMigrationsPath(t *testing.T) {
	comments := &fakeComments{}
	files := []core.ChangedFile{
		{Path: "modules/billing/migrations/2024_add_invoices.php", Status: core.ChangeAdded},
		{Path: "database/migrations/2024_ignored.php", Status: core.ChangeAdded},
	}
	check := NewMigrationCheck(&fakeLister{files: files}, comments, &fakeAttacher{}, nil,
		Settings{MigrationsPath: "modules/billing/migrations/"}, discardLogger())

	res, err := check.Execute(context.Background(), testPR())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Migrations)
	require.Len(t, comments.created, 1)
	assert.Contains(t, comments.created[0], "2024_add_invoices.php")
	assert.NotContains(t, comments.created[0], "2024_ignored.php")
}

func TestNewMigrationCheck_PanicsOnMissingDeps(t *testing.T) {
	assert.Panics(t, func() {
		NewMigrationCheck(nil, &fakeComments{}, &fakeAttacher{}, nil, Settings{}, nil)
	})
	assert.Panics(t, func() {
		NewMigrationCheck(&fakeLister{}, nil, &fakeAttacher{}, nil, Settings{}, nil)
	})
	assert.Panics(t, func() {
		NewMigrationCheck(&fakeLister{}, &fakeComments{}, nil, nil, Settings{}, nil)
	})
}
