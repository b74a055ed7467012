// Package migration selects migration files from a pull request and computes
// the identity of a review run over them.
package migration

import (
	"strings"

	"github.com/sevigo/migration-warden/internal/core"
)

const (
	DefaultDir       = "database/migrations/"
	DefaultExtension = ".php"
)

// DetectMigrations keeps the changed files that live under dir, end with ext
// and still exist in the head revision. Input order is preserved.
func DetectMigrations(files []core.ChangedFile, dir, ext string) []core.MigrationRecord {
	if dir == "" {
		dir = DefaultDir
	}
	if ext == "" {
		ext = DefaultExtension
	}

	var out []core.MigrationRecord
	for _, f := range files {
		if !strings.HasPrefix(f.Path, dir) || !strings.HasSuffix(f.Path, ext) {
			continue
		}
		if !f.Status.Reviewable() {
			continue
		}
		out = append(out, core.MigrationRecord{
			Filename: Filename(f.Path),
			Path:     f.Path,
			Status:   f.Status,
		})
	}
	return out
}

// Filename returns the final slash-separated segment of path.
func Filename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
