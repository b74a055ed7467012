package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideWorkDir is returned for migration paths that resolve outside the checkout.
var ErrOutsideWorkDir = errors.New("path is outside of the working directory")

// ResolveInWorkDir joins a repository-relative path onto workDir and follows
// symlinks. The result must exist and stay inside workDir; a pull request
// could otherwise point the dry-run at arbitrary files on the host.
func ResolveInWorkDir(workDir, path string) (string, error) {
	absBase, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute base path: %w", err)
	}
	// e.g. macOS /var -> /private/var
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}

	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%q: %w", path, ErrOutsideWorkDir)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(absBase, filepath.FromSlash(path)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	rel, err := filepath.Rel(absBase, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%q: %w", path, ErrOutsideWorkDir)
	}
	return resolved, nil
}
