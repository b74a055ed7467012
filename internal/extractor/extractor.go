// Package extractor dry-runs migration files and collects the SQL they would issue.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// PathPlaceholder is replaced by the migration path in a command template.
const PathPlaceholder = "{path}"

// ErrEmptyCommand is returned when a command template has no words.
var ErrEmptyCommand = errors.New("extract command is empty")

// CommandExtractor runs a dry-run command inside the application checkout and
// returns its stdout, one query per line.
type CommandExtractor struct {
	workDir  string
	template []string
	logger   *slog.Logger
}

// NewCommandExtractor builds an extractor that runs in workDir. An empty
// template selects the artisan tinker pretend command.
func NewCommandExtractor(workDir, template string, logger *slog.Logger) (*CommandExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &CommandExtractor{workDir: workDir, logger: logger}
	if strings.TrimSpace(template) == "" {
		return e, nil
	}

	words, err := shellwords.Parse(template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extract command %q: %w", template, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}
	e.template = words
	return e, nil
}

// ExtractQueries dry-runs the migration at path and returns its statements in
// execution order.
func (e *CommandExtractor) ExtractQueries(ctx context.Context, path string) ([]string, error) {
	args := e.command(path)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = e.workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.DebugContext(ctx, "extracting migration queries", "file", path, "command", args[0])
	if err := cmd.Run(); err != nil {
		return nil, &commandError{stderr: strings.TrimSpace(stderr.String()), err: err}
	}
	return ParseQueries(stdout.String()), nil
}

func (e *CommandExtractor) command(path string) []string {
	if len(e.template) == 0 {
		return []string{"php", "artisan", "tinker", "--no-ansi", "--execute", pretendSnippet(path)}
	}
	args := make([]string, len(e.template))
	for i, w := range e.template {
		args[i] = strings.ReplaceAll(w, PathPlaceholder, path)
	}
	return args
}

// pretendSnippet is the PHP evaluated by tinker. The path ends up inside a
// double-quoted PHP string, so backslashes, quotes and dollar signs are escaped.
func pretendSnippet(path string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`).Replace(path)
	return `echo implode(PHP_EOL, array_column(app("db")->pretend(fn()=>(include "` + escaped + `")->up()), "query"));`
}

// ParseQueries splits command output into statements, dropping blank lines.
func ParseQueries(output string) []string {
	var queries []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		queries = append(queries, line)
	}
	return queries
}

type commandError struct {
	stderr string
	err    error
}

func (c *commandError) Error() string { return c.err.Error() }
func (c *commandError) Unwrap() error { return c.err }
