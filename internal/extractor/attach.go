package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/migration-warden/internal/core"
)

// DefaultConcurrency bounds the number of dry-run commands running at once.
const DefaultConcurrency = 4

// Attacher fills in queries and source code for detected migrations.
type Attacher struct {
	extractor   core.QueryExtractor
	workDir     string
	concurrency int
	logger      *slog.Logger
}

// NewAttacher returns an Attacher reading sources relative to workDir.
func NewAttacher(extractor core.QueryExtractor, workDir string, concurrency int, logger *slog.Logger) *Attacher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Attacher{extractor: extractor, workDir: workDir, concurrency: concurrency, logger: logger}
}

// Attach returns a copy of ms with Queries and SourceCode populated. Results
// keep the input order regardless of completion order. The first failure
// cancels the rest and is returned as *core.ExtractionError.
func (a *Attacher) Attach(ctx context.Context, ms []core.MigrationRecord) ([]core.MigrationRecord, error) {
	out := make([]core.MigrationRecord, len(ms))
	copy(out, ms)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i := range out {
		g.Go(func() error {
			path := out[i].Path
			file, err := ResolveInWorkDir(a.workDir, path)
			if err != nil {
				return &core.ExtractionError{Path: path, Err: err}
			}

			queries, err := a.extractor.ExtractQueries(gctx, path)
			if err != nil {
				var cmdErr *commandError
				output := ""
				if errors.As(err, &cmdErr) {
					output = cmdErr.stderr
				}
				return &core.ExtractionError{Path: path, Output: output, Err: err}
			}

			source, err := os.ReadFile(file)
			if err != nil {
				return &core.ExtractionError{Path: path, Err: fmt.Errorf("reading source: %w", err)}
			}

			out[i].Queries = queries
			out[i].SourceCode = string(source)
			a.logger.DebugContext(gctx, "migration queries extracted", "file", path, "queries", len(queries))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
