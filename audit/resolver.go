package audit

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ContentReader returns the full text of a file named relative to the repository root.
type ContentReader interface {
	ReadFile(ctx context.Context, path string) (string, error)
}

// FileResolver applies file-level ignore markers to an Index.
type FileResolver struct {
	reader  ContentReader
	token   string
	workers int
	logger  *slog.Logger
}

// NewFileResolver creates a resolver reading through reader.
// workers <= 0 uses GOMAXPROCS.
func NewFileResolver(taxonomy Taxonomy, reader ContentReader, workers int, logger *slog.Logger) *FileResolver {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &FileResolver{
		reader:  reader,
		token:   taxonomy.FileIgnoreToken,
		workers: workers,
		logger:  logger,
	}
}

// Resolve marks every location in a file carrying the file ignore token as
// ignored and returns the sorted list of such files. Unreadable files are
// treated as not ignored. The only error is cancellation of ctx, after which
// the index must be discarded.
func (r *FileResolver) Resolve(ctx context.Context, idx *Index) ([]string, error) {
	// One slot per file; each goroutine writes only its own.
	marked := make([]bool, len(idx.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, file := range idx.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := r.reader.ReadFile(gctx, file)
			if err != nil {
				r.logger.Debug("cannot read file for ignore marker, treating as not ignored",
					"path", file, "error", err)
				return nil
			}
			marked[i] = strings.Contains(content, r.token)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ignoredFiles := make(map[string]struct{})
	var ignored []string
	for i, file := range idx.Files {
		if marked[i] {
			ignoredFiles[file] = struct{}{}
			ignored = append(ignored, file)
		}
	}
	if len(ignoredFiles) == 0 {
		return nil, nil
	}

	for _, usage := range idx.Usages {
		for _, loc := range usage.Locations {
			if _, ok := ignoredFiles[loc.File]; ok {
				loc.Ignored = true
			}
		}
	}
	return ignored, nil
}
