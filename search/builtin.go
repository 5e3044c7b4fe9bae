package search

import (
	"context"
	"fmt"
	"io/fs"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/ignore"
	"github.com/lexandro/errcode-audit/index"
	"github.com/lexandro/errcode-audit/language"
)

// BuiltinOptions configures the built-in searcher.
type BuiltinOptions struct {
	RootDir          string
	Workers          int
	MaxFileSizeBytes int64
	Logger           *slog.Logger
}

// Builtin walks the repository itself, reads eligible files with a bounded
// worker pool and finds codes through an in-memory content index.
// Searches are serialized; each one starts from empty indexes.
type Builtin struct {
	rootDir       string
	workers       int
	logger        *slog.Logger
	ignoreMatcher *ignore.Matcher

	mu           sync.Mutex
	pattern      string
	fileIndex    *index.FileIndex
	contentIndex *index.ContentIndex
}

// NewBuiltin creates a built-in searcher rooted at options.RootDir.
func NewBuiltin(options BuiltinOptions) *Builtin {
	workers := options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builtin{
		rootDir: options.RootDir,
		workers: workers,
		logger:  logger,
		ignoreMatcher: ignore.NewMatcher(ignore.MatcherOptions{
			RootDir:          options.RootDir,
			MaxFileSizeBytes: options.MaxFileSizeBytes,
		}),
		fileIndex: index.NewFileIndex(),
	}
}

// Matcher returns the ignore rules the searcher walks with.
func (b *Builtin) Matcher() *ignore.Matcher {
	return b.ignoreMatcher
}

// Files returns metadata of the files read by the last search.
func (b *Builtin) Files() *index.FileIndex {
	return b.fileIndex
}

// Search walks the tree and returns a record per line holding a code.
func (b *Builtin) Search(ctx context.Context, query Query) ([]audit.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.resetIndexes(query.Pattern); err != nil {
		return nil, err
	}

	indexedCount, totalSize, err := b.performIndexing(ctx, query)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("indexed files", "files", indexedCount, "bytes", totalSize, "types", b.fileIndex.TypeCounts())

	results, err := b.contentIndex.Search()
	if err != nil {
		return nil, fmt.Errorf("querying content index: %w", err)
	}

	var records []audit.Record
	for _, result := range results {
		for _, match := range result.Matches {
			records = append(records, audit.Record{
				File: result.RelativePath,
				Line: match.LineNumber,
				Text: match.LineText,
			})
		}
	}
	return records, nil
}

// resetIndexes empties both indexes, rebuilding the content index when the
// code pattern changed.
func (b *Builtin) resetIndexes(pattern string) error {
	b.fileIndex.Clear()
	if b.contentIndex != nil && b.pattern == pattern {
		return b.contentIndex.Clear()
	}
	if b.contentIndex != nil {
		if err := b.contentIndex.Close(); err != nil {
			b.logger.Debug("closing content index", "error", err)
		}
	}
	contentIndex, err := index.NewContentIndex(pattern)
	if err != nil {
		return fmt.Errorf("creating content index: %w", err)
	}
	b.contentIndex = contentIndex
	b.pattern = pattern
	return nil
}

type indexJob struct {
	path    string
	relPath string
	info    fs.FileInfo
}

// performIndexing walks the root directory and indexes every eligible file.
// Returns the number of files indexed and the bytes processed.
func (b *Builtin) performIndexing(ctx context.Context, query Query) (int, int64, error) {
	var indexedCount int
	var totalSize int64
	var mu sync.Mutex

	jobs := make(chan indexJob, 100)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := b.indexSingleFile(job); err != nil {
					b.logger.Debug("skipped file", "path", job.relPath, "error", err)
					continue
				}
				mu.Lock()
				indexedCount++
				totalSize += job.info.Size()
				mu.Unlock()
			}
		}()
	}

	walkErr := filepath.WalkDir(b.rootDir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == b.rootDir {
				return err
			}
			return nil
		}
		if path == b.rootDir {
			return nil
		}
		relPath := b.ignoreMatcher.Relative(path)
		if d.IsDir() {
			if b.ignoreMatcher.ShouldIgnoreDir(path) || ignore.MatchesAny(query.Excludes, relPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if b.ignoreMatcher.ShouldIgnore(path) || ignore.MatchesAny(query.Excludes, relPath) {
			return nil
		}
		if !language.Matches(relPath, query.Types) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if b.ignoreMatcher.IsFileTooLarge(info.Size()) {
			b.logger.Debug("skipped large file", "path", relPath, "size", info.Size())
			return nil
		}
		jobs <- indexJob{path: path, relPath: relPath, info: info}
		return nil
	})

	close(jobs)
	wg.Wait()

	if walkErr != nil {
		return 0, 0, fmt.Errorf("walking %s: %w", b.rootDir, walkErr)
	}
	return indexedCount, totalSize, nil
}

// indexSingleFile reads one file into both indexes.
func (b *Builtin) indexSingleFile(job indexJob) error {
	content, err := readFileWithRetry(job.path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	if language.IsBinaryContent(content) {
		return fmt.Errorf("binary file")
	}

	contentStr := string(content)
	fileTypes := language.DetectTypes(job.relPath)

	b.fileIndex.AddFile(&index.IndexedFile{
		Path:         job.path,
		RelativePath: job.relPath,
		Types:        fileTypes,
		SizeBytes:    job.info.Size(),
		ModTime:      job.info.ModTime(),
		LineCount:    strings.Count(contentStr, "\n") + 1,
	})

	if err := b.contentIndex.IndexFile(job.relPath, contentStr); err != nil {
		return fmt.Errorf("indexing content: %w", err)
	}
	return nil
}

// ReadFile implements audit.ContentReader, serving content read by the last
// search and falling back to disk for files it did not index.
func (b *Builtin) ReadFile(ctx context.Context, relativePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	contentIndex := b.contentIndex
	b.mu.Unlock()

	if contentIndex != nil {
		if content, ok := contentIndex.GetFileContent(relativePath); ok {
			return content, nil
		}
	}
	data, err := readFileWithRetry(filepath.Join(b.rootDir, filepath.FromSlash(relativePath)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close releases the content index.
func (b *Builtin) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.contentIndex == nil {
		return nil
	}
	err := b.contentIndex.Close()
	b.contentIndex = nil
	return err
}
