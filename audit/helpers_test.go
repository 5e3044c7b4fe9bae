package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errNoFile = errors.New("no such file")

// mapReader serves file contents from memory.
type mapReader struct {
	mu    sync.Mutex
	files map[string]string
	reads map[string]int
}

func newMapReader(files map[string]string) *mapReader {
	return &mapReader{files: files, reads: make(map[string]int)}
}

func (r *mapReader) ReadFile(ctx context.Context, path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads[path]++
	content, ok := r.files[path]
	if !ok {
		return "", errNoFile
	}
	return content, nil
}

// runAudit executes a full run with the default taxonomy.
func runAudit(t *testing.T, catalog CodeSet, records []Record, files map[string]string) *Result {
	t.Helper()
	result, err := Run(context.Background(), Input{
		Taxonomy: DefaultTaxonomy(),
		Catalog:  catalog,
		Records:  records,
		Reader:   newMapReader(files),
		Workers:  4,
	}, testLogger())
	if err != nil {
		t.Fatalf("audit run failed: %v", err)
	}
	return result
}
