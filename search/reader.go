package search

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskReader reads files relative to Root straight from disk.
type DiskReader struct {
	Root string
}

// ReadFile implements audit.ContentReader.
func (r DiskReader) ReadFile(ctx context.Context, relativePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := readFileWithRetry(filepath.Join(r.Root, filepath.FromSlash(relativePath)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readFileWithRetry retries once after a short delay, which covers files
// briefly locked by an editor while saving.
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		time.Sleep(50 * time.Millisecond)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
