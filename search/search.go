// Package search finds lines holding error codes in a repository tree.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lexandro/errcode-audit/audit"
)

// ErrUnavailable is returned when the selected backend cannot run on this host.
var ErrUnavailable = errors.New("search backend unavailable")

// Backend names accepted by New.
const (
	BackendBuiltin = "builtin"
	BackendRipgrep = "ripgrep"
)

// Query describes one search over the repository.
type Query struct {
	Pattern  string   // regular expression for a code
	Types    []string // file type names; empty searches every text file
	Excludes []string // doublestar globs of paths to skip
}

// Searcher returns one record per matching line. No match is not an error.
type Searcher interface {
	Search(ctx context.Context, query Query) ([]audit.Record, error)
}

// Options configures New.
type Options struct {
	Backend          string
	RootDir          string
	Workers          int
	MaxFileSizeBytes int64
	RipgrepPath      string // binary name or path; defaults to "rg"
	Logger           *slog.Logger
}

// New creates the searcher named by options.Backend together with the
// reader the file ignore pass should use with it.
func New(options Options) (Searcher, audit.ContentReader, error) {
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	switch strings.ToLower(options.Backend) {
	case "", BackendBuiltin:
		b := NewBuiltin(BuiltinOptions{
			RootDir:          options.RootDir,
			Workers:          options.Workers,
			MaxFileSizeBytes: options.MaxFileSizeBytes,
			Logger:           options.Logger,
		})
		return b, b, nil
	case BackendRipgrep, "rg":
		rg, err := NewRipgrep(options.RipgrepPath, options.RootDir, options.Logger)
		if err != nil {
			return nil, nil, err
		}
		return rg, DiskReader{Root: options.RootDir}, nil
	default:
		return nil, nil, fmt.Errorf("unknown search backend %q (want %s or %s)", options.Backend, BackendBuiltin, BackendRipgrep)
	}
}
