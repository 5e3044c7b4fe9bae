// Package ignore decides which paths of a repository are searched for codes.
package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Matcher combines hidden-path rules, default skip directories and the
// repository's ignore files.
// Thread-safe: Reload() takes the write lock, lookups take the read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	ignoreFiles      []gitignore.GitIgnore
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir          string
	MaxFileSizeBytes int64
}

// NewMatcher creates a matcher rooted at options.RootDir.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}
	if matcher.maxFileSizeBytes <= 0 {
		matcher.maxFileSizeBytes = 1024 * 1024
	}
	matcher.ignoreFiles = loadIgnoreFiles(options.RootDir)
	return matcher
}

// RootDir returns the directory paths are resolved against.
func (m *Matcher) RootDir() string {
	return m.rootDir
}

// Relative converts an absolute path into a root-relative, slash-separated path.
func (m *Matcher) Relative(absolutePath string) string {
	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	return filepath.ToSlash(relativePath)
}

// ShouldIgnore reports whether a file must not be searched.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	return m.shouldIgnore(absolutePath, false)
}

// ShouldIgnoreDir reports whether a directory must not be descended into.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	return m.shouldIgnore(absolutePath, true)
}

func (m *Matcher) shouldIgnore(absolutePath string, isDir bool) bool {
	relativePath := m.Relative(absolutePath)
	if relativePath == "." {
		return false
	}

	// Hidden files and directories are skipped, like ripgrep does by default.
	for _, part := range strings.Split(relativePath, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
		if _, skip := DefaultSkipDirs[part]; skip {
			return true
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, gi := range m.ignoreFiles {
		match := gi.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// MatchesAny reports whether a root-relative path matches one of the
// exclusion globs. A leading "!" is accepted so ripgrep-style globs can be
// shared between backends.
func MatchesAny(patterns []string, relativePath string) bool {
	relativePath = filepath.ToSlash(relativePath)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(strings.TrimPrefix(pattern, "!"))
		matched, err := doublestar.Match(pattern, relativePath)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// MaxFileSizeBytes returns the size limit above which files are skipped.
func (m *Matcher) MaxFileSizeBytes() int64 {
	return m.maxFileSizeBytes
}

// IsFileTooLarge returns true if the file exceeds the max file size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxFileSizeBytes
}

// IsIgnoreFile reports whether a base name is one of the loaded ignore files.
func IsIgnoreFile(baseName string) bool {
	for _, name := range IgnoreFileNames {
		if baseName == name {
			return true
		}
	}
	return false
}

// Reload re-reads the ignore files from disk.
func (m *Matcher) Reload() {
	loaded := loadIgnoreFiles(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreFiles = loaded
}

func loadIgnoreFiles(rootDir string) []gitignore.GitIgnore {
	var loaded []gitignore.GitIgnore
	for _, name := range IgnoreFileNames {
		if gi := loadIgnoreFile(filepath.Join(rootDir, name), rootDir); gi != nil {
			loaded = append(loaded, gi)
		}
	}
	return loaded
}

// loadIgnoreFile parses one ignore file; a missing file yields nil.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
