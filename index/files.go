package index

import (
	"sort"
	"sync"
	"time"
)

// IndexedFile represents a file read during a search.
type IndexedFile struct {
	Path         string    // Absolute file path
	RelativePath string    // Path relative to the repository root (forward slashes)
	Types        []string  // Detected file types
	SizeBytes    int64     // File size in bytes
	ModTime      time.Time // Last modification time
	LineCount    int       // Number of lines in the file
}

// FileIndex keeps metadata of the files read during a search.
// It uses a map for O(1) path lookups and a sorted slice for ordered iteration.
type FileIndex struct {
	mu          sync.RWMutex
	files       map[string]*IndexedFile // key: relative path (forward slashes)
	sortedPaths []string
}

// NewFileIndex creates a new empty file index.
func NewFileIndex() *FileIndex {
	return &FileIndex{
		files:       make(map[string]*IndexedFile),
		sortedPaths: make([]string, 0),
	}
}

// AddFile adds or updates a file in the index.
func (fi *FileIndex) AddFile(file *IndexedFile) {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	_, exists := fi.files[file.RelativePath]
	fi.files[file.RelativePath] = file

	if !exists {
		idx := sort.SearchStrings(fi.sortedPaths, file.RelativePath)
		fi.sortedPaths = append(fi.sortedPaths, "")
		copy(fi.sortedPaths[idx+1:], fi.sortedPaths[idx:])
		fi.sortedPaths[idx] = file.RelativePath
	}
}

// GetFile returns the IndexedFile for a given relative path, or nil if not found.
func (fi *FileIndex) GetFile(relativePath string) *IndexedFile {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.files[relativePath]
}

// FileCount returns the number of indexed files.
func (fi *FileIndex) FileCount() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.files)
}

// TotalSizeBytes returns the total size of all indexed files.
func (fi *FileIndex) TotalSizeBytes() int64 {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	var totalSize int64
	for _, file := range fi.files {
		totalSize += file.SizeBytes
	}
	return totalSize
}

// TypeCounts returns a map of file type -> file count. Files matching
// several types count once per type; untyped files count under "".
func (fi *FileIndex) TypeCounts() map[string]int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	counts := make(map[string]int)
	for _, file := range fi.files {
		if len(file.Types) == 0 {
			counts[""]++
			continue
		}
		for _, t := range file.Types {
			counts[t]++
		}
	}
	return counts
}

// AllFiles returns all indexed files in path order.
func (fi *FileIndex) AllFiles() []*IndexedFile {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	result := make([]*IndexedFile, 0, len(fi.sortedPaths))
	for _, path := range fi.sortedPaths {
		result = append(result, fi.files[path])
	}
	return result
}

// Clear removes all files from the index.
func (fi *FileIndex) Clear() {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	fi.files = make(map[string]*IndexedFile)
	fi.sortedPaths = make([]string, 0)
}
