// Package index keeps searched file contents in memory so code occurrences
// can be found without a second pass over the disk.
package index

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	regexptokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/mapping"
)

const codeAnalyzer = "code"

// ContentIndex is a Bleve in-memory index whose content field only holds
// code-shaped tokens, so a wildcard query finds every file mentioning a code.
type ContentIndex struct {
	mu          sync.RWMutex
	index       bleve.Index
	codePattern string
	codeRegexp  *regexp.Regexp
	// fileContents keeps raw content for line-level extraction
	fileContents map[string]string // key: relative path, value: file content
}

// NewContentIndex creates an index that tokenizes content with codePattern.
func NewContentIndex(codePattern string) (*ContentIndex, error) {
	codeRegexp, err := regexp.Compile(codePattern)
	if err != nil {
		return nil, fmt.Errorf("compiling code pattern: %w", err)
	}
	bleveIndex, err := newBleveIndex(codePattern)
	if err != nil {
		return nil, err
	}

	return &ContentIndex{
		index:        bleveIndex,
		codePattern:  codePattern,
		codeRegexp:   codeRegexp,
		fileContents: make(map[string]string),
	}, nil
}

// bleveDocument is the document structure stored in Bleve.
type bleveDocument struct {
	Content string `json:"content"`
	Path    string `json:"path"`
}

func newBleveIndex(codePattern string) (bleve.Index, error) {
	indexMapping, err := buildIndexMapping(codePattern)
	if err != nil {
		return nil, err
	}
	bleveIndex, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return bleveIndex, nil
}

// buildIndexMapping registers the code tokenizer and maps the content field onto it.
func buildIndexMapping(codePattern string) (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomTokenizer(codeAnalyzer, map[string]interface{}{
		"type":   regexptokenizer.Name,
		"regexp": codePattern,
	})
	if err != nil {
		return nil, fmt.Errorf("registering code tokenizer: %w", err)
	}
	err = indexMapping.AddCustomAnalyzer(codeAnalyzer, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": codeAnalyzer,
	})
	if err != nil {
		return nil, fmt.Errorf("registering code analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()

	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = codeAnalyzer
	contentFieldMapping.Store = false // raw content lives in fileContents
	contentFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("content", contentFieldMapping)

	pathFieldMapping := bleve.NewKeywordFieldMapping()
	pathFieldMapping.Store = true
	pathFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// IndexFile adds or updates a file's content in the index.
func (ci *ContentIndex) IndexFile(relativePath string, content string) error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	doc := bleveDocument{
		Content: content,
		Path:    relativePath,
	}

	ci.fileContents[relativePath] = content
	if err := ci.index.Index(relativePath, doc); err != nil {
		return fmt.Errorf("indexing file %s: %w", relativePath, err)
	}
	return nil
}

// ContentSearchResult holds the matching lines of one file.
type ContentSearchResult struct {
	RelativePath string
	Matches      []LineMatch
}

// LineMatch is a single line holding at least one code.
type LineMatch struct {
	LineNumber int // 1-based
	LineText   string
	Codes      []string
}

// Search finds every file holding a code token and returns its matching
// lines, ordered by path.
func (ci *ContentIndex) Search() ([]ContentSearchResult, error) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	docCount, err := ci.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	if docCount == 0 {
		return nil, nil
	}

	// Any term of the content field is a code token.
	anyCode := bleve.NewWildcardQuery("*")
	anyCode.SetField("content")
	searchRequest := bleve.NewSearchRequest(anyCode)
	searchRequest.Size = int(docCount)

	searchResults, err := ci.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	paths := make([]string, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		paths = append(paths, hit.ID)
	}
	sort.Strings(paths)

	var results []ContentSearchResult
	for _, relativePath := range paths {
		content, ok := ci.fileContents[relativePath]
		if !ok {
			continue
		}
		if lineMatches := ci.findMatchingLines(content); len(lineMatches) > 0 {
			results = append(results, ContentSearchResult{RelativePath: relativePath, Matches: lineMatches})
		}
	}
	return results, nil
}

// findMatchingLines scans content for lines holding code tokens.
func (ci *ContentIndex) findMatchingLines(content string) []LineMatch {
	var matches []LineMatch
	for lineIdx, line := range strings.Split(content, "\n") {
		codes := ci.codeRegexp.FindAllString(line, -1)
		if len(codes) == 0 {
			continue
		}
		matches = append(matches, LineMatch{
			LineNumber: lineIdx + 1,
			LineText:   strings.TrimSuffix(line, "\r"),
			Codes:      codes,
		})
	}
	return matches
}

// Close closes the Bleve index.
func (ci *ContentIndex) Close() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	return ci.index.Close()
}

// GetFileContent returns the raw content of an indexed file.
func (ci *ContentIndex) GetFileContent(relativePath string) (string, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	normalizedPath := strings.ReplaceAll(relativePath, "\\", "/")
	content, ok := ci.fileContents[normalizedPath]
	return content, ok
}

// Clear removes all documents and recreates the index.
func (ci *ContentIndex) Clear() error {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if err := ci.index.Close(); err != nil {
		return fmt.Errorf("closing old index: %w", err)
	}

	newIndex, err := newBleveIndex(ci.codePattern)
	if err != nil {
		return err
	}

	ci.index = newIndex
	ci.fileContents = make(map[string]string)
	return nil
}
