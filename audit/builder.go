package audit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Index is the usage table produced from one search pass.
type Index struct {
	Usages  map[string]*Usage // key: code
	Files   []string          // sorted distinct files that produced at least one record
	Skipped int               // malformed records dropped while building
}

// Builder consumes match records and accumulates code usages.
// It is not safe for concurrent use.
type Builder struct {
	taxonomy Taxonomy
	codeRe   *regexp.Regexp
	usages   map[string]*Usage
	seen     map[string]map[locationKey]struct{}
	files    map[string]struct{}
	skipped  int
}

// NewBuilder creates a builder for the given taxonomy.
func NewBuilder(taxonomy Taxonomy) (*Builder, error) {
	codeRe, err := regexp.Compile(taxonomy.CodePattern())
	if err != nil {
		return nil, fmt.Errorf("compiling code pattern: %w", err)
	}
	return &Builder{
		taxonomy: taxonomy,
		codeRe:   codeRe,
		usages:   make(map[string]*Usage),
		seen:     make(map[string]map[locationKey]struct{}),
		files:    make(map[string]struct{}),
	}, nil
}

// Add records every code on the record's line.
// It returns false when the record is malformed and was skipped.
func (b *Builder) Add(rec Record) bool {
	if rec.File == "" || rec.Line < 1 {
		b.skipped++
		return false
	}
	b.files[rec.File] = struct{}{}

	lineIgnored := strings.Contains(rec.Text, b.taxonomy.LineIgnoreToken)
	context := snippet(rec.Text, b.taxonomy.ContextWidth)

	for _, code := range b.codeRe.FindAllString(rec.Text, -1) {
		usage, ok := b.usages[code]
		if !ok {
			usage = &Usage{Code: code}
			b.usages[code] = usage
			b.seen[code] = make(map[locationKey]struct{})
		}
		loc := &Location{
			File:    rec.File,
			Line:    rec.Line,
			Context: context,
			Ignored: lineIgnored,
		}
		// The same code twice on one line is one occurrence.
		if _, dup := b.seen[code][loc.key()]; dup {
			continue
		}
		b.seen[code][loc.key()] = struct{}{}
		usage.Locations = append(usage.Locations, loc)
	}
	return true
}

// AddAll records a batch of records in order.
func (b *Builder) AddAll(records []Record) {
	for _, rec := range records {
		b.Add(rec)
	}
}

// Finish returns the accumulated index. The builder must not be used afterwards.
func (b *Builder) Finish() *Index {
	files := make([]string, 0, len(b.files))
	for f := range b.files {
		files = append(files, f)
	}
	sort.Strings(files)
	return &Index{
		Usages:  b.usages,
		Files:   files,
		Skipped: b.skipped,
	}
}

// snippet trims the line and keeps at most width runes.
func snippet(text string, width int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > width {
		return string(runes[:width])
	}
	return text
}
