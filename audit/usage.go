package audit

import (
	"sort"
)

// Record is one line reported by the search capability.
// A line may carry several distinct codes.
type Record struct {
	File string // Path relative to the repository root (forward slashes)
	Line int    // 1-based
	Text string
}

// Location is one occurrence of a code.
// Two locations with the same file and line are the same occurrence.
type Location struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Context string `json:"context"`
	Ignored bool   `json:"-"`
}

type locationKey struct {
	file string
	line int
}

func (l *Location) key() locationKey {
	return locationKey{file: l.File, line: l.Line}
}

// Usage aggregates every recorded location of one code in discovery order.
// Ignored flags only move from false to true, first per line while the
// index is built and then per file during FileResolver.Resolve.
type Usage struct {
	Code      string
	Locations []*Location
}

// Count is the number of non-ignored locations.
func (u *Usage) Count() int {
	n := 0
	for _, loc := range u.Locations {
		if !loc.Ignored {
			n++
		}
	}
	return n
}

// AllIgnored is true when the code has locations and every one is ignored.
func (u *Usage) AllIgnored() bool {
	if len(u.Locations) == 0 {
		return false
	}
	for _, loc := range u.Locations {
		if !loc.Ignored {
			return false
		}
	}
	return true
}

// ActiveFiles returns the sorted distinct files holding non-ignored locations.
func (u *Usage) ActiveFiles() []string {
	seen := make(map[string]struct{})
	for _, loc := range u.Locations {
		if !loc.Ignored {
			seen[loc.File] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// FirstActive returns the first non-ignored location, or nil.
func (u *Usage) FirstActive() *Location {
	for _, loc := range u.Locations {
		if !loc.Ignored {
			return loc
		}
	}
	return nil
}

// Summary is the frozen view of a Usage taken when a Result is derived.
type Summary struct {
	Code        string
	Count       int
	ActiveFiles []string
	FirstActive *Location  // nil when every location is ignored
	Locations   []Location // non-ignored locations in discovery order
}

func summarize(u *Usage) Summary {
	s := Summary{
		Code:        u.Code,
		Count:       u.Count(),
		ActiveFiles: u.ActiveFiles(),
	}
	for _, loc := range u.Locations {
		if loc.Ignored {
			continue
		}
		s.Locations = append(s.Locations, *loc)
	}
	if len(s.Locations) > 0 {
		first := s.Locations[0]
		s.FirstActive = &first
	}
	return s
}

// CodeSet is a set of code strings.
type CodeSet map[string]struct{}

// NewCodeSet builds a set from the given codes.
func NewCodeSet(codes ...string) CodeSet {
	set := make(CodeSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether code is in the set.
func (s CodeSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns the members in lexical order.
func (s CodeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
