package audit

import (
	"sort"
	"strings"
)

// Engine derives audit results from a catalog and a usage table.
type Engine struct {
	taxonomy Taxonomy
	rules    []Rule
}

// NewEngine creates an engine with the default classification chain.
func NewEngine(taxonomy Taxonomy) *Engine {
	return NewEngineWithRules(taxonomy, DefaultRules(taxonomy))
}

// NewEngineWithRules creates an engine evaluating rules top to bottom.
func NewEngineWithRules(taxonomy Taxonomy, rules []Rule) *Engine {
	return &Engine{taxonomy: taxonomy, rules: rules}
}

// SubsystemStat compares catalog and source code counts for one subsystem.
type SubsystemStat struct {
	Number  int    `json:"-"`
	Name    string `json:"-"`
	Prefix  string `json:"prefix"`
	Catalog int    `json:"catalog"`
	Source  int    `json:"source"`
	Gap     int    `json:"gap"` // Source - Catalog
}

// Result is the outcome of one audit run. It is computed once by
// Engine.Reconcile and must not be modified afterwards.
type Result struct {
	Catalog    []string           // every catalog code, sorted
	Active     map[string]Summary // codes with at least one non-ignored location
	Ignored    []string           // codes found in source whose every location is ignored
	Consistent []string           // catalog ∩ active
	Missing    []string           // active − catalog
	Orphaned   []string           // catalog − active

	TestOrExample map[string]Summary
	InvalidFormat map[string]Summary
	Legitimate    map[string]Summary

	Subsystems []SubsystemStat
}

// Reconcile computes the set algebra between the catalog and the active
// source codes and classifies every missing code.
func (e *Engine) Reconcile(catalog CodeSet, usages map[string]*Usage) *Result {
	r := &Result{
		Catalog:       catalog.Sorted(),
		Active:        make(map[string]Summary),
		TestOrExample: make(map[string]Summary),
		InvalidFormat: make(map[string]Summary),
		Legitimate:    make(map[string]Summary),
	}

	active := make(CodeSet)
	for code, usage := range usages {
		if usage.AllIgnored() || len(usage.Locations) == 0 {
			r.Ignored = append(r.Ignored, code)
			continue
		}
		active[code] = struct{}{}
		r.Active[code] = summarize(usage)
	}
	sort.Strings(r.Ignored)

	for _, code := range active.Sorted() {
		if catalog.Has(code) {
			r.Consistent = append(r.Consistent, code)
			continue
		}
		r.Missing = append(r.Missing, code)
		switch classify(e.rules, code, usages[code]) {
		case TestOrExample:
			r.TestOrExample[code] = r.Active[code]
		case InvalidFormat:
			r.InvalidFormat[code] = r.Active[code]
		default:
			r.Legitimate[code] = r.Active[code]
		}
	}
	for _, code := range r.Catalog {
		if !active.Has(code) {
			r.Orphaned = append(r.Orphaned, code)
		}
	}

	r.Subsystems = e.subsystemBreakdown(catalog, active)
	return r
}

// subsystemBreakdown counts catalog and active codes per known subsystem.
// A code belongs to a subsystem when it starts with the subsystem prefix, so
// "Q-01-5" belongs to none.
func (e *Engine) subsystemBreakdown(catalog, active CodeSet) []SubsystemStat {
	stats := make([]SubsystemStat, 0, len(e.taxonomy.Subsystems))
	for _, s := range e.taxonomy.Subsystems {
		prefix := e.taxonomy.SubsystemPrefix(s.Number)
		stat := SubsystemStat{
			Number:  s.Number,
			Name:    s.Name,
			Prefix:  prefix,
			Catalog: countPrefixed(catalog, prefix),
			Source:  countPrefixed(active, prefix),
		}
		stat.Gap = stat.Source - stat.Catalog
		stats = append(stats, stat)
	}
	return stats
}

func countPrefixed(set CodeSet, prefix string) int {
	n := 0
	for code := range set {
		if strings.HasPrefix(code, prefix) {
			n++
		}
	}
	return n
}

// BucketOf returns the bucket of a missing code.
func (r *Result) BucketOf(code string) (Bucket, bool) {
	if _, ok := r.Legitimate[code]; ok {
		return Legitimate, true
	}
	if _, ok := r.TestOrExample[code]; ok {
		return TestOrExample, true
	}
	if _, ok := r.InvalidFormat[code]; ok {
		return InvalidFormat, true
	}
	return 0, false
}

// Failed reports whether the run must signal failure: legitimate missing
// codes or orphaned codes exist.
func (r *Result) Failed() bool {
	return len(r.Legitimate) > 0 || len(r.Orphaned) > 0
}

// ExitCode maps Failed to a process exit status.
func (r *Result) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}
