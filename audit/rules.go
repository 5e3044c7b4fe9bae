package audit

import (
	"slices"
	"strconv"
	"strings"
)

// Bucket is the category assigned to a code missing from the catalog.
type Bucket int

const (
	// Legitimate codes are well formed, used in real code and absent from the catalog.
	Legitimate Bucket = iota
	// TestOrExample codes only appear under test, doc or example paths.
	TestOrExample
	// InvalidFormat codes have a suspicious shape.
	InvalidFormat
)

func (b Bucket) String() string {
	switch b {
	case Legitimate:
		return "legitimate"
	case TestOrExample:
		return "test/example"
	case InvalidFormat:
		return "invalid format"
	default:
		return "unknown"
	}
}

// Rule assigns a bucket to a missing code when Match returns true.
type Rule struct {
	Bucket Bucket
	Name   string
	Match  func(code string, usage *Usage) bool
}

// DefaultRules returns the classification chain in evaluation order:
// test/example first, then invalid format. Codes matching neither are
// Legitimate. The order is part of the contract: a code satisfying both
// rules is test/example.
func DefaultRules(taxonomy Taxonomy) []Rule {
	return []Rule{
		TestOrExampleRule(taxonomy),
		InvalidFormatRule(taxonomy),
	}
}

// TestOrExampleRule matches when every non-ignored location lies under a
// test/doc/example path marker. One production location is enough to fail it.
func TestOrExampleRule(taxonomy Taxonomy) Rule {
	markers := make([]string, len(taxonomy.TestPathMarkers))
	for i, m := range taxonomy.TestPathMarkers {
		markers[i] = strings.ToLower(m)
	}
	return Rule{
		Bucket: TestOrExample,
		Name:   "test-or-example",
		Match: func(_ string, usage *Usage) bool {
			active := 0
			for _, loc := range usage.Locations {
				if loc.Ignored {
					continue
				}
				active++
				if !hasMarker(strings.ToLower(loc.File), markers) {
					return false
				}
			}
			return active > 0
		},
	}
}

func hasMarker(path string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(path, m) {
			return true
		}
	}
	return false
}

// InvalidFormatRule matches codes with a leading-zero or over-long sequence,
// an unknown subsystem, or a sentinel test value.
func InvalidFormatRule(taxonomy Taxonomy) Rule {
	return Rule{
		Bucket: InvalidFormat,
		Name:   "invalid-format",
		Match: func(code string, _ *Usage) bool {
			return HasFormatIssue(taxonomy, code)
		},
	}
}

// HasFormatIssue reports whether a code's textual shape is suspicious.
func HasFormatIssue(taxonomy Taxonomy, code string) bool {
	if slices.Contains(taxonomy.SentinelCodes, code) {
		return true
	}
	subsystem, sequence, ok := taxonomy.SplitCode(code)
	if !ok {
		return true
	}
	if len(sequence) > 1 && sequence[0] == '0' {
		return true
	}
	if len(sequence) > taxonomy.MaxSequenceDigits {
		return true
	}
	if len(subsystem) > 1 {
		return true
	}
	n, err := strconv.Atoi(subsystem)
	if err != nil || n >= taxonomy.SubsystemLimit {
		return true
	}
	return false
}

// classify runs the rule chain, first match wins.
func classify(rules []Rule, code string, usage *Usage) Bucket {
	for _, rule := range rules {
		if rule.Match(code, usage) {
			return rule.Bucket
		}
	}
	return Legitimate
}
