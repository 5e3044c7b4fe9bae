// Package audit reconciles a catalog of declared error codes against the code
// occurrences found in a source tree and classifies every discrepancy.
package audit

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Subsystem names one numeric subsystem component of an error code.
type Subsystem struct {
	Number int
	Name   string
}

// Taxonomy holds the fixed tables the engine classifies against.
// It is passed by value into every constructor in this package and never
// modified after construction.
type Taxonomy struct {
	Prefix          string      // Code prefix, e.g. "Q" in Q-2-5
	Subsystems      []Subsystem // Known subsystems in report order
	LineIgnoreToken string      // Suppresses every code on the line carrying it
	FileIgnoreToken string      // Suppresses every code in the file carrying it
	TestPathMarkers []string    // Case-insensitive path substrings marking test/doc/example content
	SentinelCodes   []string    // Codes that are always test values

	// SubsystemLimit is the first subsystem number considered invalid.
	SubsystemLimit int
	// MaxSequenceDigits is the longest well-formed sequence component.
	MaxSequenceDigits int
	// ContextWidth bounds the stored line snippet, in runes.
	ContextWidth int
}

// DefaultTaxonomy returns the code taxonomy used by the Quarto error catalog.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Prefix: "Q",
		Subsystems: []Subsystem{
			{Number: 0, Name: "internal"},
			{Number: 1, Name: "yaml"},
			{Number: 2, Name: "markdown"},
			{Number: 3, Name: "writer"},
		},
		LineIgnoreToken: "quarto-error-code-audit-ignore",
		FileIgnoreToken: "quarto-error-code-audit-ignore-file",
		TestPathMarkers: []string{
			"/test", "tests/", "claude-notes/", "/doc", "example",
			"readme", ".md", "snapshot",
		},
		SentinelCodes:     []string{"Q-999-999", "Q-9999-9999"},
		SubsystemLimit:    4,
		MaxSequenceDigits: 3,
		ContextWidth:      100,
	}
}

// Validate reports configuration that would make the audit meaningless.
func (t Taxonomy) Validate() error {
	var errs []error
	if t.Prefix == "" {
		errs = append(errs, errors.New("code prefix is empty"))
	}
	if t.LineIgnoreToken == "" {
		errs = append(errs, errors.New("line ignore token is empty"))
	}
	if t.FileIgnoreToken == "" {
		errs = append(errs, errors.New("file ignore token is empty"))
	}
	if len(t.Subsystems) == 0 {
		errs = append(errs, errors.New("subsystem table is empty"))
	}
	seen := make(map[int]bool, len(t.Subsystems))
	for _, s := range t.Subsystems {
		if seen[s.Number] {
			errs = append(errs, fmt.Errorf("subsystem %d listed twice", s.Number))
		}
		seen[s.Number] = true
	}
	if t.MaxSequenceDigits <= 0 {
		errs = append(errs, errors.New("max sequence digits must be positive"))
	}
	if t.ContextWidth <= 0 {
		errs = append(errs, errors.New("context width must be positive"))
	}
	return errors.Join(errs...)
}

// CodePattern returns the unanchored regular expression matching one code.
func (t Taxonomy) CodePattern() string {
	return regexp.QuoteMeta(t.Prefix) + `-\d+-\d+`
}

// SplitCode splits a canonical code into its subsystem and sequence digits.
func (t Taxonomy) SplitCode(code string) (subsystem, sequence string, ok bool) {
	rest, found := strings.CutPrefix(code, t.Prefix+"-")
	if !found {
		return "", "", false
	}
	subsystem, sequence, found = strings.Cut(rest, "-")
	if !found || !isDigits(subsystem) || !isDigits(sequence) {
		return "", "", false
	}
	return subsystem, sequence, true
}

// SubsystemOf returns the numeric subsystem of a canonical code.
func (t Taxonomy) SubsystemOf(code string) (int, bool) {
	subsystem, _, ok := t.SplitCode(code)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(subsystem)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SubsystemPrefix is the code prefix shared by every code of a subsystem, e.g. "Q-2-".
func (t Taxonomy) SubsystemPrefix(number int) string {
	return fmt.Sprintf("%s-%d-", t.Prefix, number)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
