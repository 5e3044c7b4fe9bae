package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/lexandro/errcode-audit/audit"
)

// palette colors status markers; every color is a no-op when disabled.
type palette struct {
	ok, bad, warn, heading *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		ok:      color.New(color.FgGreen),
		bad:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow),
		heading: color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.ok, p.bad, p.warn, p.heading} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// status returns the marker for a count: ok when zero, otherwise the given severity.
func (p palette) status(count int, severity *color.Color, marker string) string {
	if count == 0 {
		return p.ok.Sprint("✅")
	}
	return severity.Sprint(marker)
}

// FormatTextReport renders the plain-text report.
func FormatTextReport(rep audit.Report, options Options) string {
	p := newPalette(options.Color)
	rule := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 60)
	s := rep.Summary

	var builder strings.Builder
	builder.WriteString(rule + "\n")
	builder.WriteString(p.heading.Sprint("ERROR CODE AUDIT RESULTS") + "\n")
	builder.WriteString(rule + "\n\n")

	builder.WriteString(p.heading.Sprint("SUMMARY") + "\n")
	builder.WriteString(thin + "\n")
	builder.WriteString(fmt.Sprintf("  Codes in catalog:    %d\n", s.CatalogTotal))
	builder.WriteString(fmt.Sprintf("  Codes in source:     %d\n", s.SourceTotal))
	builder.WriteString(fmt.Sprintf("  Consistent:          %d %s\n", s.Consistent, p.ok.Sprint("✅")))
	builder.WriteString(fmt.Sprintf("  Missing (catalog):   %d %s\n", s.MissingTotal, p.status(s.MissingTotal, p.bad, "❌")))
	builder.WriteString(fmt.Sprintf("    - Legitimate:      %d (HIGH PRIORITY)\n", s.MissingLegitimate))
	builder.WriteString(fmt.Sprintf("    - Test/Examples:   %d (LOW PRIORITY)\n", s.MissingTestExample))
	builder.WriteString(fmt.Sprintf("    - Invalid format:  %d (INVESTIGATE)\n", s.MissingInvalidFormat))
	builder.WriteString(fmt.Sprintf("  Orphaned (unused):   %d %s\n", s.Orphaned, p.status(s.Orphaned, p.warn, "⚠️")))
	builder.WriteString("\n")

	builder.WriteString(p.heading.Sprint("SUBSYSTEM BREAKDOWN") + "\n")
	builder.WriteString(thin + "\n")
	for _, sub := range rep.Subsystems {
		builder.WriteString(fmt.Sprintf("  %-10s (%s*)\n", sub.Name, sub.Prefix))
		builder.WriteString(fmt.Sprintf("    Catalog: %3d  Source: %3d  Gap: %+3d\n", sub.Catalog, sub.Source, sub.Gap))
	}
	builder.WriteString("\n")

	if len(rep.LegitimateMissing) > 0 {
		catalogName := options.CatalogName
		if catalogName == "" {
			catalogName = "the error catalog"
		}
		builder.WriteString(p.bad.Sprint("LEGITIMATE MISSING CODES (HIGH PRIORITY)") + "\n")
		builder.WriteString(thin + "\n")
		builder.WriteString(fmt.Sprintf("Add these to %s:\n\n", catalogName))
		for _, code := range sortedKeys(rep.LegitimateMissing) {
			detail := rep.LegitimateMissing[code]
			builder.WriteString(fmt.Sprintf("  • %s\n", code))
			builder.WriteString(fmt.Sprintf("    Occurrences: %d\n", detail.Count))
			builder.WriteString(fmt.Sprintf("    Files: %d\n", len(detail.Files)))
			if detail.FirstLocation != nil {
				builder.WriteString(fmt.Sprintf("    First use: %s\n", locationString(detail.FirstLocation)))
			}
		}
		builder.WriteString("\n")
	}

	if len(rep.TestExampleCodes) > 0 {
		builder.WriteString(p.heading.Sprint("TEST/EXAMPLE CODES (LOW PRIORITY)") + "\n")
		builder.WriteString(thin + "\n")
		builder.WriteString("Used only in tests, docs, or examples:\n\n")
		for _, code := range sortedKeys(rep.TestExampleCodes) {
			builder.WriteString(fmt.Sprintf("  • %s (%d occurrences)\n", code, rep.TestExampleCodes[code].Count))
		}
		builder.WriteString("\n")
	}

	if len(rep.InvalidFormatCodes) > 0 {
		builder.WriteString(p.warn.Sprint("INVALID FORMAT CODES (INVESTIGATE)") + "\n")
		builder.WriteString(thin + "\n")
		builder.WriteString("These may be typos, test data, or need cleanup:\n\n")
		for _, code := range sortedKeys(rep.InvalidFormatCodes) {
			detail := rep.InvalidFormatCodes[code]
			builder.WriteString(fmt.Sprintf("  • %s (%d occurrences)\n", code, detail.Count))
			if detail.FirstLocation != nil {
				builder.WriteString(fmt.Sprintf("    Example: %s\n", locationString(detail.FirstLocation)))
			}
		}
		builder.WriteString("\n")
	}

	if len(rep.OrphanedCodes) > 0 {
		builder.WriteString(p.warn.Sprint("ORPHANED CODES (IN CATALOG BUT NOT USED)") + "\n")
		builder.WriteString(thin + "\n")
		builder.WriteString("Consider removing or documenting:\n\n")
		for _, code := range rep.OrphanedCodes {
			builder.WriteString(fmt.Sprintf("  • %s\n", code))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(rule)
	return builder.String()
}
