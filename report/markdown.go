package report

import (
	"fmt"
	"strings"

	"github.com/lexandro/errcode-audit/audit"
)

// FormatMarkdownReport renders the report as a Markdown document.
func FormatMarkdownReport(rep audit.Report) string {
	s := rep.Summary
	var builder strings.Builder

	builder.WriteString("# Error Code Audit Report\n\n")
	builder.WriteString("## Summary\n\n")
	builder.WriteString("| Metric | Count | Status |\n")
	builder.WriteString("|--------|-------|--------|\n")
	builder.WriteString(fmt.Sprintf("| Codes in catalog | %d | ✅ |\n", s.CatalogTotal))
	builder.WriteString(fmt.Sprintf("| Codes in source | %d | ⚠️ |\n", s.SourceTotal))
	builder.WriteString(fmt.Sprintf("| Consistent | %d | ✅ |\n", s.Consistent))
	builder.WriteString(fmt.Sprintf("| Missing from catalog | %d | %s |\n", s.MissingTotal, markdownStatus(s.MissingTotal, "❌")))
	builder.WriteString(fmt.Sprintf("| - Legitimate missing | %d | ❌ HIGH |\n", s.MissingLegitimate))
	builder.WriteString(fmt.Sprintf("| - Test/Example codes | %d | ℹ️ LOW |\n", s.MissingTestExample))
	builder.WriteString(fmt.Sprintf("| - Invalid format | %d | ⚠️ INVESTIGATE |\n", s.MissingInvalidFormat))
	builder.WriteString(fmt.Sprintf("| Orphaned in catalog | %d | %s |\n", s.Orphaned, markdownStatus(s.Orphaned, "⚠️")))
	builder.WriteString("\n")

	builder.WriteString("## Subsystem Breakdown\n\n")
	builder.WriteString("| Subsystem | Catalog | Source | Gap |\n")
	builder.WriteString("|-----------|---------|--------|-----|\n")
	for _, sub := range rep.Subsystems {
		gap := "0"
		if sub.Gap != 0 {
			gap = fmt.Sprintf("%+d", sub.Gap)
		}
		builder.WriteString(fmt.Sprintf("| %s (%s*) | %d | %d | %s |\n", sub.Name, sub.Prefix, sub.Catalog, sub.Source, gap))
	}
	builder.WriteString("\n")

	if len(rep.LegitimateMissing) > 0 {
		builder.WriteString("## Legitimate Missing Codes (HIGH PRIORITY)\n\n")
		builder.WriteString("These codes are used in production code but missing from catalog:\n\n")
		builder.WriteString("| Code | Occurrences | Files | Example Location |\n")
		builder.WriteString("|------|-------------|-------|------------------|\n")
		for _, code := range sortedKeys(rep.LegitimateMissing) {
			detail := rep.LegitimateMissing[code]
			loc := "N/A"
			if detail.FirstLocation != nil {
				loc = locationString(detail.FirstLocation)
			}
			builder.WriteString(fmt.Sprintf("| `%s` | %d | %d | %s |\n", code, detail.Count, len(detail.Files), loc))
		}
		builder.WriteString("\n")
	}

	if len(rep.TestExampleCodes) > 0 {
		builder.WriteString("## Test/Example Codes (LOW PRIORITY)\n\n")
		builder.WriteString("Used only in tests, documentation, or examples:\n\n")
		for _, code := range sortedKeys(rep.TestExampleCodes) {
			builder.WriteString(fmt.Sprintf("- `%s` (%d occurrences)\n", code, rep.TestExampleCodes[code].Count))
		}
		builder.WriteString("\n")
	}

	if len(rep.InvalidFormatCodes) > 0 {
		builder.WriteString("## Invalid Format Codes (INVESTIGATE)\n\n")
		builder.WriteString("These may be typos, test data, or need cleanup:\n\n")
		for _, code := range sortedKeys(rep.InvalidFormatCodes) {
			detail := rep.InvalidFormatCodes[code]
			example := ""
			if detail.FirstLocation != nil {
				example = " - Example: " + locationString(detail.FirstLocation)
			}
			builder.WriteString(fmt.Sprintf("- `%s` (%d occurrences)%s\n", code, detail.Count, example))
		}
		builder.WriteString("\n")
	}

	if len(rep.OrphanedCodes) > 0 {
		builder.WriteString("## Orphaned Codes (IN CATALOG BUT NOT USED)\n\n")
		builder.WriteString("Consider removing or documenting:\n\n")
		for _, code := range rep.OrphanedCodes {
			builder.WriteString(fmt.Sprintf("- `%s`\n", code))
		}
		builder.WriteString("\n")
	}

	return strings.TrimSuffix(builder.String(), "\n")
}

func markdownStatus(count int, marker string) string {
	if count > 0 {
		return marker
	}
	return "✅"
}
