package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/catalog"
)

// FormatLookup describes one code: its state, catalog entry and active locations.
func FormatLookup(code string, state string, result *audit.Result, cat *catalog.Catalog) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s: %s\n", code, state))

	if entry, ok := entryFor(cat, code); ok {
		builder.WriteString("\nCatalog entry:\n")
		writeField(&builder, "subsystem", entry.Subsystem)
		writeField(&builder, "title", entry.Title)
		writeField(&builder, "message", entry.MessageTemplate)
		writeField(&builder, "docs", entry.DocsURL)
		writeField(&builder, "since", entry.SinceVersion)
	} else {
		builder.WriteString("\nCatalog entry: none\n")
	}

	summary, active := result.Active[code]
	if !active {
		return builder.String()
	}
	builder.WriteString(fmt.Sprintf("\nActive locations (%d in %d files):\n", summary.Count, len(summary.ActiveFiles)))
	for _, loc := range summary.Locations {
		if loc.Ignored {
			continue
		}
		builder.WriteString(fmt.Sprintf("  %s:%d: %s\n", loc.File, loc.Line, loc.Context))
	}
	return builder.String()
}

func writeField(builder *strings.Builder, name string, value string) {
	if value == "" {
		return
	}
	builder.WriteString(fmt.Sprintf("  %-10s %s\n", name+":", value))
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
