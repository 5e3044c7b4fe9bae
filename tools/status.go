package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/errcode-audit/index"
)

// StatusArgs defines the input parameters for the errcode_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
// Files is nil when the search backend keeps no file index.
type StatusHandler struct {
	Files     *index.FileIndex
	Backend   string
	StartTime time.Time
	RootDir   string
	Logger    *slog.Logger
}

// Handle processes an errcode_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("errcode_status",
		"backend", h.Backend,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	builder.WriteString("=== errcode-audit Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Root directory: %s\n", h.RootDir))
	builder.WriteString(fmt.Sprintf("Search backend: %s\n", h.Backend))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	if h.Files == nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: builder.String()}},
		}, nil, nil
	}

	builder.WriteString(fmt.Sprintf("Files searched by last audit: %d\n", h.Files.FileCount()))
	builder.WriteString(fmt.Sprintf("Total searched size: %s\n", formatFileSize(h.Files.TotalSizeBytes())))

	typeCounts := h.Files.TypeCounts()
	if len(typeCounts) > 0 {
		builder.WriteString("\nFile types:\n")

		type typeEntry struct {
			name  string
			count int
		}
		entries := make([]typeEntry, 0, len(typeCounts))
		for name, count := range typeCounts {
			if name == "" {
				name = "(other)"
			}
			entries = append(entries, typeEntry{name, count})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].count != entries[j].count {
				return entries[i].count > entries[j].count
			}
			return entries[i].name < entries[j].name
		})

		for _, entry := range entries {
			builder.WriteString(fmt.Sprintf("  %-20s %d files\n", entry.name, entry.count))
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: builder.String()}},
	}, nil, nil
}
