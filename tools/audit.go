// Package tools implements the MCP tool handlers of the audit server.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/catalog"
	"github.com/lexandro/errcode-audit/report"
)

// AuditFunc runs one complete audit.
// It is provided by main.go to avoid circular dependencies.
type AuditFunc func(ctx context.Context) (*audit.Result, *catalog.Catalog, error)

// AuditArgs defines the input parameters for the errcode_audit tool.
type AuditArgs struct {
	Format string `json:"format,omitempty" jsonschema:"Report format: text (default), json or markdown"`
}

// AuditHandler holds the dependencies for the audit tool.
type AuditHandler struct {
	RunAudit AuditFunc
	Logger   *slog.Logger
}

// Handle processes an errcode_audit request.
func (h *AuditHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args AuditArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	format := args.Format
	if format == "" {
		format = report.FormatText
	}
	if format != report.FormatText && format != report.FormatJSON && format != report.FormatMarkdown {
		h.Logger.Warn("errcode_audit called with unknown format", "format", args.Format)
		return errorResult(fmt.Sprintf("Error: unknown format %q (want text, json or markdown)", args.Format)), nil, nil
	}

	result, cat, err := h.RunAudit(ctx)
	if err != nil {
		h.Logger.Error("errcode_audit failed", "error", err)
		return errorResult(fmt.Sprintf("Audit error: %v", err)), nil, nil
	}

	rep := audit.Project(result)
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("status: %s\n\n", passFail(rep.Failed())))
	err = report.Render(&builder, rep, report.Options{Format: format, CatalogName: catalogName(cat)})
	if err != nil {
		return errorResult(fmt.Sprintf("Render error: %v", err)), nil, nil
	}

	h.Logger.Info("errcode_audit",
		"format", format,
		"passed", !rep.Failed(),
		"missing", rep.Summary.MissingTotal,
		"orphaned", rep.Summary.Orphaned,
		"elapsed", time.Since(start),
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: builder.String()}},
	}, nil, nil
}

func passFail(failed bool) string {
	if failed {
		return "FAIL"
	}
	return "PASS"
}

func catalogName(cat *catalog.Catalog) string {
	if cat == nil || cat.Path == "" {
		return ""
	}
	parts := strings.Split(strings.ReplaceAll(cat.Path, "\\", "/"), "/")
	return parts[len(parts)-1]
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
