package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/catalog"
)

// LookupArgs defines the input parameters for the errcode_lookup tool.
type LookupArgs struct {
	Code string `json:"code" jsonschema:"Error code to look up, e.g. Q-2-5"`
}

// LookupHandler holds the dependencies for the lookup tool.
type LookupHandler struct {
	RunAudit AuditFunc
	Logger   *slog.Logger
}

// Code states reported by errcode_lookup.
const (
	StateConsistent    = "consistent"
	StateOrphaned      = "orphaned"
	StateLegitimate    = "missing from catalog (legitimate)"
	StateTestOrExample = "missing from catalog (test/example only)"
	StateInvalidFormat = "missing from catalog (invalid format)"
	StateIgnored       = "ignored"
	StateUnknown       = "unknown"
)

// CodeState classifies one code against an audit result.
func CodeState(result *audit.Result, code string) string {
	if bucket, ok := result.BucketOf(code); ok {
		switch bucket {
		case audit.TestOrExample:
			return StateTestOrExample
		case audit.InvalidFormat:
			return StateInvalidFormat
		default:
			return StateLegitimate
		}
	}
	_, active := result.Active[code]
	catalogued := contains(result.Catalog, code)
	switch {
	case active && catalogued:
		return StateConsistent
	case catalogued:
		return StateOrphaned
	case contains(result.Ignored, code):
		return StateIgnored
	default:
		return StateUnknown
	}
}

// Handle processes an errcode_lookup request.
func (h *LookupHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args LookupArgs) (*mcp.CallToolResult, any, error) {
	code := strings.TrimSpace(args.Code)
	if code == "" {
		h.Logger.Warn("errcode_lookup called with empty code")
		return errorResult("Error: code parameter is required"), nil, nil
	}

	result, cat, err := h.RunAudit(ctx)
	if err != nil {
		h.Logger.Error("errcode_lookup failed", "code", code, "error", err)
		return errorResult(fmt.Sprintf("Audit error: %v", err)), nil, nil
	}

	state := CodeState(result, code)
	h.Logger.Info("errcode_lookup", "code", code, "state", state)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatLookup(code, state, result, cat)}},
	}, nil, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// entryFor is nil-safe over a missing catalog.
func entryFor(cat *catalog.Catalog, code string) (catalog.Entry, bool) {
	if cat == nil {
		return catalog.Entry{}, false
	}
	return cat.Lookup(code)
}
