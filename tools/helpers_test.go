package tools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/catalog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type noMarkers struct{}

func (noMarkers) ReadFile(ctx context.Context, path string) (string, error) {
	return "", nil
}

// fakeAudit returns an AuditFunc over a fixed catalog and record set.
func fakeAudit(t *testing.T) AuditFunc {
	t.Helper()
	path := filepath.Join(t.TempDir(), "error_catalog.json")
	content := `{
  "Q-0-1": {"subsystem": "internal", "title": "Internal Error", "docs_url": "https://example.org/Q-0-1"},
  "Q-3-9": {"title": "Writer failure"}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	cat, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	return func(ctx context.Context) (*audit.Result, *catalog.Catalog, error) {
		result, err := audit.Run(ctx, audit.Input{
			Taxonomy: audit.DefaultTaxonomy(),
			Catalog:  cat.Codes(),
			Records: []audit.Record{
				{File: "src/a.rs", Line: 3, Text: `internal("Q-0-1")`},
				{File: "src/b.rs", Line: 7, Text: `bail!("Q-1-5")`},
				{File: "tests/c.rs", Line: 1, Text: `"Q-2-2"`},
				{File: "src/d.rs", Line: 9, Text: `"Q-2-020"`},
				{File: "src/e.rs", Line: 2, Text: `"Q-999-999" // quarto-error-code-audit-ignore`},
			},
			Reader: noMarkers{},
		}, testLogger())
		return result, cat, err
	}
}

func failingAudit(ctx context.Context) (*audit.Result, *catalog.Catalog, error) {
	return nil, nil, errors.New("catalog not found")
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in tool result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}
