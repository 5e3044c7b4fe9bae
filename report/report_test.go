package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/lexandro/errcode-audit/audit"
)

type noMarkers struct{}

func (noMarkers) ReadFile(ctx context.Context, path string) (string, error) {
	return "", nil
}

func sampleReport(t *testing.T) audit.Report {
	t.Helper()
	result, err := audit.Run(context.Background(), audit.Input{
		Taxonomy: audit.DefaultTaxonomy(),
		Catalog:  audit.NewCodeSet("Q-0-1", "Q-1-1", "Q-3-9"),
		Records: []audit.Record{
			{File: "src/a.rs", Line: 1, Text: `"Q-0-1"`},
			{File: "src/parser.rs", Line: 12, Text: `bail!("Q-1-5")`},
			{File: "src/other.rs", Line: 3, Text: `"Q-1-5" <tag>`},
			{File: "tests/x.rs", Line: 8, Text: `"Q-2-7"`},
			{File: "src/lib.rs", Line: 4, Text: `"Q-2-005"`},
			{File: "src/b.rs", Line: 2, Text: `"Q-1-1" // quarto-error-code-audit-ignore`},
		},
		Reader: noMarkers{},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	return audit.Project(result)
}

func emptyReport(t *testing.T) audit.Report {
	t.Helper()
	return audit.Project(audit.NewEngine(audit.DefaultTaxonomy()).Reconcile(audit.NewCodeSet(), nil))
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func Test_FormatTextReport(t *testing.T) {
	out := FormatTextReport(sampleReport(t), Options{CatalogName: "error_catalog.json"})

	assertContains(t, out,
		"ERROR CODE AUDIT RESULTS",
		"  Codes in catalog:    3\n",
		"  Codes in source:     4\n",
		"  Missing (catalog):   3 ❌\n",
		"    - Legitimate:      1 (HIGH PRIORITY)\n",
		"  Orphaned (unused):   2 ⚠️\n",
		"  markdown   (Q-2-*)\n    Catalog:   0  Source:   2  Gap:  +2\n",
		"  writer     (Q-3-*)\n    Catalog:   1  Source:   0  Gap:  -1\n",
		"Add these to error_catalog.json:\n",
		"  • Q-1-5\n    Occurrences: 2\n    Files: 2\n    First use: src/parser.rs:12\n",
		"  • Q-2-7 (1 occurrences)\n",
		"  • Q-2-005 (1 occurrences)\n    Example: src/lib.rs:4\n",
		"  • Q-1-1\n  • Q-3-9\n",
	)
	if strings.Contains(out, "\x1b[") {
		t.Error("expected no ANSI escapes with color disabled")
	}
}

func Test_FormatTextReport_Color(t *testing.T) {
	out := FormatTextReport(sampleReport(t), Options{Color: true})
	if !strings.Contains(out, "\x1b[") {
		t.Error("expected ANSI escapes with color enabled")
	}
}

func Test_FormatTextReport_Empty(t *testing.T) {
	out := FormatTextReport(emptyReport(t), Options{})

	assertContains(t, out, "  Missing (catalog):   0 ✅\n", "  Orphaned (unused):   0 ✅\n")
	for _, section := range []string{"LEGITIMATE MISSING", "TEST/EXAMPLE", "INVALID FORMAT", "ORPHANED CODES"} {
		if strings.Contains(out, section) {
			t.Errorf("expected no %s section in an empty report", section)
		}
	}
}

func Test_FormatMarkdownReport(t *testing.T) {
	out := FormatMarkdownReport(sampleReport(t))

	assertContains(t, out,
		"# Error Code Audit Report\n",
		"| Missing from catalog | 3 | ❌ |\n",
		"| internal (Q-0-*) | 1 | 1 | 0 |\n",
		"| markdown (Q-2-*) | 0 | 2 | +2 |\n",
		"| writer (Q-3-*) | 1 | 0 | -1 |\n",
		"| `Q-1-5` | 2 | 2 | src/parser.rs:12 |\n",
		"- `Q-2-7` (1 occurrences)\n",
		"- `Q-2-005` (1 occurrences) - Example: src/lib.rs:4\n",
		"- `Q-3-9`",
	)
}

func Test_FormatJSONReport(t *testing.T) {
	data, err := FormatJSONReport(sampleReport(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		Summary            audit.Stats                    `json:"summary"`
		SubsystemBreakdown map[string]audit.SubsystemStat `json:"subsystem_breakdown"`
		LegitimateMissing  map[string]audit.CodeDetail    `json:"legitimate_missing"`
		TestExampleCodes   map[string]audit.CodeDetail    `json:"test_example_codes"`
		OrphanedCodes      []string                       `json:"orphaned_codes"`
		IgnoredCodes       []string                       `json:"ignored_codes"`
		Passed             bool                           `json:"passed"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, data)
	}

	if doc.Passed {
		t.Error("expected passed=false")
	}
	if doc.Summary.MissingLegitimate != 1 || doc.Summary.Orphaned != 2 {
		t.Errorf("unexpected summary %+v", doc.Summary)
	}
	if gap := doc.SubsystemBreakdown["markdown"].Gap; gap != 2 {
		t.Errorf("expected markdown gap 2, got %d", gap)
	}
	detail := doc.LegitimateMissing["Q-1-5"]
	if detail.Count != 2 || len(detail.Locations) != 2 {
		t.Errorf("unexpected Q-1-5 detail %+v", detail)
	}
	if detail.Locations[1].Context != `"Q-1-5" <tag>` {
		t.Errorf("expected unescaped context, got %q", detail.Locations[1].Context)
	}
	if _, ok := doc.TestExampleCodes["Q-2-7"]; !ok {
		t.Error("expected Q-2-7 in test_example_codes")
	}
	if len(doc.IgnoredCodes) != 1 || doc.IgnoredCodes[0] != "Q-1-1" {
		t.Errorf("expected Q-1-1 ignored, got %v", doc.IgnoredCodes)
	}

	out := string(data)
	order := []string{`"internal"`, `"yaml"`, `"markdown"`, `"writer"`}
	last := -1
	for _, key := range order {
		i := strings.Index(out, key)
		if i <= last {
			t.Errorf("expected subsystem %s after previous keys", key)
		}
		last = i
	}
	if !strings.Contains(out, `<tag>`) {
		t.Error("expected HTML characters to stay unescaped")
	}
}

func Test_FormatJSONReport_EmptyCollections(t *testing.T) {
	data, err := FormatJSONReport(emptyReport(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertContains(t, string(data),
		`"consistent_codes": []`,
		`"legitimate_missing": {}`,
		`"orphaned_codes": []`,
		`"passed": true`,
	)
}

func Test_Render(t *testing.T) {
	rep := sampleReport(t)
	for _, format := range []string{FormatText, FormatJSON, FormatMarkdown} {
		var buf bytes.Buffer
		if err := Render(&buf, rep, Options{Format: format}); err != nil {
			t.Errorf("%s: unexpected error: %v", format, err)
		}
		if !strings.HasSuffix(buf.String(), "\n") || buf.Len() < 100 {
			t.Errorf("%s: unexpected output %q", format, buf.String())
		}
	}

	if err := Render(io.Discard, rep, Options{Format: "html"}); err == nil {
		t.Error("expected unknown format to fail")
	}
}

func Test_ColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	if !ColorEnabled(ColorAlways, &buf) {
		t.Error("expected always to enable color")
	}
	if ColorEnabled(ColorNever, &buf) {
		t.Error("expected never to disable color")
	}
	if ColorEnabled(ColorAuto, &buf) {
		t.Error("expected auto to disable color for a non-terminal writer")
	}
}
