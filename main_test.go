package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lexandro/errcode-audit/catalog"
	"github.com/lexandro/errcode-audit/config"
)

const catalogRel = "crates/quarto-error-reporting/error_catalog.json"

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// createSampleRepo builds a repository whose audit passes: one consistent
// code, one test-only code and one ignored sentinel.
func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, catalogRel, `{
  "Q-1-1": {"subsystem": "yaml", "title": "Unknown key"}
}
`)
	writeTestFile(t, dir, "crates/yaml/src/parser.rs", `fn check() {
    error!("Q-1-1");
    let _ = "Q-999-999"; // quarto-error-code-audit-ignore
}
`)
	writeTestFile(t, dir, "crates/markdown/tests/parse.rs", `assert_eq!(code, "Q-2-5");`+"\n")
	writeTestFile(t, dir, "target/debug/build.rs", `"Q-1-42"`+"\n")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func Test_Run_PassingAudit(t *testing.T) {
	dir := createSampleRepo(t)

	out, stderr, err := runCLI(t, "--repo-root", dir, "--color", "never")
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	for _, want := range []string{
		"ERROR CODE AUDIT RESULTS",
		"  Codes in catalog:    1\n",
		"  Consistent:          1 ✅\n",
		"    - Test/Examples:   1 (LOW PRIORITY)\n",
		"  • Q-2-5 (1 occurrences)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Q-1-42") {
		t.Error("codes under target/ must be excluded")
	}
	for _, want := range []string{"loading error catalog", "searching source", "analyzing results"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("expected progress log %q on stderr", want)
		}
	}
}

func Test_Run_FailingAudit(t *testing.T) {
	dir := createSampleRepo(t)
	writeTestFile(t, dir, catalogRel, `{"Q-1-1": {}, "Q-3-9": {}}`)
	writeTestFile(t, dir, "crates/writer/src/lib.rs", `bail!("Q-3-4");`+"\n")

	out, _, err := runCLI(t, "audit", "--repo-root", dir, "--color", "never")
	if !errors.Is(err, errAuditFailed) {
		t.Fatalf("expected errAuditFailed, got %v", err)
	}
	if !strings.Contains(out, "Add these to error_catalog.json:") || !strings.Contains(out, "  • Q-3-4\n") {
		t.Errorf("expected Q-3-4 as legitimate missing, got:\n%s", out)
	}
	// The catalog's own keys are definitions, so Q-3-9 stays orphaned.
	if !strings.Contains(out, "ORPHANED CODES") || !strings.Contains(out, "  • Q-3-9\n") {
		t.Errorf("expected Q-3-9 as orphaned, got:\n%s", out)
	}
}

func Test_Run_JSONFormat(t *testing.T) {
	dir := createSampleRepo(t)

	out, stderr, err := runCLI(t, "audit", "--repo-root", dir, "--format", "json")
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}

	var doc struct {
		Summary struct {
			CatalogTotal int `json:"catalog_total"`
			SourceTotal  int `json:"source_total"`
		} `json:"summary"`
		ConsistentCodes []string `json:"consistent_codes"`
		IgnoredCodes    []string `json:"ignored_codes"`
		Passed          bool     `json:"passed"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, out)
	}
	if !doc.Passed {
		t.Error("expected passed=true")
	}
	if doc.Summary.CatalogTotal != 1 || doc.Summary.SourceTotal != 2 {
		t.Errorf("unexpected summary %+v", doc.Summary)
	}
	if diff := cmp.Diff([]string{"Q-1-1"}, doc.ConsistentCodes); diff != "" {
		t.Errorf("consistent mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Q-999-999"}, doc.IgnoredCodes); diff != "" {
		t.Errorf("ignored mismatch (-want +got):\n%s", diff)
	}
}

func Test_Run_OutputFile(t *testing.T) {
	dir := createSampleRepo(t)
	outPath := filepath.Join(t.TempDir(), "reports", "audit.md")

	out, stderr, err := runCLI(t, "--repo-root", dir, "--format", "markdown", "-o", outPath)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	if out != "" {
		t.Errorf("expected nothing on stdout, got:\n%s", out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected report file: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Error Code Audit Report\n") {
		t.Errorf("unexpected report file content:\n%s", data)
	}
}

func Test_Run_ReportInsideRepoIsNotSearched(t *testing.T) {
	dir := createSampleRepo(t)
	writeTestFile(t, dir, catalogRel, `{"Q-1-1": {}, "Q-3-9": {}}`)
	reportPath := filepath.Join(dir, "audit-report.json")

	var reports []string
	for i := 0; i < 2; i++ {
		_, _, err := runCLI(t, "--repo-root", dir, "--format", "json", "-o", reportPath)
		if !errors.Is(err, errAuditFailed) {
			t.Fatalf("run %d: expected errAuditFailed for orphaned Q-3-9, got %v", i+1, err)
		}
		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("run %d: expected report file: %v", i+1, err)
		}
		reports = append(reports, string(data))
	}

	var doc struct {
		OrphanedCodes      []string       `json:"orphaned_codes"`
		TestExampleCodes   map[string]any `json:"test_example_codes"`
		LegitimateMissing  map[string]any `json:"legitimate_missing"`
		InvalidFormatCodes map[string]any `json:"invalid_format_codes"`
	}
	if err := json.Unmarshal([]byte(reports[1]), &doc); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	if diff := cmp.Diff([]string{"Q-3-9"}, doc.OrphanedCodes); diff != "" {
		t.Errorf("orphaned mismatch on rerun (-want +got):\n%s", diff)
	}
	if _, ok := doc.TestExampleCodes["Q-2-5"]; !ok {
		t.Errorf("expected Q-2-5 to stay test/example on rerun, got %v", doc.TestExampleCodes)
	}
	if len(doc.LegitimateMissing) != 0 || len(doc.InvalidFormatCodes) != 0 {
		t.Errorf("report contents leaked into the rerun: legitimate %v, invalid %v", doc.LegitimateMissing, doc.InvalidFormatCodes)
	}
	if diff := cmp.Diff(reports[0], reports[1]); diff != "" {
		t.Errorf("reruns over an unchanged tree must match (-first +second):\n%s", diff)
	}
}

func Test_AuditRun_ExcludesGeneratedFiles(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.RepoRoot = root
	cfg.Report.Output = filepath.Join(root, "out", "report[1].md")
	runner := &auditRun{cfg: cfg}

	got := runner.excludes(cfg.CatalogPath())
	want := append(append([]string(nil), cfg.Search.Excludes...),
		config.DefaultCatalogPath,
		`out/report\[1\].md`,
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("excludes mismatch (-want +got):\n%s", diff)
	}

	cfg.Report.Output = filepath.Join(t.TempDir(), "report.md")
	runner = &auditRun{cfg: cfg}
	if n := len(runner.excludes(cfg.CatalogPath())); n != len(cfg.Search.Excludes)+1 {
		t.Errorf("a report outside the repository must not add an exclude, got %d excludes", n)
	}
}

func Test_Run_FileIgnoreMarker(t *testing.T) {
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "docs/design.md", "<!-- quarto-error-code-audit-ignore-file -->\nSee Q-1-77.\n")

	out, _, err := runCLI(t, "--repo-root", dir, "--format", "json")
	if err != nil {
		t.Fatalf("a file-ignored code must not fail the audit: %v", err)
	}
	if !strings.Contains(out, `"Q-1-77"`) {
		t.Errorf("expected Q-1-77 among ignored codes, got:\n%s", out)
	}
}

func Test_Run_MissingCatalog(t *testing.T) {
	dir := t.TempDir()

	_, _, err := runCLI(t, "--repo-root", dir)
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func Test_Run_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".errcode-audit.toml", `catalog = "errors.yaml"

[search]
types = ["go"]
`)
	writeTestFile(t, dir, "errors.yaml", "Q-0-1:\n  title: Internal\n")
	writeTestFile(t, dir, "internal/fail.go", `return errors.New("Q-0-1")`+"\n")
	writeTestFile(t, dir, "notes.rs", `"Q-1-1"`+"\n")

	out, stderr, err := runCLI(t, "--repo-root", dir, "--format", "json")
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s\n%s", err, stderr, out)
	}
	if strings.Contains(out, "Q-1-1") {
		t.Errorf("rust files must not be searched when types = [go], got:\n%s", out)
	}
}

func Test_Run_FlagOverridesConfig(t *testing.T) {
	dir := createSampleRepo(t)
	writeTestFile(t, dir, ".errcode-audit.toml", "[report]\nformat = \"json\"\n")

	out, _, err := runCLI(t, "--repo-root", dir, "--format", "markdown")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out, "# Error Code Audit Report") {
		t.Errorf("expected the flag to win over the config file, got:\n%s", out)
	}
}

func Test_Run_InvalidSettings(t *testing.T) {
	dir := createSampleRepo(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Format", []string{"--format", "html"}, "format"},
		{"Backend", []string{"--search", "grep"}, "backend"},
		{"Type", []string{"--type", "cobol"}, "cobol"},
		{"ExplicitConfig", []string{"--config", filepath.Join(dir, "missing.toml")}, "missing.toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, append([]string{"--repo-root", dir}, tt.args...)...)
			if err == nil || errors.Is(err, errAuditFailed) {
				t.Fatalf("expected a configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}

func Test_Run_RepoRootNotDirectory(t *testing.T) {
	dir := createSampleRepo(t)

	_, _, err := runCLI(t, "--repo-root", filepath.Join(dir, catalogRel))
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected a not-a-directory error, got %v", err)
	}
}

func Test_Run_Version(t *testing.T) {
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "errcode-audit dev\n" {
		t.Errorf("unexpected version output %q", out)
	}
}

func Test_Run_CancelledContext(t *testing.T) {
	dir := createSampleRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"--repo-root", dir}, &stdout, &stderr)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("no report may be written after cancellation, got:\n%s", stdout.String())
	}
}

func Test_LiteralGlob(t *testing.T) {
	tests := map[string]string{
		"crates/x/error_catalog.json": "crates/x/error_catalog.json",
		"docs/[draft]/c*.json":        `docs/\[draft\]/c\*.json`,
		"a{b}?.json":                  `a\{b\}\?.json`,
	}
	for in, want := range tests {
		if got := literalGlob(in); got != want {
			t.Errorf("literalGlob(%q) = %q, want %q", in, got, want)
		}
	}
}
