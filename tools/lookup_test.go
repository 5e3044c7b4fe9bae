package tools

import (
	"context"
	"strings"
	"testing"
)

func Test_CodeState(t *testing.T) {
	result, _, err := fakeAudit(t)(context.Background())
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	tests := map[string]string{
		"Q-0-1":     StateConsistent,
		"Q-3-9":     StateOrphaned,
		"Q-1-5":     StateLegitimate,
		"Q-2-2":     StateTestOrExample,
		"Q-2-020":   StateInvalidFormat,
		"Q-999-999": StateIgnored,
		"Q-7-7":     StateUnknown,
	}
	for code, want := range tests {
		if got := CodeState(result, code); got != want {
			t.Errorf("CodeState(%s) = %q, want %q", code, got, want)
		}
	}
}

func Test_LookupHandler_CatalogEntryAndLocations(t *testing.T) {
	h := &LookupHandler{RunAudit: fakeAudit(t), Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, LookupArgs{Code: " Q-0-1 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("expected success, got error result")
	}

	text := resultText(t, result)
	for _, want := range []string{
		"Q-0-1: consistent\n",
		"  title:     Internal Error\n",
		"  docs:      https://example.org/Q-0-1\n",
		"Active locations (1 in 1 files):\n",
		`  src/a.rs:3: internal("Q-0-1")`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected lookup to contain %q, got:\n%s", want, text)
		}
	}
}

func Test_LookupHandler_UncataloguedCode(t *testing.T) {
	h := &LookupHandler{RunAudit: fakeAudit(t), Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, LookupArgs{Code: "Q-1-5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Catalog entry: none") || !strings.Contains(text, "src/b.rs:7") {
		t.Errorf("unexpected lookup output:\n%s", text)
	}
}

func Test_LookupHandler_EmptyCode(t *testing.T) {
	h := &LookupHandler{RunAudit: fakeAudit(t), Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, LookupArgs{Code: "  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "code parameter is required") {
		t.Error("expected an error result for an empty code")
	}
}

func Test_LookupHandler_AuditError(t *testing.T) {
	h := &LookupHandler{RunAudit: failingAudit, Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, LookupArgs{Code: "Q-0-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true when the audit fails to run")
	}
}
