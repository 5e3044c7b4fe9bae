// Package report renders an audit report as text, JSON or Markdown.
package report

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/lexandro/errcode-audit/audit"
)

// Formats accepted by Render.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Color modes accepted by ColorEnabled.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Options selects the output format. Color only affects text output.
type Options struct {
	Format      string
	Color       bool
	CatalogName string // file name shown in the text remediation hint
}

// Render writes rep to w in the requested format.
func Render(w io.Writer, rep audit.Report, options Options) error {
	var out string
	switch options.Format {
	case FormatText, "":
		out = FormatTextReport(rep, options)
	case FormatMarkdown:
		out = FormatMarkdownReport(rep)
	case FormatJSON:
		data, err := FormatJSONReport(rep)
		if err != nil {
			return err
		}
		out = string(data)
	default:
		return fmt.Errorf("unknown report format %q", options.Format)
	}
	if _, err := io.WriteString(w, out+"\n"); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// ColorEnabled resolves a color mode for w. Auto colors only terminals
// and honors NO_COLOR.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// sortedKeys returns the codes of a detail map in order.
func sortedKeys(m map[string]audit.CodeDetail) []string {
	set := make(audit.CodeSet, len(m))
	for code := range m {
		set[code] = struct{}{}
	}
	return set.Sorted()
}

func locationString(loc *audit.Location) string {
	if loc == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.Line)
}
