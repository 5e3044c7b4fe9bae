package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sort"
	"strings"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/language"
)

const ripgrepInstallHelp = `The ripgrep search backend needs the rg command.
Install: https://github.com/BurntSushi/ripgrep#installation

Quick install:
  macOS:   brew install ripgrep
  Ubuntu:  apt install ripgrep
  Fedora:  dnf install ripgrep
  Windows: choco install ripgrep

Or run with --search builtin to use the built-in searcher.`

// Ripgrep searches by running rg with JSON output.
type Ripgrep struct {
	binary  string
	rootDir string
	logger  *slog.Logger
}

// NewRipgrep resolves the rg binary. A missing binary yields ErrUnavailable.
func NewRipgrep(binary string, rootDir string, logger *slog.Logger) (*Ripgrep, error) {
	if binary == "" {
		binary = "rg"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found\n\n%s", ErrUnavailable, binary, ripgrepInstallHelp)
	}
	return &Ripgrep{binary: resolved, rootDir: rootDir, logger: logger}, nil
}

// Args builds the rg command line for a query. Types are declared with
// --type-add from the language table so both backends agree on extensions.
func (r *Ripgrep) Args(query Query) []string {
	args := []string{query.Pattern, "--json"}
	for _, name := range query.Types {
		def, ok := language.Types[name]
		if !ok {
			continue
		}
		for _, ext := range def.Extensions {
			args = append(args, "--type-add", fmt.Sprintf("%s:*.%s", name, ext))
		}
		for _, fileName := range def.Names {
			args = append(args, "--type-add", fmt.Sprintf("%s:%s", name, fileName))
		}
	}
	types := append([]string(nil), query.Types...)
	sort.Strings(types)
	for _, name := range types {
		args = append(args, "--type", name)
	}
	for _, exclude := range query.Excludes {
		args = append(args, "--glob", "!"+strings.TrimPrefix(exclude, "!"))
	}
	return args
}

// Search runs rg in the repository root. Exit status 1 means no match;
// exit status 2 means some files could not be searched and the matches
// found so far are kept.
func (r *Ripgrep) Search(ctx context.Context, query Query) ([]audit.Record, error) {
	cmd := exec.CommandContext(ctx, r.binary, r.Args(query)...)
	cmd.Dir = r.rootDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating ripgrep pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting ripgrep: %w", err)
	}

	records, skipped, parseErr := ParseJSON(stdout)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if parseErr != nil {
		return nil, fmt.Errorf("reading ripgrep output: %w", parseErr)
	}
	if skipped > 0 {
		r.logger.Debug("skipped ripgrep output lines", "count", skipped)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr) && exitErr.ExitCode() == 1:
	case errors.As(waitErr, &exitErr) && exitErr.ExitCode() == 2:
		r.logger.Warn("ripgrep reported errors", "stderr", strings.TrimSpace(stderr.String()))
	default:
		return nil, fmt.Errorf("running ripgrep: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return records, nil
}

type rgEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type rgMatch struct {
	Path       rgText `json:"path"`
	Lines      rgText `json:"lines"`
	LineNumber int    `json:"line_number"`
}

// rgText holds either UTF-8 text or base64 bytes; only text is used.
type rgText struct {
	Text *string `json:"text"`
}

// ParseJSON reads an rg --json event stream and returns a record per match
// event. Lines that are not JSON, and match events lacking the path, line
// number or text, are counted as skipped.
func ParseJSON(r io.Reader) ([]audit.Record, int, error) {
	var records []audit.Record
	skipped := 0
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			record, isMatch, ok := parseEvent(line)
			switch {
			case !ok:
				skipped++
			case isMatch:
				records = append(records, record)
			}
		}
		if err == io.EOF {
			return records, skipped, nil
		}
		if err != nil {
			return records, skipped, err
		}
	}
}

// parseEvent decodes one event line. ok is false for malformed lines.
func parseEvent(line []byte) (record audit.Record, isMatch bool, ok bool) {
	var event rgEvent
	if err := json.Unmarshal(line, &event); err != nil || event.Type == "" {
		return audit.Record{}, false, false
	}
	if event.Type != "match" {
		return audit.Record{}, false, true
	}
	var match rgMatch
	if err := json.Unmarshal(event.Data, &match); err != nil {
		return audit.Record{}, true, false
	}
	if match.Path.Text == nil || match.Lines.Text == nil || match.LineNumber < 1 {
		return audit.Record{}, true, false
	}
	return audit.Record{
		File: strings.TrimPrefix(*match.Path.Text, "./"),
		Line: match.LineNumber,
		Text: strings.TrimRight(*match.Lines.Text, "\r\n"),
	}, true, true
}
