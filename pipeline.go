package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/catalog"
	"github.com/lexandro/errcode-audit/config"
	"github.com/lexandro/errcode-audit/ignore"
	"github.com/lexandro/errcode-audit/index"
	"github.com/lexandro/errcode-audit/report"
	"github.com/lexandro/errcode-audit/search"
)

// auditRun performs complete audits with one configured search backend.
// Audits are serialized; each one loads the catalog and searches afresh.
type auditRun struct {
	mu       sync.Mutex
	cfg      config.Config
	searcher search.Searcher
	reader   audit.ContentReader
	logger   *slog.Logger
}

func newAuditRun(cfg config.Config, logger *slog.Logger) (*auditRun, error) {
	searcher, reader, err := search.New(search.Options{
		Backend:          cfg.Search.Backend,
		RootDir:          cfg.RepoRoot,
		Workers:          cfg.Search.Workers,
		MaxFileSizeBytes: cfg.Search.MaxFileSizeBytes,
		RipgrepPath:      cfg.Search.Ripgrep,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	return &auditRun{cfg: cfg, searcher: searcher, reader: reader, logger: logger}, nil
}

// execute runs one audit and returns its result with the loaded catalog.
func (r *auditRun) execute(ctx context.Context) (*audit.Result, *catalog.Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()

	catalogPath := r.cfg.CatalogPath()
	r.logger.Info("loading error catalog", "path", catalogPath)
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("loaded catalog", "codes", cat.Len())

	tax := r.cfg.AuditTaxonomy()
	r.logger.Info("searching source", "backend", r.cfg.Search.Backend, "types", r.cfg.Search.Types)
	records, err := r.searcher.Search(ctx, search.Query{
		Pattern:  tax.CodePattern(),
		Types:    r.cfg.Search.Types,
		Excludes: r.excludes(catalogPath),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("searching source: %w", err)
	}

	r.logger.Info("analyzing results", "records", len(records))
	result, err := audit.Run(ctx, audit.Input{
		Taxonomy: tax,
		Catalog:  cat.Codes(),
		Records:  records,
		Reader:   r.reader,
		Workers:  r.cfg.Search.Workers,
	}, r.logger)
	if err != nil {
		return nil, nil, err
	}

	stats := result.Stats()
	r.logger.Info("audit complete",
		"consistent", stats.Consistent,
		"missing", stats.MissingTotal,
		"orphaned", stats.Orphaned,
		"passed", !result.Failed(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result, cat, nil
}

// excludes adds the catalog file and the report file to the configured
// excludes: catalog keys are definitions, and a report lists every code it
// found, so searching either would feed the audit its own output.
func (r *auditRun) excludes(catalogPath string) []string {
	excludes := append([]string(nil), r.cfg.Search.Excludes...)
	generated := []string{catalogPath}
	if r.cfg.Report.Output != "" {
		if abs, err := filepath.Abs(r.cfg.Report.Output); err == nil {
			generated = append(generated, abs)
		}
	}
	for _, path := range generated {
		rel, err := filepath.Rel(r.cfg.RepoRoot, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		excludes = append(excludes, literalGlob(filepath.ToSlash(rel)))
	}
	return excludes
}

// literalGlob escapes glob metacharacters so the glob matches only path.
func literalGlob(path string) string {
	var b strings.Builder
	for _, c := range path {
		if strings.ContainsRune(`*?[]{}\`, c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// matcher returns the ignore rules the backend walks with, or fresh rules
// for backends that apply them on their own.
func (r *auditRun) matcher() *ignore.Matcher {
	if b, ok := r.searcher.(*search.Builtin); ok {
		return b.Matcher()
	}
	return ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          r.cfg.RepoRoot,
		MaxFileSizeBytes: r.cfg.Search.MaxFileSizeBytes,
	})
}

// files returns the file metadata of the last builtin search, nil otherwise.
func (r *auditRun) files() *index.FileIndex {
	if b, ok := r.searcher.(*search.Builtin); ok {
		return b.Files()
	}
	return nil
}

func (r *auditRun) close() {
	if closer, ok := r.searcher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			r.logger.Debug("closing searcher", "error", err)
		}
	}
}

// auditAndReport runs one audit and writes its report. It returns
// errAuditFailed when the result fails the exit contract.
func (r *auditRun) auditAndReport(ctx context.Context, stdout io.Writer) error {
	result, cat, err := r.execute(ctx)
	if err != nil {
		return err
	}
	if err := writeReport(stdout, r.cfg, audit.Project(result), cat, r.logger); err != nil {
		return err
	}
	if result.Failed() {
		return errAuditFailed
	}
	return nil
}

// writeReport renders rep to the configured output file, or to stdout.
func writeReport(stdout io.Writer, cfg config.Config, rep audit.Report, cat *catalog.Catalog, logger *slog.Logger) error {
	options := report.Options{
		Format:      cfg.Report.Format,
		CatalogName: filepath.Base(cat.Path),
	}

	if cfg.Report.Output == "" {
		options.Color = report.ColorEnabled(cfg.Report.Color, stdout)
		return report.Render(stdout, rep, options)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Report.Output), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	f, err := os.Create(cfg.Report.Output)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	options.Color = report.ColorEnabled(cfg.Report.Color, f)
	if err := report.Render(f, rep, options); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	logger.Info("report written", "path", cfg.Report.Output)
	return nil
}

// setup loads the configuration and creates the logger and audit runner
// shared by every command.
func setup(cmd *cobra.Command, opts *cliOptions) (*auditRun, *slog.Logger, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, nil, err
	}
	logger := setupLogger(cfg.Log.Level, cfg.Log.File, cmd.ErrOrStderr())
	logger.Debug("configuration loaded",
		"root", cfg.RepoRoot,
		"catalog", cfg.CatalogPath(),
		"backend", cfg.Search.Backend,
		"excludes", cfg.Search.Excludes,
	)

	runner, err := newAuditRun(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return runner, logger, nil
}

func runAudit(cmd *cobra.Command, opts *cliOptions) error {
	runner, _, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer runner.close()

	return runner.auditAndReport(cmd.Context(), cmd.OutOrStdout())
}
