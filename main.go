// errcode-audit reconciles an error-code catalog against the codes used in a
// repository's source and fails when the two drift apart.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexandro/errcode-audit/config"
)

var version = "dev"

// errAuditFailed is returned when the audit completed but fails the exit
// contract. The report already explains why, so main prints nothing more.
var errAuditFailed = errors.New("audit failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errAuditFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// cliOptions holds every flag value. Only flags the user set override the
// config file.
type cliOptions struct {
	repoRoot   string
	configPath string
	catalog    string
	backend    string
	types      []string
	excludes   []string
	workers    int
	logLevel   string
	logFile    string
	format     string
	output     string
	color      string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "errcode-audit",
		Short: "Audit an error-code catalog against the codes used in source",
		Long: `errcode-audit searches a repository for error codes such as Q-2-5,
reconciles them with the error catalog and reports consistent, missing and
orphaned codes with a per-subsystem breakdown.

The audit fails (exit status 1) when a code used in production source is
missing from the catalog or a catalog entry is no longer used.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd, opts)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.repoRoot, "repo-root", ".", "repository root to audit")
	flags.StringVar(&opts.configPath, "config", "", "config file (default: "+config.DefaultFileName+" in the repository root, if present)")
	flags.StringVar(&opts.catalog, "catalog", config.DefaultCatalogPath, "error catalog path, relative to the repository root")
	flags.StringVar(&opts.backend, "search", "builtin", "search backend: builtin|ripgrep")
	flags.StringSliceVar(&opts.types, "type", nil, "file type to search (repeatable, replaces the configured types)")
	flags.StringArrayVar(&opts.excludes, "exclude", nil, "extra exclude glob, e.g. '**/fixtures/**' (repeatable)")
	flags.IntVar(&opts.workers, "workers", 0, "parallel file workers (0 = number of CPUs)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	flags.StringVar(&opts.logFile, "log-file", "", "log file path (default: stderr)")
	addReportFlags(rootCmd, opts)

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the audit once and print the report (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd, opts)
		},
	}
	addReportFlags(auditCmd, opts)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the audit whenever searched files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, opts)
		},
	}
	addReportFlags(watchCmd, opts)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve audits to MCP clients over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "errcode-audit %s\n", version)
			return err
		},
	}

	rootCmd.AddCommand(auditCmd, watchCmd, serveCmd, versionCmd)
	return rootCmd
}

func addReportFlags(cmd *cobra.Command, opts *cliOptions) {
	cmd.Flags().StringVar(&opts.format, "format", "text", "report format: text|json|markdown")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.color, "color", "auto", "colorize the text report: auto|always|never")
}

// loadConfig layers defaults, the config file and the flags the user set.
func loadConfig(cmd *cobra.Command, opts *cliOptions) (config.Config, error) {
	repoRoot, err := filepath.Abs(opts.repoRoot)
	if err != nil {
		return config.Config{}, fmt.Errorf("resolving repository root: %w", err)
	}
	info, err := os.Stat(repoRoot)
	if err != nil {
		return config.Config{}, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return config.Config{}, fmt.Errorf("%s: not a directory", repoRoot)
	}

	cfg, err := config.Load(repoRoot, opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("catalog") {
		cfg.Catalog = opts.catalog
	}
	if flags.Changed("search") {
		cfg.Search.Backend = strings.ToLower(opts.backend)
	}
	if flags.Changed("type") {
		cfg.Search.Types = opts.types
	}
	if flags.Changed("exclude") {
		cfg.Search.Excludes = append(cfg.Search.Excludes, opts.excludes...)
	}
	if flags.Changed("workers") {
		cfg.Search.Workers = opts.workers
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(opts.logLevel)
	}
	if flags.Changed("log-file") {
		cfg.Log.File = opts.logFile
	}
	if flags.Changed("format") {
		cfg.Report.Format = strings.ToLower(opts.format)
	}
	if flags.Changed("output") {
		cfg.Report.Output = opts.output
	}
	if flags.Changed("color") {
		cfg.Report.Color = strings.ToLower(opts.color)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogger creates an slog.Logger writing to the log file, or to stderr
// when no file is set or it cannot be opened. Stdout is reserved for reports.
func setupLogger(level string, logFile string, stderr io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	writer := stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
