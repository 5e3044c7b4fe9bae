// Package config assembles the audit configuration from defaults, an
// optional TOML file in the repository root and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lexandro/errcode-audit/audit"
	"github.com/lexandro/errcode-audit/ignore"
	"github.com/lexandro/errcode-audit/language"
)

// DefaultFileName is looked up in the repository root when no config path is given.
const DefaultFileName = ".errcode-audit.toml"

// DefaultCatalogPath is the catalog location relative to the repository root.
const DefaultCatalogPath = "crates/quarto-error-reporting/error_catalog.json"

// Config is the full audit configuration.
type Config struct {
	RepoRoot string         `toml:"-"`
	Catalog  string         `toml:"catalog"`
	Search   SearchConfig   `toml:"search"`
	Taxonomy TaxonomyConfig `toml:"taxonomy"`
	Report   ReportConfig   `toml:"report"`
	Log      LogConfig      `toml:"log"`
}

// SearchConfig scopes the source search.
type SearchConfig struct {
	Backend          string   `toml:"backend"`
	Types            []string `toml:"types"`
	Excludes         []string `toml:"excludes"`
	MaxFileSizeBytes int64    `toml:"max_file_size_bytes"`
	Workers          int      `toml:"workers"`
	Ripgrep          string   `toml:"ripgrep"`
}

// SubsystemConfig is one row of the subsystem table.
type SubsystemConfig struct {
	Number int    `toml:"number"`
	Name   string `toml:"name"`
}

// TaxonomyConfig mirrors audit.Taxonomy.
type TaxonomyConfig struct {
	Prefix            string            `toml:"prefix"`
	Subsystems        []SubsystemConfig `toml:"subsystems"`
	LineIgnoreToken   string            `toml:"line_ignore_token"`
	FileIgnoreToken   string            `toml:"file_ignore_token"`
	TestPathMarkers   []string          `toml:"test_path_markers"`
	SentinelCodes     []string          `toml:"sentinel_codes"`
	SubsystemLimit    int               `toml:"subsystem_limit"`
	MaxSequenceDigits int               `toml:"max_sequence_digits"`
	ContextWidth      int               `toml:"context_width"`
}

// ReportConfig selects the report rendering.
type ReportConfig struct {
	Format string `toml:"format"`
	Color  string `toml:"color"`
	Output string `toml:"output"`
}

// LogConfig configures the diagnostic logger.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	tax := audit.DefaultTaxonomy()
	subsystems := make([]SubsystemConfig, 0, len(tax.Subsystems))
	for _, s := range tax.Subsystems {
		subsystems = append(subsystems, SubsystemConfig{Number: s.Number, Name: s.Name})
	}

	return Config{
		RepoRoot: ".",
		Catalog:  DefaultCatalogPath,
		Search: SearchConfig{
			Backend:          "builtin",
			Types:            []string{"rust", "json", "markdown"},
			Excludes:         append([]string(nil), ignore.DefaultExcludes...),
			MaxFileSizeBytes: 1024 * 1024,
		},
		Taxonomy: TaxonomyConfig{
			Prefix:            tax.Prefix,
			Subsystems:        subsystems,
			LineIgnoreToken:   tax.LineIgnoreToken,
			FileIgnoreToken:   tax.FileIgnoreToken,
			TestPathMarkers:   tax.TestPathMarkers,
			SentinelCodes:     tax.SentinelCodes,
			SubsystemLimit:    tax.SubsystemLimit,
			MaxSequenceDigits: tax.MaxSequenceDigits,
			ContextWidth:      tax.ContextWidth,
		},
		Report: ReportConfig{
			Format: "text",
			Color:  "auto",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the config file. An empty path
// means the optional DefaultFileName in repoRoot; an explicit path must exist.
func Load(repoRoot string, path string) (Config, error) {
	cfg := Default()
	cfg.RepoRoot = repoRoot

	required := path != ""
	if !required {
		path = filepath.Join(repoRoot, DefaultFileName)
	}
	if err := cfg.decodeFile(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, err
	}
	return cfg, nil
}

// decodeFile overlays the keys present in the TOML file onto cfg.
// Unknown keys are rejected.
func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// AuditTaxonomy builds the audit taxonomy. Test path markers are lowercased
// because they are matched against lowercased paths.
func (c Config) AuditTaxonomy() audit.Taxonomy {
	subsystems := make([]audit.Subsystem, 0, len(c.Taxonomy.Subsystems))
	for _, s := range c.Taxonomy.Subsystems {
		subsystems = append(subsystems, audit.Subsystem{Number: s.Number, Name: s.Name})
	}
	markers := make([]string, 0, len(c.Taxonomy.TestPathMarkers))
	for _, m := range c.Taxonomy.TestPathMarkers {
		markers = append(markers, strings.ToLower(m))
	}

	return audit.Taxonomy{
		Prefix:            c.Taxonomy.Prefix,
		Subsystems:        subsystems,
		LineIgnoreToken:   c.Taxonomy.LineIgnoreToken,
		FileIgnoreToken:   c.Taxonomy.FileIgnoreToken,
		TestPathMarkers:   markers,
		SentinelCodes:     append([]string(nil), c.Taxonomy.SentinelCodes...),
		SubsystemLimit:    c.Taxonomy.SubsystemLimit,
		MaxSequenceDigits: c.Taxonomy.MaxSequenceDigits,
		ContextWidth:      c.Taxonomy.ContextWidth,
	}
}

// CatalogPath resolves the catalog path against the repository root.
func (c Config) CatalogPath() string {
	if filepath.IsAbs(c.Catalog) {
		return c.Catalog
	}
	return filepath.Join(c.RepoRoot, filepath.FromSlash(c.Catalog))
}

var (
	validBackends = []string{"builtin", "ripgrep", "rg"}
	validFormats  = []string{"text", "json", "markdown"}
	validColors   = []string{"auto", "always", "never"}
	validLevels   = []string{"debug", "info", "warn", "error"}
)

// Validate checks every enumerated setting and the taxonomy.
func (c Config) Validate() error {
	var errs []error
	if c.Catalog == "" {
		errs = append(errs, errors.New("catalog path is empty"))
	}
	errs = append(errs,
		oneOf("search backend", strings.ToLower(c.Search.Backend), validBackends),
		oneOf("report format", c.Report.Format, validFormats),
		oneOf("color mode", c.Report.Color, validColors),
		oneOf("log level", strings.ToLower(c.Log.Level), validLevels),
	)
	for _, t := range c.Search.Types {
		if !language.KnownType(t) {
			errs = append(errs, fmt.Errorf("unknown file type %q (known: %s)", t, strings.Join(language.TypeNames(), ", ")))
		}
	}
	if c.Search.Workers < 0 {
		errs = append(errs, errors.New("search workers must not be negative"))
	}
	if err := c.AuditTaxonomy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("taxonomy: %w", err))
	}
	return errors.Join(errs...)
}

func oneOf(what string, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (want one of %s)", what, value, strings.Join(allowed, ", "))
}
