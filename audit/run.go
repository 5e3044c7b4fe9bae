package audit

import (
	"context"
	"fmt"
	"log/slog"
)

// Input bundles everything one audit run consumes.
type Input struct {
	Taxonomy Taxonomy
	Catalog  CodeSet
	Records  []Record
	Reader   ContentReader
	Workers  int // file-ignore resolution parallelism, <= 0 for GOMAXPROCS
	Rules    []Rule
}

// Run builds the usage index, resolves file-level ignores and reconciles
// the result. A cancelled ctx returns an error and no result.
func Run(ctx context.Context, in Input, logger *slog.Logger) (*Result, error) {
	if err := in.Taxonomy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}

	builder, err := NewBuilder(in.Taxonomy)
	if err != nil {
		return nil, err
	}
	builder.AddAll(in.Records)
	idx := builder.Finish()
	if idx.Skipped > 0 {
		logger.Debug("skipped malformed match records", "count", idx.Skipped)
	}
	logger.Info("found codes in source", "codes", len(idx.Usages), "files", len(idx.Files))

	resolver := NewFileResolver(in.Taxonomy, in.Reader, in.Workers, logger)
	ignoredFiles, err := resolver.Resolve(ctx, idx)
	if err != nil {
		return nil, fmt.Errorf("resolving file ignore markers: %w", err)
	}
	if len(ignoredFiles) > 0 {
		logger.Debug("files carrying the file ignore marker", "files", ignoredFiles)
	}

	rules := in.Rules
	if rules == nil {
		rules = DefaultRules(in.Taxonomy)
	}
	engine := NewEngineWithRules(in.Taxonomy, rules)
	return engine.Reconcile(in.Catalog, idx.Usages), nil
}
