package main

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexandro/errcode-audit/watcher"
)

// runWatch audits once, then again after every debounced batch of changes,
// until the context is cancelled. Failing audits do not end the loop.
func runWatch(cmd *cobra.Command, opts *cliOptions) error {
	runner, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer runner.close()

	ctx := cmd.Context()
	stdout := cmd.OutOrStdout()

	var skip []string
	if runner.cfg.Report.Output != "" {
		abs, err := filepath.Abs(runner.cfg.Report.Output)
		if err != nil {
			return err
		}
		skip = append(skip, abs)
	}

	filter := runner.matcher()
	w, err := watcher.New(watcher.Options{
		RootDir:  runner.cfg.RepoRoot,
		Filter:   filter,
		Excludes: runner.cfg.Search.Excludes,
		Skip:     skip,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()
	go w.Run(ctx)

	auditOnce := func() {
		err := runner.auditAndReport(ctx, stdout)
		if err == nil || errors.Is(err, errAuditFailed) || ctx.Err() != nil {
			return
		}
		logger.Error("audit failed to run", "error", err)
	}

	logger.Info("watching for changes", "root", runner.cfg.RepoRoot)
	auditOnce()
	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case batch := <-w.Events():
			if watcher.TouchesIgnoreFile(batch) {
				logger.Info("ignore rules changed, reloading")
				filter.Reload()
			}
			logger.Info("changes detected, re-running audit", "files", len(batch))
			auditOnce()
		}
	}
}
