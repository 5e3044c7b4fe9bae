package main

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/lexandro/errcode-audit/server"
	"github.com/lexandro/errcode-audit/tools"
)

// runServe exposes audits as MCP tools on stdio. Logs never go to stdout.
func runServe(cmd *cobra.Command, opts *cliOptions) error {
	startTime := time.Now()
	runner, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer runner.close()

	logger.Info("starting errcode-audit MCP server",
		"root", runner.cfg.RepoRoot,
		"catalog", runner.cfg.CatalogPath(),
		"backend", runner.cfg.Search.Backend,
	)

	auditHandler := &tools.AuditHandler{RunAudit: runner.execute, Logger: logger}
	lookupHandler := &tools.LookupHandler{RunAudit: runner.execute, Logger: logger}
	statusHandler := &tools.StatusHandler{
		Files:     runner.files(),
		Backend:   runner.cfg.Search.Backend,
		StartTime: startTime,
		RootDir:   runner.cfg.RepoRoot,
		Logger:    logger,
	}

	mcpServer := server.Setup(auditHandler, lookupHandler, statusHandler, version)

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		if cmd.Context().Err() != nil {
			return nil
		}
		logger.Error("MCP server error", "error", err)
		return err
	}
	return nil
}
