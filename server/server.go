// Package server wires the audit tool handlers into an MCP server.
package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/errcode-audit/tools"
)

// Setup creates and configures the MCP server with all tool registrations.
func Setup(
	auditHandler *tools.AuditHandler,
	lookupHandler *tools.LookupHandler,
	statusHandler *tools.StatusHandler,
	version string,
) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "errcode-audit",
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `This server audits the error-code catalog of the repository against the codes used in its source.

- Use errcode_audit to run a full audit; the first line says PASS or FAIL
- Use errcode_lookup before adding or removing a catalog entry to see where a code is used
- Every call searches the working tree again, so results always reflect unsaved-to-git edits on disk`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "errcode_audit",
		Description: `Reconcile the error catalog against every code used in source.

Reports consistent codes, codes missing from the catalog (split into legitimate,
test/example-only and invalid-format), orphaned catalog entries and a per-subsystem breakdown.
The run FAILS when a legitimate code is missing or a catalog entry is orphaned.

format: text (default), json or markdown.`,
	}, auditHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "errcode_lookup",
		Description: "Show the audit state of one code (e.g. Q-2-5), its catalog entry, and every active source location.",
	}, lookupHandler.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "errcode_status",
		Description: "Show server status: repository root, search backend, files searched by the last audit, memory usage, and uptime.",
	}, statusHandler.Handle)

	return mcpServer
}
