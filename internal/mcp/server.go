// Package mcp serves extract, import and the shelf as MCP tools, so an
// assistant can copy a routine out of the builder and paste one back in.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(b Backend, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("routinecopy", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("routinecopy reads and writes workout routines in the routine builder open in the user's browser. "+
			"extract_routine returns the routine shown as portable JSON; import_routine replays portable JSON into the builder and reports what could not be applied."),
	)

	h := &handlers{b: b, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolExtractRoutine, Handler: h.extractRoutine},
		server.ServerTool{Tool: toolImportRoutine, Handler: h.importRoutine},
		server.ServerTool{Tool: toolListLibrary, Handler: h.listLibrary},
		server.ServerTool{Tool: toolListSaved, Handler: h.listSaved},
		server.ServerTool{Tool: toolGetSaved, Handler: h.getSaved},
		server.ServerTool{Tool: toolSaveRoutine, Handler: h.saveRoutine},
		server.ServerTool{Tool: toolImportSaved, Handler: h.importSaved},
		server.ServerTool{Tool: toolListImportRuns, Handler: h.listImportRuns},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resShelf, Handler: h.shelfResource},
		server.ServerResource{Resource: resRecentRuns, Handler: h.recentRuns},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	b   Backend
	log *slog.Logger
}

// --- Resource definitions ---

var resShelf = mcp.NewResource(
	"routinecopy://shelf",
	"Saved Routines",
	mcp.WithResourceDescription("Routines saved on the shelf, newest first"),
	mcp.WithMIMEType("application/json"),
)

var resRecentRuns = mcp.NewResource(
	"routinecopy://recent_runs",
	"Recent Imports",
	mcp.WithResourceDescription("Outcome counts of the last 20 imports"),
	mcp.WithMIMEType("application/json"),
)
