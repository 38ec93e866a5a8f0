package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
)

// --- Tool definitions ---

var toolExtractRoutine = mcp.NewTool("extract_routine",
	mcp.WithDescription("Read the routine currently shown in the routine builder and return it as portable JSON: title, exercises in order with note, rest, set rows and superset ids."),
	mcp.WithString("save_as", mcp.Description("Also save the routine on the shelf under this name")),
)

var toolImportRoutine = mcp.NewTool("import_routine",
	mcp.WithDescription("Replay portable routine JSON into the routine builder: add each exercise from the library, link supersets, then fill notes, rest and sets. Returns a report of what was applied, not found, or only partially applied."),
	mcp.WithString("routine", mcp.Required(), mcp.Description("Portable routine JSON, as returned by extract_routine")),
)

var toolListLibrary = mcp.NewTool("list_library",
	mcp.WithDescription("List the exercises available in the builder's exercise library with their muscle group. Imports can only place exercises named here."),
)

var toolListSaved = mcp.NewTool("list_saved_routines",
	mcp.WithDescription("List routines saved on the shelf, newest first."),
)

var toolGetSaved = mcp.NewTool("get_saved_routine",
	mcp.WithDescription("Return a saved routine as portable JSON."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Shelf name")),
)

var toolSaveRoutine = mcp.NewTool("save_routine",
	mcp.WithDescription("Save portable routine JSON on the shelf, replacing any routine with the same name."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Shelf name")),
	mcp.WithString("routine", mcp.Required(), mcp.Description("Portable routine JSON")),
)

var toolImportSaved = mcp.NewTool("import_saved_routine",
	mcp.WithDescription("Replay a routine from the shelf into the routine builder. Returns the import report."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Shelf name")),
)

var toolListImportRuns = mcp.NewTool("list_import_runs",
	mcp.WithDescription("List recent imports with applied / not found / partial counts."),
	mcp.WithNumber("limit", mcp.Description("Maximum runs to return. Defaults to 20.")),
)

// --- Tool handlers ---

func (h *handlers) extractRoutine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := h.b.Extract(ctx)
	if err != nil {
		h.log.Error("mcp extract_routine", "error", err)
		return mcp.NewToolResultError("extract failed: " + err.Error()), nil
	}
	if name := req.GetString("save_as", ""); name != "" {
		if _, err := h.b.SaveShelf(ctx, name, text); err != nil {
			h.log.Error("mcp extract_routine save", "error", err)
			return mcp.NewToolResultError("extracted, but saving failed: " + err.Error()), nil
		}
	}
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) importRoutine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("routine")
	if err != nil {
		return mcp.NewToolResultError("routine parameter is required"), nil
	}
	rep, err := h.b.Import(ctx, text)
	return h.reportResult("import_routine", rep, err)
}

func (h *handlers) listLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.b.Library(ctx)
	if err != nil {
		h.log.Error("mcp list_library", "error", err)
		return mcp.NewToolResultError("listing library failed: " + err.Error()), nil
	}
	return jsonResult(entries)
}

func (h *handlers) listSaved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.b.ListShelf(ctx)
	if err != nil {
		h.log.Error("mcp list_saved_routines", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(entries)
}

func (h *handlers) getSaved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	text, _, err := h.b.GetShelf(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) saveRoutine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	text, err := req.RequireString("routine")
	if err != nil {
		return mcp.NewToolResultError("routine parameter is required"), nil
	}
	entry, err := h.b.SaveShelf(ctx, name, text)
	if err != nil {
		return mcp.NewToolResultError("save failed: " + err.Error()), nil
	}
	return jsonResult(entry)
}

func (h *handlers) importSaved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}
	rep, err := h.b.ImportShelf(ctx, name)
	return h.reportResult("import_saved_routine", rep, err)
}

func (h *handlers) listImportRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := h.b.Runs(ctx, req.GetInt("limit", 20))
	if err != nil {
		h.log.Error("mcp list_import_runs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(runs)
}

func (h *handlers) reportResult(tool string, rep *importer.Report, err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, models.ErrMalformed) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		h.log.Error("mcp "+tool, "error", err)
		return mcp.NewToolResultError("import failed: " + err.Error()), nil
	}
	applied, notFound, partial := rep.Counts()
	h.log.Info("mcp "+tool, "run_id", rep.RunID, "applied", applied, "not_found", notFound, "partial", partial)
	return jsonResult(rep)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serialization failed: %v", err)), nil
	}
	return result, nil
}
