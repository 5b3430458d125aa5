package mcp

import "github.com/mark3labs/mcp-go/mcp"

var daysToolDef = mcp.NewTool("glucose_days",
	mcp.WithDescription("Parse a glucose monitor export and summarize each day: readings, min/max/mean glucose, time in range and event totals."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to the tab-separated export file")),
)

var renderToolDef = mcp.NewTool("glucose_render",
	mcp.WithDescription("Render one PNG chart per day of a glucose monitor export. Returns the written files and any days that failed."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to the tab-separated export file")),
	mcp.WithString("output_dir", mcp.Description("Directory for the charts (default: configured output_dir)")),
	mcp.WithArray("days", mcp.WithStringItems(), mcp.Description("Only render these days (YYYY-MM-DD)")),
)

var storeToolDef = mcp.NewTool("glucose_store",
	mcp.WithDescription("Parse an export and save its normalized records as a new import. Imports are never merged with each other."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to the tab-separated export file")),
	mcp.WithString("label", mcp.Description("Optional label for the import")),
)

var importsToolDef = mcp.NewTool("glucose_imports",
	mcp.WithDescription("List stored imports, newest first."),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var deleteToolDef = mcp.NewTool("glucose_delete",
	mcp.WithDescription("Delete a stored import and its records."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Import ID")),
	mcp.WithDestructiveHintAnnotation(true),
)
