package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Argument names match the request structs in handlers.go.

var createToolDef = mcp.NewTool("note_create",
	mcp.WithDescription("Create a Cornell note. The cue block has one cue per line; each line becomes a section."),
	mcp.WithString("title", mcp.Description("Note title (default: \"New note\")")),
	mcp.WithString("unit", mcp.Description("Course or unit label")),
	mcp.WithString("cue", mcp.Description("Cue block, one cue per line")),
	mcp.WithString("summary", mcp.Description("Summary in Markdown")),
	mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
)

var fetchToolDef = mcp.NewTool("note_fetch",
	mcp.WithDescription("Fetch a note with its sections."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithBoolean("include_html", mcp.Description("Include section markup (default: true)")),
)

var listToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List note summaries, most recently updated first."),
	mcp.WithString("tag", mcp.Description("Only notes with this tag")),
	mcp.WithString("unit", mcp.Description("Only notes in this unit (case-insensitive)")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Page offset")),
)

var searchToolDef = mcp.NewTool("note_search",
	mcp.WithDescription("Find notes containing every word of the query, ignoring case."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search words")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Page offset")),
)

var setCueToolDef = mcp.NewTool("note_set_cue",
	mcp.WithDescription("Replace a note's cue block. Sections are matched to cue lines by position and keep their content; trailing sections with text are kept untitled."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithString("cue", mcp.Required(), mcp.Description("Cue block, one cue per line")),
)

var editSectionToolDef = mcp.NewTool("note_edit_section",
	mcp.WithDescription("Replace one section's markup."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithString("section_id", mcp.Required(), mcp.Description("Section ID")),
	mcp.WithString("html", mcp.Description("Section markup; omitted or non-string means an empty paragraph")),
	mcp.WithString("text", mcp.Description("Plain text of the markup; derived when omitted")),
)

var toggleSectionToolDef = mcp.NewTool("note_toggle_section",
	mcp.WithDescription("Collapse or expand a section."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithString("section_id", mcp.Required(), mcp.Description("Section ID")),
)

var moveSectionToolDef = mcp.NewTool("note_move_section",
	mcp.WithDescription("Move the section at index from to index to. Without to, nothing changes."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithNumber("from", mcp.Required(), mcp.Description("Current index")),
	mcp.WithNumber("to", mcp.Description("Destination index")),
)

var deleteSectionToolDef = mcp.NewTool("note_delete_section",
	mcp.WithDescription("Delete a section and its content."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithString("section_id", mcp.Required(), mcp.Description("Section ID")),
)

var updateToolDef = mcp.NewTool("note_update",
	mcp.WithDescription("Change a note's title, unit, summary or tags. Omitted fields are left alone."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("unit", mcp.Description("New unit")),
	mcp.WithString("summary", mcp.Description("New summary in Markdown")),
	mcp.WithArray("tags", mcp.Description("Replacement tag list"), mcp.WithStringItems()),
)

var deleteToolDef = mcp.NewTool("note_delete",
	mcp.WithDescription("Permanently delete a note."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
)

var exportToolDef = mcp.NewTool("note_export",
	mcp.WithDescription("Export every note to JSONL, or one note to a standalone HTML page."),
	mcp.WithString("path", mcp.Description("Output file (default: ~/.cornell/exports/...)")),
	mcp.WithString("format", mcp.Description("Export format"), mcp.Enum("jsonl", "html")),
	mcp.WithString("id", mcp.Description("Note ID, required for html")),
)

var importToolDef = mcp.NewTool("note_import",
	mcp.WithDescription("Import notes from a JSONL export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("JSONL file to import")),
	mcp.WithString("mode", mcp.Description("Collision handling (default: error)"), mcp.Enum("error", "replace", "skip")),
)
