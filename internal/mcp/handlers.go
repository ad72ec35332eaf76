package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/logging"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/ops"
	"github.com/hpungsan/cornell/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store  store.Store
	cfg    *config.Config
	logger zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st store.Store, cfg *config.Config, logger zerolog.Logger) *Handlers {
	return &Handlers{store: st, cfg: cfg, logger: logger}
}

// Request types for each tool

// CreateRequest represents the arguments for note_create.
type CreateRequest struct {
	Title   string   `json:"title,omitempty"`
	Unit    string   `json:"unit,omitempty"`
	Cue     string   `json:"cue,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// FetchRequest represents the arguments for note_fetch.
type FetchRequest struct {
	ID          string `json:"id"`
	IncludeHTML *bool  `json:"include_html,omitempty"`
}

// ListRequest represents the arguments for note_list.
type ListRequest struct {
	Tag    string `json:"tag,omitempty"`
	Unit   string `json:"unit,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SearchRequest represents the arguments for note_search.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SetCueRequest represents the arguments for note_set_cue.
type SetCueRequest struct {
	ID  string `json:"id"`
	Cue string `json:"cue"`
}

// EditSectionRequest represents the arguments for note_edit_section.
// HTML accepts any JSON value; only strings count as markup.
type EditSectionRequest struct {
	ID        string  `json:"id"`
	SectionID string  `json:"section_id"`
	HTML      any     `json:"html,omitempty"`
	Text      *string `json:"text,omitempty"`
}

// SectionRequest represents the arguments for tools addressing one section.
type SectionRequest struct {
	ID        string `json:"id"`
	SectionID string `json:"section_id"`
}

// MoveSectionRequest represents the arguments for note_move_section.
type MoveSectionRequest struct {
	ID   string `json:"id"`
	From int    `json:"from"`
	To   *int   `json:"to,omitempty"`
}

// UpdateRequest represents the arguments for note_update.
type UpdateRequest struct {
	ID      string    `json:"id"`
	Title   *string   `json:"title,omitempty"`
	Unit    *string   `json:"unit,omitempty"`
	Summary *string   `json:"summary,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// DeleteRequest represents the arguments for note_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ExportRequest represents the arguments for note_export.
type ExportRequest struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
	ID     string `json:"id,omitempty"`
}

// ImportRequest represents the arguments for note_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleCreate handles the note_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Create(ctx, h.store, ops.CreateInput{
		Title:   input.Title,
		Unit:    input.Unit,
		Cue:     input.Cue,
		Summary: input.Summary,
		Tags:    input.Tags,
	})
	return h.result("note_create", result, err)
}

// HandleFetch handles the note_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.store, ops.FetchInput{
		ID:          input.ID,
		IncludeHTML: input.IncludeHTML,
	})
	return h.result("note_fetch", result, err)
}

// HandleList handles the note_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		Tag:    input.Tag,
		Unit:   input.Unit,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	return h.result("note_list", result, err)
}

// HandleSearch handles the note_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.store, ops.SearchInput{
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	return h.result("note_search", result, err)
}

// HandleSetCue handles the note_set_cue tool call.
func (h *Handlers) HandleSetCue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetCueRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SetCue(ctx, h.store, ops.SetCueInput{ID: input.ID, Cue: input.Cue})
	return h.result("note_set_cue", result, err)
}

// HandleEditSection handles the note_edit_section tool call.
func (h *Handlers) HandleEditSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditSectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.EditSection(ctx, h.store, ops.EditSectionInput{
		ID:        input.ID,
		SectionID: input.SectionID,
		Content:   note.ContentFrom(input.HTML),
		Text:      input.Text,
	})
	return h.result("note_edit_section", result, err)
}

// HandleToggleSection handles the note_toggle_section tool call.
func (h *Handlers) HandleToggleSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ToggleSection(ctx, h.store, ops.SectionInput{ID: input.ID, SectionID: input.SectionID})
	return h.result("note_toggle_section", result, err)
}

// HandleMoveSection handles the note_move_section tool call.
func (h *Handlers) HandleMoveSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MoveSectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MoveSection(ctx, h.store, ops.MoveSectionInput{
		ID:   input.ID,
		From: input.From,
		To:   input.To,
	})
	return h.result("note_move_section", result, err)
}

// HandleDeleteSection handles the note_delete_section tool call.
func (h *Handlers) HandleDeleteSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteSection(ctx, h.store, ops.SectionInput{ID: input.ID, SectionID: input.SectionID})
	return h.result("note_delete_section", result, err)
}

// HandleUpdate handles the note_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(ctx, h.store, ops.UpdateInput{
		ID:      input.ID,
		Title:   input.Title,
		Unit:    input.Unit,
		Summary: input.Summary,
		Tags:    input.Tags,
	})
	return h.result("note_update", result, err)
}

// HandleDelete handles the note_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.store, ops.DeleteInput{ID: input.ID})
	return h.result("note_delete", result, err)
}

// HandleExport handles the note_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.store, h.cfg, ops.ExportInput{
		Path:   input.Path,
		Format: ops.ExportFormat(input.Format),
		ID:     input.ID,
	})
	return h.result("note_export", result, err)
}

// HandleImport handles the note_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(logging.WithLogger(ctx, h.logger), h.store, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	return h.result("note_import", result, err)
}

// Result helpers

// result turns an ops return pair into a tool result. Internal failures are
// logged here because the client only sees a generic message.
func (h *Handlers) result(tool string, data any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if errors.As(err).Code == errors.ErrInternal {
			h.logger.Error().Err(err).Str("tool", tool).Msg("tool call failed")
		}
		return errorResult(err), nil
	}
	return successResult(data)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal errors carry a generic message so paths and SQL errors stay private.
func errorResult(err error) *mcp.CallToolResult {
	nErr := errors.As(err)

	errorObj := map[string]any{
		"code":    nErr.Code,
		"message": nErr.Message,
		"status":  nErr.Status,
	}
	if nErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if nErr.Details != nil {
		errorObj["details"] = nErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
