package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Title   string // default: note.DefaultTitle
	Unit    string
	Cue     string // optional; reconciled into sections
	Summary string
	Tags    []string
}

// Create stores a new note.
func Create(ctx context.Context, st store.Store, input CreateInput) (*NoteOutput, error) {
	at := now()
	n := note.New(at)

	if title := strings.TrimSpace(input.Title); title != "" {
		n = n.WithTitle(title, at)
	}
	if input.Unit != "" {
		n = n.WithUnit(input.Unit, at)
	}
	if input.Cue != "" {
		n = n.WithCue(input.Cue, at)
	}
	if input.Summary != "" {
		n = n.WithSummary(input.Summary, at)
	}
	if len(input.Tags) > 0 {
		n = n.WithTags(input.Tags, at)
	}

	if err := st.Upsert(ctx, n); err != nil {
		return nil, err
	}
	return &NoteOutput{ID: n.ID, Note: n}, nil
}
