package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	ID string

	// Editable fields (nil = don't change)
	Title   *string
	Unit    *string
	Summary *string
	Tags    *[]string
}

// Update modifies a note's title, unit, summary or tags. Cue and section
// edits have their own operations.
func Update(ctx context.Context, st store.Store, input UpdateInput) (*NoteOutput, error) {
	// Validate at least one editable field is provided
	if input.Title == nil && input.Unit == nil && input.Summary == nil && input.Tags == nil {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}

	var title string
	if input.Title != nil {
		title = strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errors.NewInvalidRequest("title must not be empty")
		}
	}

	return mutate(ctx, st, input.ID, func(n note.Note, at time.Time) (note.Note, error) {
		if input.Title != nil {
			n = n.WithTitle(title, at)
		}
		if input.Unit != nil {
			n = n.WithUnit(*input.Unit, at)
		}
		if input.Summary != nil {
			n = n.WithSummary(*input.Summary, at)
		}
		if input.Tags != nil {
			n = n.WithTags(*input.Tags, at)
		}
		return n, nil
	})
}
