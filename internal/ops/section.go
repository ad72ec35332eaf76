package ops

import (
	"context"
	"time"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// SetCueInput contains parameters for the SetCue operation.
type SetCueInput struct {
	ID  string
	Cue string // the whole cue block, one cue per line
}

// SetCue replaces a note's cue block and reconciles its sections.
func SetCue(ctx context.Context, st store.Store, input SetCueInput) (*NoteOutput, error) {
	return mutate(ctx, st, input.ID, func(n note.Note, at time.Time) (note.Note, error) {
		return n.WithCue(input.Cue, at), nil
	})
}

// EditSectionInput contains parameters for the EditSection operation.
type EditSectionInput struct {
	ID        string
	SectionID string
	Content   note.Content
	Text      *string // plain text reported by the editor; derived when nil
}

// EditSection replaces one section's content.
func EditSection(ctx context.Context, st store.Store, input EditSectionInput) (*NoteOutput, error) {
	sectionID, err := requireID(input.SectionID, "section_id")
	if err != nil {
		return nil, err
	}
	return mutate(ctx, st, input.ID, func(n note.Note, at time.Time) (note.Note, error) {
		next, ok := n.WithSectionContent(sectionID, input.Content, input.Text, at)
		if !ok {
			return n, errors.NewSectionNotFound(n.ID, sectionID)
		}
		return next, nil
	})
}

// SectionInput addresses one section of a note.
type SectionInput struct {
	ID        string
	SectionID string
}

// ToggleSection flips a section's collapsed flag.
func ToggleSection(ctx context.Context, st store.Store, input SectionInput) (*NoteOutput, error) {
	sectionID, err := requireID(input.SectionID, "section_id")
	if err != nil {
		return nil, err
	}
	return mutate(ctx, st, input.ID, func(n note.Note, at time.Time) (note.Note, error) {
		next, ok := n.WithSectionToggled(sectionID, at)
		if !ok {
			return n, errors.NewSectionNotFound(n.ID, sectionID)
		}
		return next, nil
	})
}

// DeleteSection removes a section regardless of its content. This is the
// only way to discard a section that still has text.
func DeleteSection(ctx context.Context, st store.Store, input SectionInput) (*NoteOutput, error) {
	sectionID, err := requireID(input.SectionID, "section_id")
	if err != nil {
		return nil, err
	}
	return mutate(ctx, st, input.ID, func(n note.Note, at time.Time) (note.Note, error) {
		next, ok := n.WithoutSection(sectionID, at)
		if !ok {
			return n, errors.NewSectionNotFound(n.ID, sectionID)
		}
		return next, nil
	})
}

// MoveSectionInput contains parameters for the MoveSection operation.
type MoveSectionInput struct {
	ID   string
	From int
	To   *int // nil is a cancelled drag
}

// MoveSectionOutput reports whether the order changed.
type MoveSectionOutput struct {
	NoteOutput
	Moved bool `json:"moved"`
}

// MoveSection moves the section at From to To. A nil or out-of-range
// destination leaves the note untouched and nothing is written.
func MoveSection(ctx context.Context, st store.Store, input MoveSectionInput) (*MoveSectionOutput, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	n, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := n.WithSectionMoved(input.From, input.To, now())
	if !orderChanged(n.Sections, next.Sections) {
		return &MoveSectionOutput{NoteOutput: NoteOutput{ID: n.ID, Note: *n}}, nil
	}
	if err := st.Upsert(ctx, next); err != nil {
		return nil, err
	}
	return &MoveSectionOutput{NoteOutput: NoteOutput{ID: next.ID, Note: next}, Moved: true}, nil
}

func orderChanged(a, b []note.Section) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return true
		}
	}
	return false
}
