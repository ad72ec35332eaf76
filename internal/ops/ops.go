package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SortUpdatedDesc is the only list order.
const SortUpdatedDesc = "updated_at_desc"

// now is the clock used for every mutation. Tests replace it.
var now = time.Now

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// NoteOutput is returned by every operation that changes a note.
type NoteOutput struct {
	ID   string    `json:"id"`
	Note note.Note `json:"note"`
}

// paginate applies limit defaults and bounds and slices items.
func paginate[T any](items []T, limit, offset int) ([]T, Pagination) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset = max(offset, 0)

	total := len(items)
	start := min(offset, total)
	end := min(start+limit, total)
	page := append([]T{}, items[start:end]...)

	return page, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

func requireID(id, field string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return id, nil
}

// mutate loads a note, applies fn and writes the whole document back.
func mutate(ctx context.Context, st store.Store, id string, fn func(note.Note, time.Time) (note.Note, error)) (*NoteOutput, error) {
	id, err := requireID(id, "id")
	if err != nil {
		return nil, err
	}
	n, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(*n, now())
	if err != nil {
		return nil, err
	}
	if err := st.Upsert(ctx, next); err != nil {
		return nil, err
	}
	return &NoteOutput{ID: next.ID, Note: next}, nil
}
