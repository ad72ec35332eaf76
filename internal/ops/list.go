package ops

import (
	"context"
	"slices"
	"strings"

	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Tag    string // optional exact tag filter
	Unit   string // optional unit filter, case-insensitive
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []note.NoteSummary `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"`
}

// List retrieves note summaries, most recently updated first.
func List(ctx context.Context, st store.Store, input ListInput) (*ListOutput, error) {
	notes, err := st.List(ctx)
	if err != nil {
		return nil, err
	}

	tag := strings.TrimSpace(input.Tag)
	unit := strings.TrimSpace(input.Unit)

	summaries := make([]note.NoteSummary, 0, len(notes))
	for _, n := range notes {
		if tag != "" && !slices.Contains(n.Tags, tag) {
			continue
		}
		if unit != "" && !strings.EqualFold(n.Unit, unit) {
			continue
		}
		summaries = append(summaries, n.ToSummary())
	}

	items, pagination := paginate(summaries, input.Limit, input.Offset)
	return &ListOutput{
		Items:      items,
		Pagination: pagination,
		Sort:       SortUpdatedDesc,
	}, nil
}
