package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string // required
	Limit  int    // default: 20, max: 100
	Offset int
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []note.NoteSummary `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Query      string             `json:"query"`
	Tokens     []string           `json:"tokens"`
	Sort       string             `json:"sort"`
}

// Search returns notes whose serialized document contains every query token,
// ignoring case.
func Search(ctx context.Context, st store.Store, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	tokens := note.Tokenize(query)
	if len(tokens) == 0 {
		return nil, errors.NewInvalidRequest("query is required")
	}

	notes, err := st.List(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]note.NoteSummary, 0)
	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("search")
		}
		if n.Matches(tokens) {
			matches = append(matches, n.ToSummary())
		}
	}

	items, pagination := paginate(matches, input.Limit, input.Offset)
	return &SearchOutput{
		Items:      items,
		Pagination: pagination,
		Query:      query,
		Tokens:     tokens,
		Sort:       SortUpdatedDesc,
	}, nil
}
