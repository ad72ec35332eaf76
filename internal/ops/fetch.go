package ops

import (
	"context"

	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID          string
	IncludeHTML *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	note.Note        // embedded (copy, not pointer)
	Preview   string `json:"preview"`
}

// Fetch retrieves a note by ID.
func Fetch(ctx context.Context, st store.Store, input FetchInput) (*FetchOutput, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}

	n, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{
		Note:    *n,
		Preview: n.Preview(),
	}

	includeHTML := true
	if input.IncludeHTML != nil {
		includeHTML = *input.IncludeHTML
	}
	if !includeHTML {
		output.NotesHTML = ""
		sections := make([]note.Section, len(n.Sections))
		for i, s := range n.Sections {
			s.HTML = ""
			sections[i] = s
		}
		output.Sections = sections
	}

	return output, nil
}
