package note

import "strings"

// previewCues is how many cues a list preview shows.
const previewCues = 3

// NoteSummary is a note without its section bodies, used by list views.
type NoteSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Unit         string   `json:"unit,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Preview      string   `json:"preview"`
	SectionCount int      `json:"section_count"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// ToSummary converts a Note to a NoteSummary.
func (n Note) ToSummary() NoteSummary {
	return NoteSummary{
		ID:           n.ID,
		Title:        n.Title,
		Unit:         n.Unit,
		Tags:         n.Tags,
		Preview:      n.Preview(),
		SectionCount: len(n.Sections),
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

// Preview joins the first few non-empty cues.
func (n Note) Preview() string {
	cues := make([]string, 0, previewCues)
	for _, s := range n.Sections {
		if s.Cue == "" {
			continue
		}
		cues = append(cues, s.Cue)
		if len(cues) == previewCues {
			break
		}
	}
	return strings.Join(cues, " • ")
}
