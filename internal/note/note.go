package note

import (
	"cmp"
	"crypto/rand"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTitle is the title given to a freshly created note.
const DefaultTitle = "New note"

// Section is one titled block of rich content, addressed by position from the
// note's cue block.
type Section struct {
	// ID is a ULID assigned once when the section is created
	ID string `json:"id"`

	// Cue is the section title. Empty means untitled.
	Cue string `json:"cue"`

	// HTML is the raw markup payload owned by the editor
	HTML string `json:"html"`

	// Text is the plain-text projection reported by the editor
	Text string `json:"text"`

	// Collapsed only affects display
	Collapsed bool `json:"collapsed"`
}

// sectionJSON mirrors Section but accepts any shape for html.
type sectionJSON struct {
	ID        string          `json:"id"`
	Cue       string          `json:"cue"`
	HTML      json.RawMessage `json:"html"`
	Text      string          `json:"text"`
	Collapsed bool            `json:"collapsed"`
}

// UnmarshalJSON decodes a stored section. Non-string markup is treated as an
// empty paragraph rather than failing the whole document.
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var v any
	if len(raw.HTML) > 0 {
		if err := json.Unmarshal(raw.HTML, &v); err != nil {
			v = nil
		}
	}

	*s = Section{
		ID:        raw.ID,
		Cue:       raw.Cue,
		HTML:      ContentFrom(v).Markup(),
		Text:      raw.Text,
		Collapsed: raw.Collapsed,
	}
	return nil
}

// Note is a Cornell note: a title, a cue block, one section per cue line and a summary.
type Note struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Unit     string    `json:"unit"`
	Cue      string    `json:"cue"`
	Summary  string    `json:"summary"`
	Tags     []string  `json:"tags"`
	Sections []Section `json:"sections"`

	// NotesHTML and NotesText are derived from Sections on every mutation
	NotesHTML string `json:"notes_html"`
	NotesText string `json:"notes_text"`

	// CreatedAt and UpdatedAt are Unix milliseconds
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// New returns an empty note with no sections.
func New(now time.Time) Note {
	ms := now.UnixMilli()
	return Note{
		ID:        NewID(),
		Title:     DefaultTitle,
		Sections:  []Section{},
		Tags:      []string{},
		CreatedAt: ms,
		UpdatedAt: ms,
	}
}

// Clone returns a deep copy so callers can mutate slices freely.
func (n Note) Clone() Note {
	c := n
	c.Sections = append([]Section(nil), n.Sections...)
	c.Tags = append([]string(nil), n.Tags...)
	return c
}

// SectionIndex returns the position of the section with the given id, or -1.
func (n Note) SectionIndex(id string) int {
	for i, s := range n.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// SortByUpdated orders notes most recently updated first. Ties fall back to
// id, descending, so every backend lists in the same order.
func SortByUpdated(notes []Note) {
	slices.SortFunc(notes, func(a, b Note) int {
		if c := cmp.Compare(b.UpdatedAt, a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newID is swapped in tests that need deterministic identifiers.
var newID = func() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewID generates a new ULID.
func NewID() string {
	return newID()
}
