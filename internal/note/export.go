package note

// ExportRecord represents a note in JSONL export format.
// It is used for parsing export files during import.
type ExportRecord struct {
	// Header detection field - true only for header line
	CornellExport bool `json:"_cornell_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Unit      string    `json:"unit"`
	Cue       string    `json:"cue"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	Sections  []Section `json:"sections"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// ToNote converts an ExportRecord to a Note, recomputing derived fields.
// UpdatedAt is preserved from the record.
func (r *ExportRecord) ToNote() Note {
	n := Note{
		ID:        r.ID,
		Title:     r.Title,
		Unit:      r.Unit,
		Cue:       r.Cue,
		Summary:   r.Summary,
		Tags:      NormalizeTags(r.Tags),
		Sections:  append([]Section{}, r.Sections...),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for i := range n.Sections {
		if n.Sections[i].ID == "" {
			n.Sections[i].ID = NewID()
		}
		if n.Sections[i].Text == "" {
			n.Sections[i].Text = PlainText(n.Sections[i].HTML)
		}
	}
	n.NotesHTML = FlattenHTML(n.Sections)
	n.NotesText = FlattenText(n.Sections)
	return n
}

// NoteToExportRecord converts a Note to an ExportRecord for export.
func NoteToExportRecord(n Note) *ExportRecord {
	return &ExportRecord{
		ID:        n.ID,
		Title:     n.Title,
		Unit:      n.Unit,
		Cue:       n.Cue,
		Summary:   n.Summary,
		Tags:      n.Tags,
		Sections:  n.Sections,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
