package note

import (
	"fmt"
	"strings"
	"time"
)

// FlattenHTML concatenates each section as a heading plus its raw markup.
func FlattenHTML(sections []Section) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = fmt.Sprintf("<section><h3>%s</h3>%s</section>", s.Cue, RawMarkup(s.HTML).Markup())
	}
	return strings.Join(parts, "\n")
}

// FlattenText concatenates each section's cue and plain text, separated by a blank line.
func FlattenText(sections []Section) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.Cue + "\n" + PlainText(s.HTML)
	}
	return strings.Join(parts, "\n\n")
}

// Refresh recomputes the derived views and stamps UpdatedAt.
// Every mutation below ends here so no caller sees a stale view.
func (n Note) Refresh(now time.Time) Note {
	if n.Sections == nil {
		n.Sections = []Section{}
	}
	n.NotesHTML = FlattenHTML(n.Sections)
	n.NotesText = FlattenText(n.Sections)
	n.UpdatedAt = now.UnixMilli()
	return n
}

// WithCue replaces the cue block and reconciles the sections against it.
func (n Note) WithCue(cueText string, now time.Time) Note {
	n = n.Clone()
	n.Cue = cueText
	n.Sections = Reconcile(n.Sections, cueText)
	return n.Refresh(now)
}

// WithTitle sets the title.
func (n Note) WithTitle(title string, now time.Time) Note {
	n = n.Clone()
	n.Title = title
	return n.Refresh(now)
}

// WithUnit sets the course/unit label.
func (n Note) WithUnit(unit string, now time.Time) Note {
	n = n.Clone()
	n.Unit = unit
	return n.Refresh(now)
}

// WithSummary sets the summary.
func (n Note) WithSummary(summary string, now time.Time) Note {
	n = n.Clone()
	n.Summary = summary
	return n.Refresh(now)
}

// WithTags replaces the tag set. Blank and duplicate tags are dropped.
func (n Note) WithTags(tags []string, now time.Time) Note {
	n = n.Clone()
	n.Tags = NormalizeTags(tags)
	return n.Refresh(now)
}

// WithSections replaces the section sequence as-is.
func (n Note) WithSections(sections []Section, now time.Time) Note {
	n = n.Clone()
	n.Sections = append([]Section(nil), sections...)
	return n.Refresh(now)
}

// WithSectionContent replaces one section's markup. If text is nil the plain
// text is derived from the markup. Reports false if id is unknown.
func (n Note) WithSectionContent(id string, content Content, text *string, now time.Time) (Note, bool) {
	i := n.SectionIndex(id)
	if i < 0 {
		return n, false
	}
	n = n.Clone()
	s := &n.Sections[i]
	s.HTML = content.Markup()
	if text != nil {
		s.Text = *text
	} else {
		s.Text = PlainText(s.HTML)
	}
	return n.Refresh(now), true
}

// WithSectionToggled flips one section's collapsed flag.
func (n Note) WithSectionToggled(id string, now time.Time) (Note, bool) {
	i := n.SectionIndex(id)
	if i < 0 {
		return n, false
	}
	n = n.Clone()
	n.Sections[i].Collapsed = !n.Sections[i].Collapsed
	return n.Refresh(now), true
}

// WithSectionMoved reorders sections. A nil destination leaves the note untouched.
func (n Note) WithSectionMoved(from int, to *int, now time.Time) Note {
	moved := MoveSection(n.Sections, from, to)
	if to == nil || sameOrder(moved, n.Sections) {
		return n
	}
	return n.WithSections(moved, now)
}

// WithoutSection removes one section regardless of its content. The cue
// block is left alone; the next cue edit reconciles against the shorter list.
func (n Note) WithoutSection(id string, now time.Time) (Note, bool) {
	i := n.SectionIndex(id)
	if i < 0 {
		return n, false
	}
	n = n.Clone()
	n.Sections = append(n.Sections[:i], n.Sections[i+1:]...)
	return n.Refresh(now), true
}

// NormalizeTags trims tags and removes blanks and duplicates, keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func sameOrder(a, b []Section) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
