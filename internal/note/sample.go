package note

import (
	"strings"
	"time"
)

type sampleSpec struct {
	title    string
	unit     string
	tags     []string
	summary  string
	cues     []string
	sections []string
}

var samples = []sampleSpec{
	{
		title:   "Calculus I: The idea of a limit",
		unit:    "Calculus I / Limits",
		tags:    []string{"math", "limits", "calculus"},
		summary: "The limit exists when the left and right limits agree. The function value and the limit can differ.",
		cues:    []string{"Intuitive meaning of a limit", "Left and right limits", "Relation to continuity"},
		sections: []string{
			"<p>The value f(x) approaches as x→a</p>",
			"<ul><li>Left limit lim<sub>x→a-</sub> f(x)</li><li>Right limit lim<sub>x→a+</sub> f(x)</li><li>Equal means the limit exists</li></ul>",
			"<p>Continuous means function value = limit. Discontinuities: removable, jump, infinite</p>",
		},
	},
	{
		title:   "Biology: Photosynthesis overview",
		unit:    "Biology / Plants",
		tags:    []string{"biology", "photosynthesis"},
		summary: "Light reactions produce ATP and NADPH; the Calvin cycle fixes carbon.",
		cues:    []string{"Light reactions", "Calvin cycle", "Limiting factors"},
		sections: []string{
			"<p>Uses light on the thylakoid membrane; photolysis of water releases O<sub>2</sub></p>",
			"<p>RuBisCO fixes CO<sub>2</sub>, forming G3P</p>",
			"<ul><li>Light intensity</li><li>CO<sub>2</sub> concentration</li><li>Temperature</li></ul>",
		},
	},
}

// SampleNotes returns the notes offered to a first-time user.
func SampleNotes(now time.Time) []Note {
	notes := make([]Note, 0, len(samples))
	for _, s := range samples {
		n := New(now)
		n.Title = s.title
		n.Unit = s.unit
		n.Tags = append([]string(nil), s.tags...)
		n.Summary = s.summary
		n = n.WithCue(strings.Join(s.cues, "\n"), now)
		for i, markup := range s.sections {
			n, _ = n.WithSectionContent(n.Sections[i].ID, RawMarkup(markup), nil, now)
		}
		notes = append(notes, n)
	}
	return notes
}
