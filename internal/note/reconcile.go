package note

import "regexp"

// cueSplit treats any run of newlines as one separator.
var cueSplit = regexp.MustCompile(`\n+`)

// CueLines splits a cue block into lines. An empty block yields one empty line.
func CueLines(cueText string) []string {
	return cueSplit.Split(cueText, -1)
}

// Reconcile maps a new cue block onto the previous sections by position.
//
// Line i keeps the identity, content and collapsed flag of prev[i] and takes
// the line as its cue; lines past the end of prev get fresh empty sections.
// Sections left over after the last line are dropped if their content has no
// text, otherwise they are appended untitled in their original order.
func Reconcile(prev []Section, cueText string) []Section {
	lines := CueLines(cueText)

	result := make([]Section, 0, max(len(lines), len(prev)))
	for i, line := range lines {
		if i < len(prev) {
			s := prev[i]
			s.Cue = line
			result = append(result, s)
			continue
		}
		result = append(result, Section{
			ID:   NewID(),
			Cue:  line,
			HTML: EmptyMarkup,
		})
	}

	for i := len(lines); i < len(prev); i++ {
		s := prev[i]
		if PlainText(s.HTML) == "" {
			continue
		}
		s.Cue = ""
		result = append(result, s)
	}

	return result
}
