package note

// MoveSection removes the section at from and reinserts it at *to.
// A nil destination (cancelled drag) or an out-of-range index returns the
// input unchanged.
func MoveSection(sections []Section, from int, to *int) []Section {
	if to == nil {
		return sections
	}
	if from < 0 || from >= len(sections) || *to < 0 || *to >= len(sections) {
		return sections
	}
	if from == *to {
		return sections
	}

	out := make([]Section, 0, len(sections))
	out = append(out, sections[:from]...)
	out = append(out, sections[from+1:]...)

	moved := sections[from]
	out = append(out, Section{})
	copy(out[*to+1:], out[*to:])
	out[*to] = moved
	return out
}
