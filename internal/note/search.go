package note

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Matches reports whether every token occurs in the note's serialized
// document, ignoring case. No tokens matches everything.
func (n Note) Matches(tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(n); err != nil {
		return false
	}
	haystack := strings.ToLower(buf.String())
	for _, t := range tokens {
		if !strings.Contains(haystack, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// Filter returns the notes matching query, keeping their order.
func Filter(notes []Note, query string) []Note {
	tokens := Tokenize(query)
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.Matches(tokens) {
			out = append(out, n)
		}
	}
	return out
}
