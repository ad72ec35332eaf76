package note

// EmptyMarkup is the markup an editor produces for a blank section.
const EmptyMarkup = "<p></p>"

// Content is section markup at the boundary: either raw markup or Empty.
type Content struct {
	markup string
	set    bool
}

// Empty is content with no markup.
var Empty = Content{}

// RawMarkup wraps a markup string. An empty string is Empty.
func RawMarkup(markup string) Content {
	if markup == "" {
		return Empty
	}
	return Content{markup: markup, set: true}
}

// ContentFrom normalizes an arbitrary decoded value. Anything that is not a
// string becomes Empty.
func ContentFrom(v any) Content {
	if s, ok := v.(string); ok {
		return RawMarkup(s)
	}
	return Empty
}

// IsEmpty reports whether the content carries no markup at all.
// Markup that renders to no text (an empty paragraph) is not Empty; use
// PlainText for that.
func (c Content) IsEmpty() bool {
	return !c.set
}

// Markup returns the markup string, or EmptyMarkup for Empty.
func (c Content) Markup() string {
	if !c.set {
		return EmptyMarkup
	}
	return c.markup
}
