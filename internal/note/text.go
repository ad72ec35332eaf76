package note

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tagRegex is the fallback stripper when markup cannot be parsed.
var tagRegex = regexp.MustCompile(`<[^>]*>`)

// PlainText returns the text content of markup with all tags stripped,
// concatenating text nodes in document order the way a DOM's textContent
// does. An empty paragraph yields "".
func PlainText(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return strings.TrimSpace(html.UnescapeString(tagRegex.ReplaceAllString(markup, "")))
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

// Tokenize lowercases a query and splits it on whitespace.
func Tokenize(q string) []string {
	return strings.Fields(strings.ToLower(q))
}
