package ops

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/cornell/internal/note"
)

// markdown renders summaries. Raw HTML in the source is escaped (goldmark's
// default), so a summary cannot inject markup into a page.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts markdown text to HTML. On failure the text is
// returned escaped.
func RenderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
section { border-left: 3px solid #ccc; padding-left: 1rem; margin: 1rem 0; }
.meta { color: #666; }
</style>
</head>
<body>
<article class="cornell-note">
<header>
<h1>{{.Title}}</h1>
{{- if .Unit}}
<p class="meta unit">{{.Unit}}</p>
{{- end}}
{{- if .Tags}}
<p class="meta tags">{{range $i, $t := .Tags}}{{if $i}}, {{end}}#{{$t}}{{end}}</p>
{{- end}}
</header>
<main class="notes">
{{.Notes}}
</main>
{{- if .Summary}}
<footer class="summary">
<h2>Summary</h2>
{{.Summary}}
</footer>
{{- end}}
</article>
</body>
</html>
`))

type documentData struct {
	Title   string
	Unit    string
	Tags    []string
	Notes   template.HTML
	Summary template.HTML
}

// RenderDocument renders a note as a standalone HTML page: the flattened
// section markup followed by the summary rendered from markdown.
func RenderDocument(n note.Note) ([]byte, error) {
	data := documentData{
		Title: n.Title,
		Unit:  n.Unit,
		Tags:  n.Tags,
		// Section markup is the editor's output and is embedded as-is.
		Notes: template.HTML(n.NotesHTML),
	}
	if n.Summary != "" {
		data.Summary = RenderMarkdown(n.Summary)
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
