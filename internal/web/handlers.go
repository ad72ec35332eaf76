package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/ops"
	"github.com/hpungsan/cornell/internal/session"
)

// maxBodyBytes bounds JSON and form bodies. Section markup may carry inline images.
const maxBodyBytes = 16 << 20

// Handlers contains HTTP route handlers for the web UI and its JSON API.
// Every edit goes through the session, which autosaves in the background.
type Handlers struct {
	sess     *session.Session
	renderer *Renderer
}

func (h *Handlers) page(title string) PageData {
	data := PageData{Title: title, Version: h.renderer.version}
	if err := h.sess.LastError(); err != nil {
		data.SaveError = errors.As(err).Message
	}
	return data
}

// Pages

// HandleList handles GET /notes: every note, or those matching ?q=.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: h.page("Notes"),
		Items:    summaries(h.notes(query)),
		Query:    query,
		HasQuery: query != "",
	})
}

// HandleDetail handles GET /notes/{id}: view and edit a single note.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	n, err := h.sess.Get(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	sections := make([]SectionView, len(n.Sections))
	for i, s := range n.Sections {
		sections[i] = SectionView{
			Index: i,
			ID:    s.ID,
			Cue:   s.Cue,
			// Section markup is the editor's own output.
			HTML:      template.HTML(note.RawMarkup(s.HTML).Markup()),
			Collapsed: s.Collapsed,
		}
	}

	var summary template.HTML
	if n.Summary != "" {
		summary = ops.RenderMarkdown(n.Summary)
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: h.page(n.Title),
		Note:     n,
		Sections: sections,
		Summary:  summary,
		Tags:     strings.Join(n.Tags, ", "),
	})
}

// HandleCreate handles POST /notes: create a note and open it.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	n, err := h.sess.Create()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/notes/"+n.ID)
}

// HandleSave handles POST /notes/{id}: the detail page's field form.
// Only fields present in the form are changed.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	id := r.PathValue("id")
	req := patchRequest{}
	if r.PostForm.Has("title") {
		req.Title = ptr(r.PostForm.Get("title"))
	}
	if r.PostForm.Has("unit") {
		req.Unit = ptr(r.PostForm.Get("unit"))
	}
	if r.PostForm.Has("cue") {
		// Browsers submit textarea line breaks as CRLF.
		req.Cue = ptr(strings.ReplaceAll(r.PostForm.Get("cue"), "\r\n", "\n"))
	}
	if r.PostForm.Has("summary") {
		req.Summary = ptr(strings.ReplaceAll(r.PostForm.Get("summary"), "\r\n", "\n"))
	}
	if r.PostForm.Has("tags") {
		tags := strings.Split(r.PostForm.Get("tags"), ",")
		req.Tags = &tags
	}

	if _, err := h.apply(id, req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/notes/"+id)
}

// HandleDelete handles DELETE /notes/{id} and POST /notes/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.sess.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	redirect(w, r, "/notes")
}

// JSON API

type patchRequest struct {
	Title   *string   `json:"title,omitempty"`
	Unit    *string   `json:"unit,omitempty"`
	Cue     *string   `json:"cue,omitempty"`
	Summary *string   `json:"summary,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

type cueRequest struct {
	Cue string `json:"cue"`
}

// sectionRequest carries editor output. HTML may be any JSON value; only a
// string counts as markup.
type sectionRequest struct {
	HTML any     `json:"html"`
	Text *string `json:"text,omitempty"`
}

type moveRequest struct {
	From int  `json:"from"`
	To   *int `json:"to"`
}

// APIList handles GET /api/notes.
func (h *Handlers) APIList(w http.ResponseWriter, r *http.Request) {
	items := summaries(h.notes(strings.TrimSpace(r.URL.Query().Get("q"))))
	renderJSON(w, http.StatusOK, map[string]any{"items": items})
}

// APICreate handles POST /api/notes.
func (h *Handlers) APICreate(w http.ResponseWriter, r *http.Request) {
	n, err := h.sess.Create()
	h.respond(w, r, http.StatusCreated, n, err)
}

// APIGet handles GET /api/notes/{id}.
func (h *Handlers) APIGet(w http.ResponseWriter, r *http.Request) {
	n, err := h.sess.Get(r.PathValue("id"))
	h.respond(w, r, http.StatusOK, n, err)
}

// APIPatch handles PATCH /api/notes/{id}.
func (h *Handlers) APIPatch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if req == (patchRequest{}) {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("at least one field must be provided"))
		return
	}
	n, err := h.apply(r.PathValue("id"), req)
	h.respond(w, r, http.StatusOK, n, err)
}

// APISetCue handles PUT /api/notes/{id}/cue.
func (h *Handlers) APISetCue(w http.ResponseWriter, r *http.Request) {
	var req cueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	n, err := h.sess.SetCue(r.PathValue("id"), req.Cue)
	h.respond(w, r, http.StatusOK, n, err)
}

// APIEditSection handles PUT /api/notes/{id}/sections/{sid}.
func (h *Handlers) APIEditSection(w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	n, err := h.sess.SetSectionContent(r.PathValue("id"), r.PathValue("sid"), note.ContentFrom(req.HTML), req.Text)
	h.respond(w, r, http.StatusOK, n, err)
}

// APIToggleSection handles POST /api/notes/{id}/sections/{sid}/toggle.
func (h *Handlers) APIToggleSection(w http.ResponseWriter, r *http.Request) {
	n, err := h.sess.ToggleSection(r.PathValue("id"), r.PathValue("sid"))
	h.respond(w, r, http.StatusOK, n, err)
}

// APIDeleteSection handles DELETE /api/notes/{id}/sections/{sid}.
func (h *Handlers) APIDeleteSection(w http.ResponseWriter, r *http.Request) {
	n, err := h.sess.DeleteSection(r.PathValue("id"), r.PathValue("sid"))
	h.respond(w, r, http.StatusOK, n, err)
}

// APIMoveSection handles POST /api/notes/{id}/move. A missing "to" is a
// cancelled drag.
func (h *Handlers) APIMoveSection(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	n, err := h.sess.MoveSection(r.PathValue("id"), req.From, req.To)
	h.respond(w, r, http.StatusOK, n, err)
}

// APIDelete handles DELETE /api/notes/{id}.
func (h *Handlers) APIDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.sess.Delete(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

// APIStatus handles GET /api/status: whether every edit has been saved.
func (h *Handlers) APIStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"saved": true}
	if err := h.sess.LastError(); err != nil {
		nErr := errors.As(err)
		status["saved"] = false
		status["error"] = map[string]any{"code": string(nErr.Code), "message": publicMessage(nErr)}
	}
	renderJSON(w, http.StatusOK, status)
}

// Helpers

func (h *Handlers) notes(query string) []note.Note {
	if query == "" {
		return h.sess.Notes()
	}
	return h.sess.Filter(query)
}

// apply runs the requested field changes in order and returns the final note.
func (h *Handlers) apply(id string, req patchRequest) (note.Note, error) {
	n, err := h.sess.Get(id)
	if err != nil {
		return note.Note{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return note.Note{}, errors.NewInvalidRequest("title must not be empty")
		}
		if n, err = h.sess.SetTitle(id, title); err != nil {
			return note.Note{}, err
		}
	}
	if req.Unit != nil {
		if n, err = h.sess.SetUnit(id, *req.Unit); err != nil {
			return note.Note{}, err
		}
	}
	if req.Cue != nil {
		if n, err = h.sess.SetCue(id, *req.Cue); err != nil {
			return note.Note{}, err
		}
	}
	if req.Summary != nil {
		if n, err = h.sess.SetSummary(id, *req.Summary); err != nil {
			return note.Note{}, err
		}
	}
	if req.Tags != nil {
		if n, err = h.sess.SetTags(id, *req.Tags); err != nil {
			return note.Note{}, err
		}
	}
	return n, nil
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int, n note.Note, err error) {
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, status, n)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// redirect sends the browser to target. HTMX requests get an HX-Redirect
// header, JSON clients a small body.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, map[string]any{"location": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func summaries(notes []note.Note) []note.NoteSummary {
	items := make([]note.NoteSummary, len(notes))
	for i, n := range notes {
		items[i] = n.ToSummary()
	}
	return items
}

func ptr[T any](v T) *T { return &v }
