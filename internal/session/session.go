// Package session holds the working copy of all notes for an interactive
// client. Edits apply to memory immediately and reach the store through a
// debounced autosave; snapshots from the store flow back in for notes with no
// local edits waiting to be written.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cornell/internal/autosave"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// Options configures a Session.
type Options struct {
	// SkipSamples disables seeding sample notes into an empty store.
	SkipSamples bool

	Logger zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is the aggregate root over every note.
type Session struct {
	store       store.Store
	saver       *autosave.Saver
	logger      zerolog.Logger
	now         func() time.Time
	skipSamples bool

	mu    sync.Mutex
	notes map[string]note.Note

	// unsaved marks notes whose latest local version has not reached the
	// store, including ones whose last write failed.
	unsaved map[string]bool

	// deleted keeps snapshots from reviving notes deleted here. The value
	// turns true once the store delete has succeeded; the entry is dropped
	// when a snapshot without the note arrives after that.
	deleted map[string]bool
	lastErr error
	opened  bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New wires a session to its store and saver. Save failures reported by the
// saver are recorded as the session's last error.
func New(s store.Store, saver *autosave.Saver, opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sess := &Session{
		store:       s,
		saver:       saver,
		logger:      opts.Logger.With().Str("component", "session").Logger(),
		now:         now,
		skipSamples: opts.SkipSamples,
		notes:       make(map[string]note.Note),
		unsaved:     make(map[string]bool),
		deleted:     make(map[string]bool),
	}
	saver.OnError = sess.recordSaveError
	saver.OnSaved = sess.clearSaveError
	return sess
}

// Open loads every note, seeds the samples into an empty store and starts
// following store changes.
func (s *Session) Open(ctx context.Context) error {
	if err := s.store.Open(ctx); err != nil {
		return err
	}

	// The subscription lives until Close, not until the caller's ctx ends.
	subCtx, cancel := context.WithCancel(context.Background())
	updates, err := s.store.Subscribe(subCtx)
	if err != nil {
		cancel()
		return err
	}
	notes, ok := <-updates
	if !ok {
		cancel()
		return errors.NewStoreUnavailable(nil)
	}

	if len(notes) == 0 && !s.skipSamples {
		for _, n := range note.SampleNotes(s.now()) {
			if err := s.store.Upsert(ctx, n); err != nil {
				cancel()
				return err
			}
			notes = append(notes, n)
		}
		s.logger.Info().Int("count", len(notes)).Msg("seeded sample notes")
	}

	s.mu.Lock()
	for _, n := range notes {
		s.notes[n.ID] = n
	}
	s.opened = true
	s.mu.Unlock()

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.follow(updates)

	return nil
}

// Close writes pending edits and stops following the store. The store itself
// stays open; its owner closes it.
func (s *Session) Close() error {
	s.saver.Close()
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	return nil
}

func (s *Session) follow(updates <-chan []note.Note) {
	defer close(s.done)
	for snapshot := range updates {
		s.applyRemote(snapshot)
	}
}

// applyRemote replaces the working copy with a store snapshot, except for
// notes with local changes the store has not accepted yet. Those keep the
// local version, which overwrites the store on the next successful write.
func (s *Session) applyRemote(snapshot []note.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]note.Note, len(snapshot))
	for _, n := range snapshot {
		if _, gone := s.deleted[n.ID]; gone {
			continue
		}
		if local, ok := s.notes[n.ID]; ok && s.dirty(n.ID) {
			next[n.ID] = local
			continue
		}
		next[n.ID] = n
	}
	for id, local := range s.notes {
		if _, ok := next[id]; !ok && s.dirty(id) {
			next[id] = local
		}
	}
	for id, confirmed := range s.deleted {
		if confirmed && !containsNote(snapshot, id) {
			delete(s.deleted, id)
		}
	}
	s.notes = next
}

func containsNote(notes []note.Note, id string) bool {
	for _, n := range notes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// dirty must be called with mu held.
func (s *Session) dirty(id string) bool {
	return s.unsaved[id] || s.saver.Pending(id)
}

// Notes returns every note, most recently updated first.
func (s *Session) Notes() []note.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

// Filter returns the notes whose document contains every token of query.
func (s *Session) Filter(query string) []note.Note {
	return note.Filter(s.Notes(), query)
}

// Get returns one note.
func (s *Session) Get(id string) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return note.Note{}, errors.NewNotFound(id)
	}
	return n.Clone(), nil
}

// Create adds an empty note and schedules it for saving.
func (s *Session) Create() (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return note.Note{}, errors.NewStoreUnavailable(nil)
	}
	n := note.New(s.now())
	s.notes[n.ID] = n
	s.unsaved[n.ID] = true
	s.saver.Save(n)
	return n.Clone(), nil
}

// Delete removes a note from memory and from the store right away. Any
// pending autosave for it is dropped, and a write already under way finishes
// before the store delete so it cannot bring the note back.
func (s *Session) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.notes[id]; !ok {
		s.mu.Unlock()
		return errors.NewNotFound(id)
	}
	delete(s.notes, id)
	delete(s.unsaved, id)
	s.deleted[id] = false
	s.mu.Unlock()

	// Without mu: the running write reports back through the session.
	s.saver.Cancel(id)

	// The note may never have reached the store.
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, errors.ErrNotFound) {
		s.mu.Lock()
		delete(s.deleted, id)
		s.mu.Unlock()
		s.recordSaveError(id, err)
		return err
	}

	s.mu.Lock()
	if _, ok := s.deleted[id]; ok {
		s.deleted[id] = true
	}
	s.mu.Unlock()
	return nil
}

// SetTitle renames a note.
func (s *Session) SetTitle(id, title string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		return n.WithTitle(title, now), true, nil
	})
}

// SetUnit sets the course/unit label.
func (s *Session) SetUnit(id, unit string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		return n.WithUnit(unit, now), true, nil
	})
}

// SetCue replaces the cue block and reconciles the sections.
func (s *Session) SetCue(id, cueText string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		return n.WithCue(cueText, now), true, nil
	})
}

// SetSummary sets the summary.
func (s *Session) SetSummary(id, summary string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		return n.WithSummary(summary, now), true, nil
	})
}

// SetTags replaces the tag set.
func (s *Session) SetTags(id string, tags []string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		return n.WithTags(tags, now), true, nil
	})
}

// SetSectionContent replaces one section's markup. A nil text is derived
// from the markup.
func (s *Session) SetSectionContent(id, sectionID string, content note.Content, text *string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		next, ok := n.WithSectionContent(sectionID, content, text, now)
		if !ok {
			return n, false, errors.NewSectionNotFound(id, sectionID)
		}
		return next, true, nil
	})
}

// ToggleSection flips a section's collapsed flag.
func (s *Session) ToggleSection(id, sectionID string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		next, ok := n.WithSectionToggled(sectionID, now)
		if !ok {
			return n, false, errors.NewSectionNotFound(id, sectionID)
		}
		return next, true, nil
	})
}

// MoveSection applies a finished drag. A nil destination is a cancelled drag
// and changes nothing.
func (s *Session) MoveSection(id string, from int, to *int) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		next := n.WithSectionMoved(from, to, now)
		return next, !sameOrder(next, n), nil
	})
}

// DeleteSection removes a section whatever its content.
func (s *Session) DeleteSection(id, sectionID string) (note.Note, error) {
	return s.update(id, func(n note.Note, now time.Time) (note.Note, bool, error) {
		next, ok := n.WithoutSection(sectionID, now)
		if !ok {
			return n, false, errors.NewSectionNotFound(id, sectionID)
		}
		return next, true, nil
	})
}

// LastError returns the most recent save failure, or nil once a later save
// succeeds.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Flush writes pending edits now.
func (s *Session) Flush() {
	s.saver.Flush()
}

// update applies fn to the working copy and schedules the result for saving
// when fn reports a change.
func (s *Session) update(id string, fn func(note.Note, time.Time) (note.Note, bool, error)) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.notes[id]
	if !ok {
		return note.Note{}, errors.NewNotFound(id)
	}
	next, changed, err := fn(cur, s.now())
	if err != nil {
		return note.Note{}, err
	}
	if !changed {
		return cur.Clone(), nil
	}
	s.notes[id] = next
	s.unsaved[id] = true
	s.saver.Save(next)
	return next.Clone(), nil
}

func (s *Session) recordSaveError(id string, err error) {
	s.logger.Warn().Err(err).Str("note_id", id).Msg("note not saved")
	s.mu.Lock()
	if _, gone := s.deleted[id]; gone {
		s.mu.Unlock()
		return
	}
	if _, ok := s.notes[id]; ok {
		s.unsaved[id] = true
	}
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) clearSaveError(id string) {
	s.mu.Lock()
	delete(s.unsaved, id)
	s.lastErr = nil
	s.mu.Unlock()
}

// sorted must be called with mu held.
func (s *Session) sorted() []note.Note {
	out := make([]note.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n.Clone())
	}
	note.SortByUpdated(out)
	return out
}

func sameOrder(a, b note.Note) bool {
	if len(a.Sections) != len(b.Sections) {
		return false
	}
	for i := range a.Sections {
		if a.Sections[i].ID != b.Sections[i].ID {
			return false
		}
	}
	return true
}
