package autosave

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// saveTimeout bounds a single deferred write.
const saveTimeout = 10 * time.Second

// Saver persists the latest snapshot of each note after a quiet interval.
// Writes are fire-and-forget: a failure is reported through OnError and the
// caller's in-memory state is left alone. There is no retry; the next edit
// schedules a fresh write.
type Saver struct {
	store     store.Store
	debouncer *Debouncer
	logger    zerolog.Logger

	// OnError is called from the saving goroutine for every failed write.
	OnError func(noteID string, err error)

	// OnSaved is called after a successful write.
	OnSaved func(noteID string)
}

// NewSaver returns a Saver that writes to s after delay.
func NewSaver(s store.Store, delay time.Duration, logger zerolog.Logger) *Saver {
	return &Saver{
		store:     s,
		debouncer: NewDebouncer(delay),
		logger:    logger.With().Str("component", "autosave").Logger(),
	}
}

// Save schedules n to be written. A newer Save for the same note before the
// interval elapses replaces it.
func (s *Saver) Save(n note.Note) {
	snapshot := n.Clone()
	if !s.debouncer.Schedule(n.ID, func() { s.write(snapshot) }) {
		s.logger.Debug().Str("note_id", n.ID).Msg("saver stopped, dropping write")
	}
}

// Pending reports whether a write for id is scheduled or still running.
func (s *Saver) Pending(id string) bool {
	return s.debouncer.Busy(id)
}

// Cancel drops a pending write and waits out one already running, so a
// delete that follows cannot be undone by a late upsert.
func (s *Saver) Cancel(id string) {
	s.debouncer.Cancel(id)
}

// Flush writes every pending snapshot now.
func (s *Saver) Flush() {
	s.debouncer.Flush()
}

// Close flushes pending writes and stops accepting new ones.
func (s *Saver) Close() {
	s.debouncer.Flush()
	s.debouncer.Stop()
}

func (s *Saver) write(n note.Note) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.store.Upsert(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("note_id", n.ID).Msg("autosave failed")
		if s.OnError != nil {
			s.OnError(n.ID, err)
		}
		return
	}
	s.logger.Debug().Str("note_id", n.ID).Int64("updated_at", n.UpdatedAt).Msg("autosaved")
	if s.OnSaved != nil {
		s.OnSaved(n.ID)
	}
}
