// Package store is the persistence port for notes. Each backend stores whole
// note documents keyed by id and fans out the full note set to subscribers
// whenever anything changes.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/note"
)

// Store persists note documents. Writes replace the whole document and the
// last write wins. Implementations are safe for concurrent use.
type Store interface {
	// Open prepares the backend. Calling any other method before Open, or
	// after Close, yields STORE_UNAVAILABLE.
	Open(ctx context.Context) error

	Get(ctx context.Context, id string) (*note.Note, error)

	// List returns every note, most recently updated first.
	List(ctx context.Context) ([]note.Note, error)

	Upsert(ctx context.Context, n note.Note) error

	// Delete removes a note. Missing ids report NOT_FOUND.
	Delete(ctx context.Context, id string) error

	// Subscribe returns a channel that receives the current note set
	// immediately and again after every change. The channel holds at most one
	// pending snapshot; a slow reader only sees the latest. It closes when ctx
	// ends or the store closes.
	Subscribe(ctx context.Context) (<-chan []note.Note, error)

	Close() error
}

// New builds the backend selected by cfg.Storage. baseDir is the Cornell home
// directory (~/.cornell) used for the database and the default notes dir.
func New(cfg *config.Config, baseDir string, logger zerolog.Logger) (Store, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	switch cfg.Storage {
	case "", config.StorageSQLite:
		return NewSQLite(baseDir, cfg), nil
	case config.StorageDir:
		dir := cfg.NotesDir
		if dir == "" {
			dir = filepath.Join(baseDir, "notes")
		}
		return NewDir(dir, logger), nil
	case config.StorageMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func cloneAll(notes []note.Note) []note.Note {
	out := make([]note.Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}
