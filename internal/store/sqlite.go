package store

import (
	"context"
	"database/sql"
	"sync"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/db"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
)

// SQLite stores notes in baseDir/cornell.db.
type SQLite struct {
	baseDir string
	cfg     *config.Config

	mu     sync.Mutex
	db     *sql.DB
	closed bool
	hub    *hub

	// writeMu orders write+publish pairs so subscribers never see an older
	// snapshot after a newer one.
	writeMu sync.Mutex
}

// NewSQLite returns a store that opens baseDir/cornell.db on Open.
func NewSQLite(baseDir string, cfg *config.Config) *SQLite {
	return &SQLite{baseDir: baseDir, cfg: cfg, hub: newHub()}
}

func (s *SQLite) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.NewStoreUnavailable(nil)
	}
	if s.db != nil {
		return nil
	}
	database, err := db.Init(s.baseDir)
	if err != nil {
		return errors.NewStoreUnavailable(err)
	}
	db.ConfigurePool(database, s.cfg)
	s.db = database
	return nil
}

// handle returns the open database or STORE_UNAVAILABLE.
func (s *SQLite) handle() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil || s.closed {
		return nil, errors.NewStoreUnavailable(nil)
	}
	return s.db, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*note.Note, error) {
	database, err := s.handle()
	if err != nil {
		return nil, err
	}
	return db.GetByID(ctx, database, id)
}

func (s *SQLite) List(ctx context.Context) ([]note.Note, error) {
	database, err := s.handle()
	if err != nil {
		return nil, err
	}
	return db.ListAll(ctx, database)
}

func (s *SQLite) Upsert(ctx context.Context, n note.Note) error {
	if n.ID == "" {
		return errors.NewInvalidRequest("note id is required")
	}
	database, err := s.handle()
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := db.Upsert(ctx, database, n); err != nil {
		return err
	}
	s.notify(ctx, database)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	database, err := s.handle()
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := db.Delete(ctx, database, id); err != nil {
		return err
	}
	s.notify(ctx, database)
	return nil
}

func (s *SQLite) Subscribe(ctx context.Context) (<-chan []note.Note, error) {
	database, err := s.handle()
	if err != nil {
		return nil, err
	}
	notes, err := db.ListAll(ctx, database)
	if err != nil {
		return nil, err
	}
	ch, ok := s.hub.subscribe(ctx, notes)
	if !ok {
		return nil, errors.NewStoreUnavailable(nil)
	}
	return ch, nil
}

// notify publishes the current set after a write. A failed reload is not a
// failed write, so it is ignored here and picked up by the next change.
func (s *SQLite) notify(ctx context.Context, database *sql.DB) {
	if !s.hub.active() {
		return
	}
	notes, err := db.ListAll(ctx, database)
	if err != nil {
		return
	}
	s.hub.publish(notes)
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.hub.close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
