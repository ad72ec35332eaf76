package store

import (
	"context"
	"sync"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
)

// Memory keeps notes in a map. Used by tests and `--storage memory`.
type Memory struct {
	mu     sync.Mutex
	notes  map[string]note.Note
	open   bool
	closed bool
	hub    *hub
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		notes: make(map[string]note.Note),
		hub:   newHub(),
	}
}

func (m *Memory) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.NewStoreUnavailable(nil)
	}
	m.open = true
	return nil
}

func (m *Memory) ready() error {
	if !m.open || m.closed {
		return errors.NewStoreUnavailable(nil)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (*note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return nil, err
	}
	n, ok := m.notes[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	c := n.Clone()
	return &c, nil
}

func (m *Memory) List(ctx context.Context) ([]note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.snapshot(), nil
}

func (m *Memory) Upsert(ctx context.Context, n note.Note) error {
	if n.ID == "" {
		return errors.NewInvalidRequest("note id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return err
	}
	m.notes[n.ID] = n.Clone()
	m.hub.publish(m.snapshot())
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return err
	}
	if _, ok := m.notes[id]; !ok {
		return errors.NewNotFound(id)
	}
	delete(m.notes, id)
	m.hub.publish(m.snapshot())
	return nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan []note.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ready(); err != nil {
		return nil, err
	}
	ch, ok := m.hub.subscribe(ctx, m.snapshot())
	if !ok {
		return nil, errors.NewStoreUnavailable(nil)
	}
	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.hub.close()
	return nil
}

// snapshot must be called with mu held.
func (m *Memory) snapshot() []note.Note {
	out := make([]note.Note, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, n.Clone())
	}
	note.SortByUpdated(out)
	return out
}
