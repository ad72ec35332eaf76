package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"sqlite", func(t *testing.T) Store { return NewSQLite(t.TempDir(), nil) }},
		{"dir", func(t *testing.T) Store { return NewDir(filepath.Join(t.TempDir(), "notes"), zerolog.Nop()) }},
	}
}

func openStore(t *testing.T, b backend) Store {
	t.Helper()
	s := b.open(t)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testNote(t *testing.T, title string, updated int64) note.Note {
	t.Helper()
	at := time.UnixMilli(updated)
	n := note.New(at)
	n = n.WithTitle(title, at)
	n = n.WithCue("One\nTwo", at)
	return n
}

// receive waits for the next snapshot or fails.
func receive(t *testing.T, ch <-chan []note.Note) []note.Note {
	t.Helper()
	select {
	case notes, ok := <-ch:
		require.True(t, ok, "subscription closed unexpectedly")
		return notes
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func ids(notes []note.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestStore_CRUD(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openStore(t, b)
			ctx := context.Background()

			n := testNote(t, "Limits", 1000)
			require.NoError(t, s.Upsert(ctx, n))

			got, err := s.Get(ctx, n.ID)
			require.NoError(t, err)
			assert.Equal(t, "Limits", got.Title)
			assert.Equal(t, n.Sections, got.Sections)
			assert.Equal(t, n.NotesText, got.NotesText)

			n = n.WithTitle("Limits II", time.UnixMilli(2000))
			require.NoError(t, s.Upsert(ctx, n))
			got, err = s.Get(ctx, n.ID)
			require.NoError(t, err)
			assert.Equal(t, "Limits II", got.Title)

			require.NoError(t, s.Delete(ctx, n.ID))
			_, err = s.Get(ctx, n.ID)
			assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

			err = s.Delete(ctx, n.ID)
			assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
		})
	}
}

func TestStore_ListOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openStore(t, b)
			ctx := context.Background()

			a := testNote(t, "a", 1000)
			c := testNote(t, "c", 3000)
			m := testNote(t, "m", 2000)
			for _, n := range []note.Note{a, c, m} {
				require.NoError(t, s.Upsert(ctx, n))
			}

			notes, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{c.ID, m.ID, a.ID}, ids(notes))
		})
	}
}

func TestStore_ClosedIsUnavailable(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			ctx := context.Background()

			_, err := s.List(ctx)
			assert.True(t, errors.Is(err, errors.ErrStoreUnavailable), "before open: %v", err)

			require.NoError(t, s.Open(ctx))
			require.NoError(t, s.Close())

			err = s.Upsert(ctx, testNote(t, "x", 1))
			assert.True(t, errors.Is(err, errors.ErrStoreUnavailable), "after close: %v", err)
			assert.NoError(t, s.Close(), "Close is idempotent")
		})
	}
}

func TestStore_SubscribeReceivesInitialAndChanges(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openStore(t, b)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			first := testNote(t, "first", 1000)
			require.NoError(t, s.Upsert(ctx, first))

			ch, err := s.Subscribe(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{first.ID}, ids(receive(t, ch)))

			second := testNote(t, "second", 2000)
			require.NoError(t, s.Upsert(ctx, second))

			// The dir watcher may republish the same set; wait for the
			// snapshot that includes the second note.
			require.Eventually(t, func() bool {
				select {
				case notes := <-ch:
					return len(notes) == 2 && notes[0].ID == second.ID
				default:
					return false
				}
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestStore_SubscriptionClosesWithContext(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := openStore(t, b)
			ctx, cancel := context.WithCancel(context.Background())

			ch, err := s.Subscribe(ctx)
			require.NoError(t, err)
			receive(t, ch)

			cancel()
			require.Eventually(t, func() bool {
				select {
				case _, ok := <-ch:
					return !ok
				default:
					return false
				}
			}, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestStore_SubscriptionClosesWithStore(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Open(context.Background()))

	ch, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	receive(t, ch)

	require.NoError(t, s.Close())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestHub_KeepsOnlyLatestSnapshot(t *testing.T) {
	h := newHub()
	ch, ok := h.subscribe(context.Background(), nil)
	require.True(t, ok)

	a := testNote(t, "a", 1)
	b := testNote(t, "b", 2)
	h.publish([]note.Note{a})
	h.publish([]note.Note{b, a})

	got := receive(t, ch)
	assert.Equal(t, []string{b.ID, a.ID}, ids(got))

	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %v", ids(extra))
	default:
	}
	h.close()
}

func TestHub_SnapshotsAreIsolated(t *testing.T) {
	h := newHub()
	ch1, _ := h.subscribe(context.Background(), nil)
	ch2, _ := h.subscribe(context.Background(), nil)
	receive(t, ch1)
	receive(t, ch2)

	h.publish([]note.Note{testNote(t, "a", 1)})
	s1 := receive(t, ch1)
	s2 := receive(t, ch2)

	s1[0].Sections[0].Cue = "mutated"
	assert.Equal(t, "One", s2[0].Sections[0].Cue)
	h.close()
}

func TestDir_SeesExternalWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared")
	a := NewDir(dir, zerolog.Nop())
	b := NewDir(dir, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, a.Open(ctx))
	defer a.Close()
	require.NoError(t, b.Open(ctx))
	defer b.Close()

	ch, err := a.Subscribe(ctx)
	require.NoError(t, err)
	assert.Empty(t, receive(t, ch))

	// Written through b; a only learns about it from the watcher.
	n := testNote(t, "from b", 1000)
	require.NoError(t, b.Upsert(ctx, n))

	require.Eventually(t, func() bool {
		select {
		case notes := <-ch:
			return len(notes) == 1 && notes[0].ID == n.ID
		default:
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestDir_SkipsCorruptAndTempFiles(t *testing.T) {
	s := NewDir(filepath.Join(t.TempDir(), "notes"), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	n := testNote(t, "ok", 1000)
	require.NoError(t, s.Upsert(ctx, n))
	require.NoError(t, os.WriteFile(filepath.Join(s.Path(), "broken.json"), []byte("{not json"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Path(), tempFilePrefix+"x.json"), []byte("{}"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(s.Path(), "readme.txt"), []byte("hi"), 0600))

	notes, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{n.ID}, ids(notes))
}

func TestDir_RejectsPathLikeIDs(t *testing.T) {
	s := NewDir(filepath.Join(t.TempDir(), "notes"), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	for _, id := range []string{"../escape", "a/b", "", "x.json"} {
		_, err := s.Get(ctx, id)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "id %q: %v", id, err)
	}
}

func TestDir_WritesAtomically(t *testing.T) {
	s := NewDir(filepath.Join(t.TempDir(), "notes"), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	n := testNote(t, "atomic", 1000)
	require.NoError(t, s.Upsert(ctx, n))

	entries, err := os.ReadDir(s.Path())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, n.ID+".json", entries[0].Name())

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNew_SelectsBackend(t *testing.T) {
	base := t.TempDir()

	s, err := New(&config.Config{Storage: config.StorageMemory}, base, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(&config.Config{Storage: config.StorageSQLite}, base, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)

	s, err = New(&config.Config{Storage: config.StorageDir}, base, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &Dir{}, s)
	assert.Equal(t, filepath.Join(base, "notes"), s.(*Dir).Path())

	_, err = New(&config.Config{Storage: "redis"}, base, zerolog.Nop())
	assert.Error(t, err)
}
