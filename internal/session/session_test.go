package session

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/cornell/internal/autosave"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// clock is a manually advanced time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fixture struct {
	sess  *Session
	store *store.Memory
	saver *autosave.Saver
}

func newFixture(t *testing.T, delay time.Duration, opts Options) fixture {
	t.Helper()
	mem := store.NewMemory()
	saver := autosave.NewSaver(mem, delay, zerolog.Nop())
	if opts.Now == nil {
		c := &clock{t: time.UnixMilli(1_700_000_000_000)}
		opts.Now = c.Now
	}
	sess := New(mem, saver, opts)
	require.NoError(t, sess.Open(context.Background()))
	t.Cleanup(func() {
		_ = sess.Close()
		_ = mem.Close()
	})
	return fixture{sess: sess, store: mem, saver: saver}
}

func TestOpen_SeedsSamplesIntoEmptyStore(t *testing.T) {
	f := newFixture(t, time.Hour, Options{})

	notes := f.sess.Notes()
	require.NotEmpty(t, notes)

	stored, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, len(notes))
}

func TestOpen_SkipSamples(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})
	assert.Empty(t, f.sess.Notes())
}

func TestOpen_DoesNotSeedNonEmptyStore(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Open(ctx))
	existing := note.New(time.UnixMilli(1))
	require.NoError(t, mem.Upsert(ctx, existing))

	sess := New(mem, autosave.NewSaver(mem, time.Hour, zerolog.Nop()), Options{})
	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	notes := sess.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, existing.ID, notes[0].ID)
}

func TestCreateAndEdit_DebouncedSave(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})
	ctx := context.Background()

	n, err := f.sess.Create()
	require.NoError(t, err)
	assert.Equal(t, note.DefaultTitle, n.Title)

	_, err = f.sess.SetTitle(n.ID, "Derivatives")
	require.NoError(t, err)
	n, err = f.sess.SetCue(n.ID, "Definition\nPower rule")
	require.NoError(t, err)
	require.Len(t, n.Sections, 2)

	// Nothing written until the quiet interval elapses.
	_, err = f.store.Get(ctx, n.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.True(t, f.saver.Pending(n.ID))

	f.sess.Flush()
	stored, err := f.store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Derivatives", stored.Title)
	assert.Len(t, stored.Sections, 2)
}

func TestSectionOperations(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})

	n, err := f.sess.Create()
	require.NoError(t, err)
	n, err = f.sess.SetCue(n.ID, "A\nB\nC")
	require.NoError(t, err)
	a, b, c := n.Sections[0], n.Sections[1], n.Sections[2]

	n, err = f.sess.SetSectionContent(n.ID, b.ID, note.RawMarkup("<p>bee</p>"), nil)
	require.NoError(t, err)
	assert.Equal(t, "bee", n.Sections[1].Text)
	assert.Contains(t, n.NotesText, "B\nbee")

	n, err = f.sess.ToggleSection(n.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, n.Sections[0].Collapsed)

	to := 2
	n, err = f.sess.MoveSection(n.ID, 0, &to)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, sectionIDs(n))

	n, err = f.sess.DeleteSection(n.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID}, sectionIDs(n))

	_, err = f.sess.ToggleSection(n.ID, "missing")
	assert.True(t, errors.Is(err, errors.ErrSectionNotFound))

	_, err = f.sess.SetTitle("missing", "x")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMoveSection_CancelledDragIsNoop(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})

	n, err := f.sess.Create()
	require.NoError(t, err)
	n, err = f.sess.SetCue(n.ID, "A\nB")
	require.NoError(t, err)
	f.sess.Flush()

	got, err := f.sess.MoveSection(n.ID, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, n.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, sectionIDs(n), sectionIDs(got))
	assert.False(t, f.saver.Pending(n.ID), "cancelled drag must not schedule a save")
}

func TestSetters(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})

	n, err := f.sess.Create()
	require.NoError(t, err)

	_, err = f.sess.SetUnit(n.ID, "MATH 101")
	require.NoError(t, err)
	_, err = f.sess.SetSummary(n.ID, "Limits describe behaviour near a point.")
	require.NoError(t, err)
	n, err = f.sess.SetTags(n.ID, []string{"math", " math ", "", "exam"})
	require.NoError(t, err)

	assert.Equal(t, "MATH 101", n.Unit)
	assert.Equal(t, "Limits describe behaviour near a point.", n.Summary)
	assert.Equal(t, []string{"math", "exam"}, n.Tags)
}

func TestFilter(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})

	a, _ := f.sess.Create()
	_, _ = f.sess.SetTitle(a.ID, "Photosynthesis")
	b, _ := f.sess.Create()
	_, _ = f.sess.SetTitle(b.ID, "Limits")

	got := f.sess.Filter("photo")
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Len(t, f.sess.Filter(""), 2)
}

func TestNotes_MostRecentFirst(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})

	a, _ := f.sess.Create()
	b, _ := f.sess.Create()
	_, _ = f.sess.SetTitle(a.ID, "touched last")

	notes := f.sess.Notes()
	require.Len(t, notes, 2)
	assert.Equal(t, a.ID, notes[0].ID)
	assert.Equal(t, b.ID, notes[1].ID)
}

func TestDelete_RemovesImmediatelyAndCancelsSave(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})
	ctx := context.Background()

	n, _ := f.sess.Create()
	f.sess.Flush()
	_, _ = f.sess.SetTitle(n.ID, "pending edit")
	require.True(t, f.saver.Pending(n.ID))

	require.NoError(t, f.sess.Delete(ctx, n.ID))
	assert.False(t, f.saver.Pending(n.ID))

	_, err := f.store.Get(ctx, n.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	_, err = f.sess.Get(n.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	// Never-saved notes delete cleanly too.
	unsaved, _ := f.sess.Create()
	assert.NoError(t, f.sess.Delete(ctx, unsaved.ID))
}

// slowStore holds every Upsert until release is closed.
type slowStore struct {
	*store.Memory
	started chan string
	release chan struct{}
}

func (s *slowStore) Upsert(ctx context.Context, n note.Note) error {
	s.started <- n.ID
	<-s.release
	return s.Memory.Upsert(ctx, n)
}

func TestDelete_WaitsOutRunningSave(t *testing.T) {
	ss := &slowStore{
		Memory:  store.NewMemory(),
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	saver := autosave.NewSaver(ss, time.Hour, zerolog.Nop())
	sess := New(ss, saver, Options{SkipSamples: true})
	ctx := context.Background()
	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	n, err := sess.Create()
	require.NoError(t, err)

	go sess.Flush()
	select {
	case id := <-ss.started:
		require.Equal(t, n.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("save never started")
	}

	deleted := make(chan error, 1)
	go func() { deleted <- sess.Delete(ctx, n.ID) }()

	select {
	case <-deleted:
		t.Fatal("Delete returned while the save was still running")
	case <-time.After(50 * time.Millisecond):
	}
	_, err = sess.Get(n.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "note hidden as soon as Delete starts")

	close(ss.release)
	select {
	case err := <-deleted:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Delete did not finish after the save landed")
	}

	_, err = ss.Memory.Get(ctx, n.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "store must not keep the deleted note")
	assert.Never(t, func() bool {
		_, err := sess.Get(n.ID)
		return err == nil
	}, 200*time.Millisecond, 10*time.Millisecond)
	assert.NoError(t, sess.LastError())
}

func TestRemoteSnapshotsReplaceIdleNotes(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})
	ctx := context.Background()

	n, _ := f.sess.Create()
	f.sess.Flush()

	// Another client rewrites the note.
	remote := n.WithTitle("edited elsewhere", time.UnixMilli(1_800_000_000_000))
	require.NoError(t, f.store.Upsert(ctx, remote))

	require.Eventually(t, func() bool {
		got, err := f.sess.Get(n.ID)
		return err == nil && got.Title == "edited elsewhere"
	}, 2*time.Second, 5*time.Millisecond)

	// And a note created elsewhere shows up.
	other := note.New(time.UnixMilli(1_800_000_000_001))
	require.NoError(t, f.store.Upsert(ctx, other))
	require.Eventually(t, func() bool {
		_, err := f.sess.Get(other.ID)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRemoteSnapshotsDoNotClobberPendingEdits(t *testing.T) {
	f := newFixture(t, time.Hour, Options{SkipSamples: true})
	ctx := context.Background()

	n, _ := f.sess.Create()
	f.sess.Flush()
	_, err := f.sess.SetTitle(n.ID, "local draft")
	require.NoError(t, err)

	other := note.New(time.UnixMilli(1_800_000_000_000))
	remote := n.WithTitle("remote", time.UnixMilli(1_800_000_000_000))
	require.NoError(t, f.store.Upsert(ctx, remote))
	require.NoError(t, f.store.Upsert(ctx, other))

	// Wait until the snapshot carrying other has been applied.
	require.Eventually(t, func() bool {
		_, err := f.sess.Get(other.ID)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	got, err := f.sess.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "local draft", got.Title)

	// Once the pending write lands, the store holds the local version.
	f.sess.Flush()
	stored, err := f.store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "local draft", stored.Title)
}

// brokenStore accepts reads but fails every write after Open.
type brokenStore struct {
	*store.Memory
	mu  sync.Mutex
	err error
}

func (b *brokenStore) Upsert(ctx context.Context, n note.Note) error {
	b.mu.Lock()
	err := b.err
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Memory.Upsert(ctx, n)
}

func (b *brokenStore) fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

func TestSaveFailure_KeepsLocalStateAndReports(t *testing.T) {
	bs := &brokenStore{Memory: store.NewMemory()}
	saver := autosave.NewSaver(bs, time.Hour, zerolog.Nop())
	sess := New(bs, saver, Options{SkipSamples: true})
	require.NoError(t, sess.Open(context.Background()))
	defer sess.Close()

	n, _ := sess.Create()
	boom := stderrors.New("network down")
	bs.fail(boom)

	_, err := sess.SetTitle(n.ID, "unsaved work")
	require.NoError(t, err, "local edits never fail because of storage")
	sess.Flush()

	assert.ErrorIs(t, sess.LastError(), boom)
	got, err := sess.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "unsaved work", got.Title)

	// A later successful write clears the notice.
	bs.fail(nil)
	_, _ = sess.SetSummary(n.ID, "saved now")
	sess.Flush()
	assert.NoError(t, sess.LastError())
}

func TestClose_FlushesPendingEdits(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	sess := New(mem, autosave.NewSaver(mem, time.Hour, zerolog.Nop()), Options{SkipSamples: true})
	require.NoError(t, sess.Open(ctx))

	n, _ := sess.Create()
	_, _ = sess.SetTitle(n.ID, "written on close")
	require.NoError(t, sess.Close())

	stored, err := mem.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "written on close", stored.Title)
	require.NoError(t, mem.Close())
}

func sectionIDs(n note.Note) []string {
	out := make([]string, len(n.Sections))
	for i, s := range n.Sections {
		out[i] = s.ID
	}
	return out
}
