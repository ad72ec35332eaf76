package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
)

const (
	noteExt = ".json"

	// watchQuiet coalesces the burst of events a single write produces
	// (create temp, write, rename) into one reload.
	watchQuiet = 50 * time.Millisecond
)

// validID keeps ids usable as file names.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Dir stores one JSON document per note in a directory. Several processes may
// share the directory; a watcher republishes the note set whenever any of
// them writes.
type Dir struct {
	path   string
	logger zerolog.Logger

	mu      sync.Mutex
	open    bool
	closed  bool
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	stopped chan struct{}
	hub     *hub

	// writeMu orders write+publish pairs from this process.
	writeMu sync.Mutex
}

// NewDir returns a store rooted at path. The directory is created on Open.
func NewDir(path string, logger zerolog.Logger) *Dir {
	return &Dir{
		path:   path,
		logger: logger.With().Str("component", "store.dir").Logger(),
		hub:    newHub(),
	}
}

// Path returns the notes directory.
func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.NewStoreUnavailable(nil)
	}
	if d.open {
		return nil
	}

	if err := os.MkdirAll(d.path, 0700); err != nil {
		return errors.NewStoreUnavailable(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewStoreUnavailable(err)
	}
	if err := watcher.Add(d.path); err != nil {
		_ = watcher.Close()
		return errors.NewStoreUnavailable(err)
	}

	// The watch loop outlives the Open call, so it is not tied to ctx.
	runCtx, cancel := context.WithCancel(context.Background())
	d.watcher = watcher
	d.cancel = cancel
	d.stopped = make(chan struct{})
	d.open = true

	go d.watch(runCtx)
	return nil
}

func (d *Dir) ready() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open || d.closed {
		return errors.NewStoreUnavailable(nil)
	}
	return nil
}

func (d *Dir) file(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", errors.NewInvalidRequest("invalid note id: " + id)
	}
	return filepath.Join(d.path, id+noteExt), nil
}

func (d *Dir) Get(ctx context.Context, id string) (*note.Note, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	path, err := d.file(id)
	if err != nil {
		return nil, err
	}
	n, err := readNote(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewNotFound(id)
		}
		return nil, errors.NewInternal(err)
	}
	return n, nil
}

func (d *Dir) List(ctx context.Context) ([]note.Note, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	return d.load(ctx)
}

func (d *Dir) Upsert(ctx context.Context, n note.Note) error {
	if err := d.ready(); err != nil {
		return err
	}
	path, err := d.file(n.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if err := writeFileAtomic(path, data, 0600); err != nil {
		return errors.NewInternal(err)
	}
	d.notify(ctx)
	return nil
}

func (d *Dir) Delete(ctx context.Context, id string) error {
	if err := d.ready(); err != nil {
		return err
	}
	path, err := d.file(id)
	if err != nil {
		return err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if err := os.Remove(path); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.NewNotFound(id)
		}
		return errors.NewInternal(err)
	}
	d.notify(ctx)
	return nil
}

func (d *Dir) Subscribe(ctx context.Context) (<-chan []note.Note, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}
	notes, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	ch, ok := d.hub.subscribe(ctx, notes)
	if !ok {
		return nil, errors.NewStoreUnavailable(nil)
	}
	return ch, nil
}

func (d *Dir) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	wasOpen := d.open
	d.mu.Unlock()

	d.hub.close()
	if !wasOpen {
		return nil
	}
	d.cancel()
	err := d.watcher.Close()
	<-d.stopped
	return err
}

// load reads every note document. Unreadable files are logged and skipped so
// one corrupt document does not hide the rest.
func (d *Dir) load(ctx context.Context) ([]note.Note, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	notes := make([]note.Note, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("list")
		}
		if e.IsDir() || !isNoteFile(e.Name()) {
			continue
		}
		n, err := readNote(filepath.Join(d.path, e.Name()))
		if err != nil {
			if !stderrors.Is(err, os.ErrNotExist) {
				d.logger.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable note")
			}
			continue
		}
		notes = append(notes, *n)
	}
	note.SortByUpdated(notes)
	return notes, nil
}

func (d *Dir) notify(ctx context.Context) {
	if !d.hub.active() {
		return
	}
	notes, err := d.load(ctx)
	if err != nil {
		d.logger.Debug().Err(err).Msg("reload after write failed")
		return
	}
	d.hub.publish(notes)
}

// watch reloads the directory after filesystem activity settles and
// publishes the result. This is how writes from other processes reach
// subscribers.
func (d *Dir) watch(ctx context.Context) {
	defer close(d.stopped)

	timer := time.NewTimer(watchQuiet)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !isNoteFile(filepath.Base(event.Name)) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			d.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("note file changed")
			timer.Reset(watchQuiet)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error().Err(err).Msg("fsnotify error")

		case <-timer.C:
			d.writeMu.Lock()
			d.notify(ctx)
			d.writeMu.Unlock()
		}
	}
}

func isNoteFile(name string) bool {
	return strings.HasSuffix(name, noteExt) && !strings.HasPrefix(name, ".")
}

func readNote(path string) (*note.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var n note.Note
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n.Sections == nil {
		n.Sections = []note.Section{}
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return &n, nil
}
