package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestNote creates a note with two sections at the given time.
func newTestNote(at time.Time) note.Note {
	n := note.New(at)
	n = n.WithTitle("Limits", at)
	n = n.WithCue("Definition\nExamples", at)
	n, _ = n.WithSectionContent(n.Sections[0].ID, note.RawMarkup("<p>approach a value</p>"), nil, at)
	return n
}

func TestUpsertAndGetByID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n := newTestNote(time.UnixMilli(1_700_000_000_000))
	n = n.WithTags([]string{"math", "calculus"}, time.UnixMilli(1_700_000_000_000))

	if err := Upsert(ctx, db, n); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := GetByID(ctx, db, n.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.ID != n.ID {
		t.Errorf("ID = %q, want %q", got.ID, n.ID)
	}
	if got.Title != "Limits" {
		t.Errorf("Title = %q, want %q", got.Title, "Limits")
	}
	if got.Cue != n.Cue {
		t.Errorf("Cue = %q, want %q", got.Cue, n.Cue)
	}
	if len(got.Sections) != 2 {
		t.Fatalf("len(Sections) = %d, want 2", len(got.Sections))
	}
	if got.Sections[0].HTML != "<p>approach a value</p>" {
		t.Errorf("Sections[0].HTML = %q", got.Sections[0].HTML)
	}
	if got.Sections[0].ID != n.Sections[0].ID {
		t.Errorf("section id not preserved: %q vs %q", got.Sections[0].ID, n.Sections[0].ID)
	}
	if got.NotesText != n.NotesText {
		t.Errorf("NotesText = %q, want %q", got.NotesText, n.NotesText)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "math" {
		t.Errorf("Tags = %v", got.Tags)
	}
	if got.CreatedAt != n.CreatedAt || got.UpdatedAt != n.UpdatedAt {
		t.Errorf("timestamps = %d/%d, want %d/%d", got.CreatedAt, got.UpdatedAt, n.CreatedAt, n.UpdatedAt)
	}
}

func TestUpsert_ReplacesExisting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	at := time.UnixMilli(1_700_000_000_000)
	n := newTestNote(at)
	if err := Upsert(ctx, db, n); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	later := at.Add(time.Minute)
	n = n.WithTitle("Limits (revised)", later)
	if err := Upsert(ctx, db, n); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := GetByID(ctx, db, n.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Title != "Limits (revised)" {
		t.Errorf("Title = %q, want revised title", got.Title)
	}
	if got.UpdatedAt != later.UnixMilli() {
		t.Errorf("UpdatedAt = %d, want %d", got.UpdatedAt, later.UnixMilli())
	}

	count, err := Count(ctx, db)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetByID(context.Background(), db, "missing")
	if err == nil {
		t.Fatal("expected error for missing note")
	}
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestListAll_OrderedByUpdatedDesc(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.UnixMilli(1_700_000_000_000)
	older := newTestNote(base)
	newer := newTestNote(base.Add(time.Hour))
	middle := newTestNote(base.Add(time.Minute))

	for _, n := range []note.Note{older, newer, middle} {
		if err := Upsert(ctx, db, n); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	notes, err := ListAll(ctx, db)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("len(notes) = %d, want 3", len(notes))
	}
	want := []string{newer.ID, middle.ID, older.ID}
	for i, id := range want {
		if notes[i].ID != id {
			t.Errorf("notes[%d].ID = %q, want %q", i, notes[i].ID, id)
		}
	}
}

func TestListAll_Empty(t *testing.T) {
	db := openTestDB(t)

	notes, err := ListAll(context.Background(), db)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if notes == nil {
		t.Error("ListAll should return an empty slice, not nil")
	}
	if len(notes) != 0 {
		t.Errorf("len(notes) = %d, want 0", len(notes))
	}
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n := newTestNote(time.Now())
	if err := Upsert(ctx, db, n); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := Delete(ctx, db, n.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := GetByID(ctx, db, n.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND after delete, got %v", err)
	}

	// Deleting again reports NOT_FOUND
	if err := Delete(ctx, db, n.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND on second delete, got %v", err)
	}
}

func TestGetByID_NonStringMarkupDecodesAsEmpty(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	doc := `{"id":"raw1","title":"Raw","cue":"A","sections":[{"id":"s1","cue":"A","html":{"type":"doc"}}],"created_at":1,"updated_at":1}`
	if _, err := db.ExecContext(ctx, `INSERT INTO notes (id, title, doc_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"raw1", "Raw", doc, 1, 1); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	got, err := GetByID(ctx, db, "raw1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Sections[0].HTML != note.EmptyMarkup {
		t.Errorf("HTML = %q, want %q", got.Sections[0].HTML, note.EmptyMarkup)
	}
	if got.Tags == nil {
		t.Error("Tags should default to an empty slice")
	}
}
