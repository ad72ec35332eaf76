package ops

import (
	"context"
	"slices"
	"testing"

	"github.com/hpungsan/cornell/internal/note"
)

func TestCreate_Defaults(t *testing.T) {
	st := openTestStore(t)

	out := mustCreate(t, st, CreateInput{})

	if out.ID == "" {
		t.Fatal("ID is empty")
	}
	if out.Note.Title != note.DefaultTitle {
		t.Errorf("Title = %q, want %q", out.Note.Title, note.DefaultTitle)
	}
	if len(out.Note.Sections) != 0 {
		t.Errorf("len(Sections) = %d, want 0", len(out.Note.Sections))
	}

	stored, err := st.Get(context.Background(), out.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.CreatedAt != out.Note.CreatedAt {
		t.Errorf("stored CreatedAt = %d, want %d", stored.CreatedAt, out.Note.CreatedAt)
	}
}

func TestCreate_WithCue(t *testing.T) {
	st := openTestStore(t)

	out := mustCreate(t, st, CreateInput{
		Title: "  Photosynthesis  ",
		Unit:  "Biology 101",
		Cue:   "Light reactions\n\nCalvin cycle",
	})

	if out.Note.Title != "Photosynthesis" {
		t.Errorf("Title = %q, want trimmed", out.Note.Title)
	}
	if len(out.Note.Sections) != 2 {
		t.Fatalf("len(Sections) = %d, want 2", len(out.Note.Sections))
	}
	for i, want := range []string{"Light reactions", "Calvin cycle"} {
		s := out.Note.Sections[i]
		if s.Cue != want {
			t.Errorf("Sections[%d].Cue = %q, want %q", i, s.Cue, want)
		}
		if s.HTML != note.EmptyMarkup {
			t.Errorf("Sections[%d].HTML = %q, want %q", i, s.HTML, note.EmptyMarkup)
		}
	}
	if out.Note.NotesHTML == "" {
		t.Error("NotesHTML not derived")
	}
}

func TestCreate_TagsNormalized(t *testing.T) {
	st := openTestStore(t)

	out := mustCreate(t, st, CreateInput{Tags: []string{" exam ", "", "exam", "ch3"}})

	if !slices.Equal(out.Note.Tags, []string{"exam", "ch3"}) {
		t.Errorf("Tags = %v, want [exam ch3]", out.Note.Tags)
	}
}
