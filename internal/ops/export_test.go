package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
)

func exportConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return lines
}

func TestExport_JSONL(t *testing.T) {
	stepClock(t)
	st := openTestStore(t)
	ctx := context.Background()
	tmpDir := t.TempDir()

	a := mustCreate(t, st, CreateInput{Title: "A", Cue: "one\ntwo"})
	mustCreate(t, st, CreateInput{Title: "B"})

	exportPath := filepath.Join(tmpDir, "export.jsonl")
	output, err := Export(ctx, st, exportConfig(tmpDir), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if output.Path != exportPath {
		t.Errorf("Path = %q, want %q", output.Path, exportPath)
	}
	if output.Count != 2 {
		t.Errorf("Count = %d, want 2", output.Count)
	}
	if output.Format != FormatJSONL {
		t.Errorf("Format = %q, want jsonl", output.Format)
	}

	lines := readLines(t, exportPath)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 records", len(lines))
	}

	var header ExportHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header unmarshal failed: %v", err)
	}
	if !header.CornellExport || header.SchemaVersion != ExportSchemaVersion {
		t.Errorf("header = %+v", header)
	}
	if header.ExportedAt != output.ExportedAt {
		t.Errorf("header ExportedAt = %d, want %d", header.ExportedAt, output.ExportedAt)
	}

	// Newest first, so B precedes A.
	var record note.ExportRecord
	if err := json.Unmarshal([]byte(lines[2]), &record); err != nil {
		t.Fatalf("record unmarshal failed: %v", err)
	}
	if record.ID != a.ID || len(record.Sections) != 2 {
		t.Errorf("record = %+v, want note A with 2 sections", record)
	}
}

func TestExport_HTML(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	tmpDir := t.TempDir()

	created := mustCreate(t, st, CreateInput{
		Title:   "Acids & Bases",
		Cue:     "pH scale",
		Summary: "Strong acids **fully** dissociate.\n\n<script>alert(1)</script>",
	})

	exportPath := filepath.Join(tmpDir, "acids.html")
	output, err := Export(ctx, st, exportConfig(tmpDir), ExportInput{
		Path:   exportPath,
		Format: FormatHTML,
		ID:     created.ID,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if output.Count != 1 {
		t.Errorf("Count = %d, want 1", output.Count)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	page := string(data)

	for _, want := range []string{
		"<title>Acids &amp; Bases</title>",
		"<h3>pH scale</h3>",
		"<strong>fully</strong>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "<script>alert(1)</script>") {
		t.Error("raw HTML in summary was not escaped")
	}
}

func TestExport_Validation(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	tmpDir := t.TempDir()
	cfg := exportConfig(tmpDir)

	tests := []struct {
		name  string
		input ExportInput
		code  errors.ErrorCode
	}{
		{"unknown format", ExportInput{Path: filepath.Join(tmpDir, "x.jsonl"), Format: "pdf"}, errors.ErrInvalidRequest},
		{"html needs id", ExportInput{Path: filepath.Join(tmpDir, "x.html"), Format: FormatHTML}, errors.ErrInvalidRequest},
		{"html unknown id", ExportInput{Path: filepath.Join(tmpDir, "x.html"), Format: FormatHTML, ID: "01MISSING"}, errors.ErrNotFound},
		{"wrong extension", ExportInput{Path: filepath.Join(tmpDir, "x.html")}, errors.ErrInvalidRequest},
		{"outside allowed dirs", ExportInput{Path: filepath.Join(t.TempDir(), "x.jsonl")}, errors.ErrInvalidRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Export(ctx, st, cfg, tc.input)
			if !errors.Is(err, tc.code) {
				t.Errorf("expected %s, got: %v", tc.code, err)
			}
		})
	}
}

func TestExport_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	st := openTestStore(t)
	mustCreate(t, st, CreateInput{})

	output, err := Export(context.Background(), st, config.DefaultConfig(), ExportInput{})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	wantDir := filepath.Join(home, BaseDirName, "exports")
	if filepath.Dir(output.Path) != wantDir {
		t.Errorf("Path = %q, want it in %q", output.Path, wantDir)
	}
	if !strings.HasPrefix(filepath.Base(output.Path), "notes-") {
		t.Errorf("file name = %q, want notes-<timestamp>.jsonl", filepath.Base(output.Path))
	}
	if _, err := os.Stat(output.Path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

func TestExport_ReplacesExistingWithoutLeftovers(t *testing.T) {
	st := openTestStore(t)
	tmpDir := t.TempDir()
	exportPath := filepath.Join(tmpDir, "export.jsonl")

	if err := os.WriteFile(exportPath, []byte("old\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	mustCreate(t, st, CreateInput{})

	if _, err := Export(context.Background(), st, exportConfig(tmpDir), ExportInput{Path: exportPath}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lines := readLines(t, exportPath)
	if len(lines) != 2 {
		t.Errorf("got %d lines, want 2", len(lines))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the export", len(entries))
	}
}

func TestExport_SymlinkRejected(t *testing.T) {
	st := openTestStore(t)
	tmpDir := t.TempDir()

	target := filepath.Join(t.TempDir(), "target.jsonl")
	if err := os.WriteFile(target, []byte("keep\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	link := filepath.Join(tmpDir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	_, err := Export(context.Background(), st, exportConfig(tmpDir), ExportInput{Path: link})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got: %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "keep\n" {
		t.Error("symlink target was overwritten")
	}
}
