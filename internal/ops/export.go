package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// ExportFormat selects the export file type.
type ExportFormat string

const (
	FormatJSONL ExportFormat = "jsonl" // every note, one JSON record per line
	FormatHTML  ExportFormat = "html"  // one note as a standalone page
)

// ExportSchemaVersion is written in the JSONL header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string       // optional, default: ~/.cornell/exports/<name>-<timestamp>.<ext>
	Format ExportFormat // default: jsonl
	ID     string       // required for html
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string       `json:"path"`
	Format     ExportFormat `json:"format"`
	Count      int          `json:"count"`
	ExportedAt int64        `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	CornellExport bool   `json:"_cornell_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// Export writes notes to a file. JSONL exports every note; HTML exports the
// note named by ID.
func Export(ctx context.Context, st store.Store, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	at := now()
	exportedAt := at.UnixMilli()

	if input.Format == "" {
		input.Format = FormatJSONL
	}

	var (
		ext     string
		name    string
		count   int
		payload func(w *bufio.Writer) error
	)

	switch input.Format {
	case FormatJSONL:
		notes, err := st.List(ctx)
		if err != nil {
			return nil, err
		}
		ext, name, count = ExtJSONL, "notes", len(notes)
		payload = func(w *bufio.Writer) error {
			return writeJSONL(ctx, w, notes, exportedAt)
		}

	case FormatHTML:
		id, err := requireID(input.ID, "id")
		if err != nil {
			return nil, err
		}
		n, err := st.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		doc, err := RenderDocument(*n)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		ext, name, count = ExtHTML, SanitizeForFilename(n.Title), 1
		payload = func(w *bufio.Writer) error {
			_, err := w.Write(doc)
			return err
		}

	default:
		return nil, errors.NewInvalidRequest("format must be one of: jsonl, html")
	}

	// Determine export path
	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, fmt.Sprintf("%s-%s%s", name, exportTimestamp(at), ext))
	}

	// Validate ALL paths (both user-provided and default) for security.
	// Titles end up in default file names.
	if err := ValidatePath(exportPath, PathCheckWrite, ext, cfg); err != nil {
		return nil, err
	}

	if err := writeExportFile(exportPath, payload); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Format:     input.Format,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

func writeJSONL(ctx context.Context, w *bufio.Writer, notes []note.Note, exportedAt int64) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(ExportHeader{
		CornellExport: true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    exportedAt,
	}); err != nil {
		return err
	}

	for _, n := range notes {
		select {
		case <-ctx.Done():
			return errors.NewCancelled("export")
		default:
		}
		if err := enc.Encode(note.NoteToExportRecord(n)); err != nil {
			return err
		}
	}
	return nil
}

// writeExportFile writes to a temp file next to path and renames it into
// place, so an existing export survives a failed write.
func writeExportFile(path string, payload func(w *bufio.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openExportFile(tempPath, 0600)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	if err := payload(w); err != nil {
		if errors.Is(err, errors.ErrCancelled) {
			return err
		}
		return errors.NewInternal(err)
	}
	if err := w.Flush(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}

	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}

// exportTimestamp is the file-name timestamp layout for default paths.
func exportTimestamp(t time.Time) string {
	return t.Format("2006-01-02T150405")
}
