package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/cornell/internal/config"
	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/logging"
	"github.com/hpungsan/cornell/internal/note"
	"github.com/hpungsan/cornell/internal/store"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision, write nothing
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeSkip    ImportMode = "skip"    // keep the stored note on collision
)

// maxImportLine bounds a single JSONL record.
const maxImportLine = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line int
	note note.Note
}

// Import loads notes from a JSONL export file.
func Import(ctx context.Context, st store.Store, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeSkip:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, skip")
	}

	if err := ValidatePath(input.Path, PathCheckRead, ExtJSONL, cfg); err != nil {
		return nil, err
	}

	file, err := openImportFile(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) || errors.Is(err, errors.ErrFileNotFound) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file, now().UnixMilli())

	// mode:error is all or nothing
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	existing, err := storedIDs(ctx, st)
	if err != nil {
		return nil, err
	}

	var out *ImportOutput
	switch input.Mode {
	case ImportModeError:
		out, err = importModeError(ctx, st, records, existing)
	case ImportModeReplace:
		out, err = importModeReplace(ctx, st, records, parseErrors)
	default:
		out, err = importModeSkip(ctx, st, records, parseErrors, existing)
	}
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info().
		Str("mode", string(input.Mode)).
		Int("imported", out.Imported).
		Int("skipped", out.Skipped).
		Int("errors", len(out.Errors)).
		Msg("import finished")
	return out, nil
}

// parseExportFile parses a JSONL export file. The header line is skipped;
// records without an id or title are reported rather than imported.
func parseExportFile(r io.Reader, importedAt int64) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var record note.ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if record.CornellExport {
			continue
		}

		if strings.TrimSpace(record.ID) == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}
		if strings.TrimSpace(record.Title) == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      record.ID,
				Code:    "INVALID_RECORD",
				Message: "missing title field",
			})
			continue
		}

		n := record.ToNote()
		if n.CreatedAt == 0 {
			n.CreatedAt = importedAt
		}
		if n.UpdatedAt == 0 {
			n.UpdatedAt = n.CreatedAt
		}
		records = append(records, importRecord{line: lineNum, note: n})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum + 1,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

func storedIDs(ctx context.Context, st store.Store) (map[string]bool, error) {
	notes, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(notes))
	for _, n := range notes {
		ids[n.ID] = true
	}
	return ids, nil
}

// importModeError checks every record for collisions before writing any.
// Repeated ids within the file count as collisions too.
func importModeError(ctx context.Context, st store.Store, records []importRecord, existing map[string]bool) (*ImportOutput, error) {
	var importErrors []ImportError
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		id := rec.note.ID
		switch {
		case existing[id]:
			importErrors = append(importErrors, ImportError{
				Line:    rec.line,
				ID:      id,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("note with id %q already exists", id),
			})
		case seen[id]:
			importErrors = append(importErrors, ImportError{
				Line:    rec.line,
				ID:      id,
				Code:    "DUPLICATE_ID",
				Message: fmt.Sprintf("id %q appears more than once in the file", id),
			})
		}
		seen[id] = true
	}
	if len(importErrors) > 0 {
		return &ImportOutput{Errors: importErrors}, nil
	}

	imported, err := upsertAll(ctx, st, records)
	if err != nil {
		return nil, err
	}
	return &ImportOutput{
		Imported: imported,
		Errors:   []ImportError{},
	}, nil
}

// importModeReplace writes every record. Later lines win over earlier ones.
func importModeReplace(ctx context.Context, st store.Store, records []importRecord, parseErrors []ImportError) (*ImportOutput, error) {
	imported, err := upsertAll(ctx, st, records)
	if err != nil {
		return nil, err
	}
	return &ImportOutput{
		Imported: imported,
		Skipped:  len(parseErrors),
		Errors:   nonNil(parseErrors),
	}, nil
}

// importModeSkip writes records whose id is not stored yet. The first
// occurrence of a repeated id wins.
func importModeSkip(ctx context.Context, st store.Store, records []importRecord, parseErrors []ImportError, existing map[string]bool) (*ImportOutput, error) {
	skipped := len(parseErrors)
	fresh := make([]importRecord, 0, len(records))
	for _, rec := range records {
		if existing[rec.note.ID] {
			skipped++
			continue
		}
		existing[rec.note.ID] = true
		fresh = append(fresh, rec)
	}

	imported, err := upsertAll(ctx, st, fresh)
	if err != nil {
		return nil, err
	}
	return &ImportOutput{
		Imported: imported,
		Skipped:  skipped,
		Errors:   nonNil(parseErrors),
	}, nil
}

func upsertAll(ctx context.Context, st store.Store, records []importRecord) (int, error) {
	imported := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return imported, errors.NewCancelled("import")
		}
		if err := st.Upsert(ctx, rec.note); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func nonNil(errs []ImportError) []ImportError {
	if errs == nil {
		return []ImportError{}
	}
	return errs
}
