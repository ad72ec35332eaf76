package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/cornell/internal/errors"
	"github.com/hpungsan/cornell/internal/note"
)

// Upsert stores the whole note document, replacing any existing row with the
// same id. The last write wins.
func Upsert(ctx context.Context, db *sql.DB, n note.Note) error {
	doc, err := json.Marshal(n)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO notes (id, title, doc_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			doc_json = excluded.doc_json,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	if _, err := db.ExecContext(ctx, query, n.ID, n.Title, string(doc), n.CreatedAt, n.UpdatedAt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetByID retrieves a note by id.
func GetByID(ctx context.Context, db *sql.DB, id string) (*note.Note, error) {
	var doc string
	err := db.QueryRowContext(ctx, `SELECT doc_json FROM notes WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	n, err := decodeNote(doc)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return n, nil
}

// ListAll returns every note, most recently updated first.
func ListAll(ctx context.Context, db *sql.DB) ([]note.Note, error) {
	rows, err := db.QueryContext(ctx, `SELECT doc_json FROM notes ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	notes := []note.Note{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, errors.NewInternal(err)
		}
		n, err := decodeNote(doc)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return notes, nil
}

// Delete removes a note permanently.
func Delete(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// Count returns the number of stored notes.
func Count(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func decodeNote(doc string) (*note.Note, error) {
	var n note.Note
	if err := json.Unmarshal([]byte(doc), &n); err != nil {
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
