package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.NexusError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Querier is satisfied by both *sql.DB and *sql.Tx, so writes can join a
// caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Column lists. noteColumns carries the embedding; summaryColumns skips it
// for reads that never compare vectors.
const (
	noteColumns    = `id, title, content, content_chars, tags_json, origin, created_at, updated_at, embedding`
	summaryColumns = `id, title, content, content_chars, tags_json, origin, created_at, updated_at`
)

// ListFilter narrows ListNotes.
type ListFilter struct {
	Tag    *string
	Origin *note.Origin
	Since  *int64 // created_at >= Since
}

// InsertNote stores a new note in the database.
func InsertNote(ctx context.Context, db Querier, n *note.Note) error {
	tagsJSON, err := toTagsJSON(n.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO notes (
			id, title, content, content_chars, tags_json, origin,
			embedding, embedding_dim, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.ExecContext(ctx, query,
		n.ID, toNullString(n.Title), n.Content, n.ContentChars, tagsJSON, string(n.Origin),
		note.EncodeVector(n.Embedding), len(n.Embedding), n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewPersistence(err)
	}

	return nil
}

// ReplaceNote overwrites every field of an existing note, keeping its connections.
// Used by import in replace mode.
func ReplaceNote(ctx context.Context, db Querier, n *note.Note) error {
	tagsJSON, err := toTagsJSON(n.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, content_chars = ?, tags_json = ?, origin = ?,
			embedding = ?, embedding_dim = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`, toNullString(n.Title), n.Content, n.ContentChars, tagsJSON, string(n.Origin),
		note.EncodeVector(n.Embedding), len(n.Embedding), n.CreatedAt, n.UpdatedAt, n.ID)
	if err != nil {
		return errors.NewPersistence(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewPersistence(err)
	}
	if rows == 0 {
		return errors.NewNotFound(n.ID)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetNoteByID retrieves a note, including its embedding.
func GetNoteByID(ctx context.Context, db *sql.DB, id string) (*note.Note, error) {
	row := db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row, true)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	return n, nil
}

// NoteExists reports whether a note with the given id is stored.
func NoteExists(ctx context.Context, db Querier, id string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewPersistence(err)
	}
	return true, nil
}

// GetNotesByIDs loads notes (without embeddings) keyed by id. Missing ids are absent from the map.
func GetNotesByIDs(ctx context.Context, db *sql.DB, ids []string) (map[string]*note.Note, error) {
	out := make(map[string]*note.Note, len(ids))
	for _, chunk := range chunkIDs(dedupeIDs(ids)) {
		query := `SELECT ` + summaryColumns + ` FROM notes WHERE id IN (` + placeholders(len(chunk)) + `)`
		rows, err := db.QueryContext(ctx, query, stringArgs(chunk)...)
		if err != nil {
			return nil, errors.NewPersistence(err)
		}
		for rows.Next() {
			n, err := scanNote(rows, false)
			if err != nil {
				rows.Close()
				return nil, errors.NewPersistence(err)
			}
			out[n.ID] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, errors.NewPersistence(err)
		}
		rows.Close()
	}
	return out, nil
}

// ListNotes returns notes (without embeddings) most-recent-first, plus the total
// count matching the filter.
func ListNotes(ctx context.Context, db *sql.DB, filter ListFilter, limit, offset int) ([]note.Note, int, error) {
	where, args := filter.clause()

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewPersistence(err)
	}

	query := `SELECT ` + summaryColumns + ` FROM notes` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewPersistence(err)
	}
	defer rows.Close()

	var notes []note.Note
	for rows.Next() {
		n, err := scanNote(rows, false)
		if err != nil {
			return nil, 0, errors.NewPersistence(err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewPersistence(err)
	}
	return notes, total, nil
}

func (f ListFilter) clause() (string, []any) {
	var conds []string
	var args []any
	if f.Tag != nil {
		conds = append(conds, tagCondition)
		args = append(args, *f.Tag)
	}
	if f.Origin != nil {
		conds = append(conds, "origin = ?")
		args = append(args, string(*f.Origin))
	}
	if f.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.Since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// tagCondition matches notes whose tags_json array holds the bound value.
const tagCondition = `EXISTS (SELECT 1 FROM json_each(notes.tags_json) WHERE json_each.value = ?)`

// DeleteNote removes a note and every connection touching it.
// Returns the number of connections removed.
func DeleteNote(ctx context.Context, db *sql.DB, id string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewPersistence(err)
	}
	defer tx.Rollback()

	// Explicit delete mirrors the FK cascade so the count is exact even if
	// foreign_keys is off on this connection.
	res, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE source_id = ? OR target_id = ?`, id, id)
	if err != nil {
		return 0, errors.NewPersistence(err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewPersistence(err)
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return 0, errors.NewPersistence(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewPersistence(err)
	}
	if rows == 0 {
		return 0, errors.NewNotFound(id)
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewPersistence(err)
	}
	return int(removed), nil
}

// EmbeddingDimension returns the dimensionality fixed by stored notes.
// ok is false when the store is empty.
func EmbeddingDimension(ctx context.Context, db Querier) (dim int, ok bool, err error) {
	err = db.QueryRowContext(ctx, `SELECT embedding_dim FROM notes LIMIT 1`).Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.NewPersistence(err)
	}
	return dim, true, nil
}

// CountNotes returns the number of stored notes.
func CountNotes(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&n); err != nil {
		return 0, errors.NewPersistence(err)
	}
	return n, nil
}

// TagCount is a tag with the number of notes carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCounts returns the most frequent tags among notes created at or after since.
func TagCounts(ctx context.Context, db *sql.DB, since int64, limit int) ([]TagCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT j.value, COUNT(*) AS n
		FROM notes, json_each(notes.tags_json) AS j
		WHERE notes.created_at >= ?
		GROUP BY j.value
		ORDER BY n DESC, j.value ASC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, errors.NewPersistence(err)
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence(err)
	}
	return out, nil
}

// StreamNotesForExport returns rows over every note (with embeddings) oldest first.
// Caller must close rows and scan with ScanNoteFromRows.
func StreamNotesForExport(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	return rows, nil
}

// ScanNoteFromRows scans a row produced by StreamNotesForExport.
func ScanNoteFromRows(rows *sql.Rows) (*note.Note, error) {
	return scanNote(rows, true)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNote scans one row in noteColumns (withEmbedding) or summaryColumns order.
func scanNote(row rowScanner, withEmbedding bool) (*note.Note, error) {
	var (
		n         note.Note
		title     sql.NullString
		tagsJSON  sql.NullString
		origin    string
		embedding []byte
	)

	dest := []any{&n.ID, &title, &n.Content, &n.ContentChars, &tagsJSON, &origin, &n.CreatedAt, &n.UpdatedAt}
	if withEmbedding {
		dest = append(dest, &embedding)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	n.Title = fromNullString(title)
	n.Origin = note.Origin(origin)

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &n.Tags); err != nil {
			return nil, err
		}
	}

	if withEmbedding {
		vec, err := note.DecodeVector(embedding)
		if err != nil {
			return nil, err
		}
		n.Embedding = vec
	}

	return &n, nil
}

// toTagsJSON encodes tags; empty tag sets are stored as NULL.
func toTagsJSON(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// maxIDsPerQuery keeps IN lists well below SQLite's bound-variable limit.
const maxIDsPerQuery = 500

func chunkIDs(ids []string) [][]string {
	var chunks [][]string
	for len(ids) > 0 {
		n := min(len(ids), maxIDsPerQuery)
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
