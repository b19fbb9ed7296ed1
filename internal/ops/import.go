package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeSkip    ImportMode = "skip"    // keep existing on collision
)

// maxImportLine bounds a single JSONL line (a note plus its embedding).
const maxImportLine = 4 * 1024 * 1024

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	NotesImported       int           `json:"notes_imported"`
	ConnectionsImported int           `json:"connections_imported"`
	Skipped             int           `json:"skipped"`
	Errors              []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importRecord is a parsed line with its position in the file.
type importRecord struct {
	line       int
	note       *note.Note
	connection *note.Connection
}

// Import reads a JSONL export and stores its notes and connections. Embeddings
// travel in the file, so no provider is needed. In error mode nothing is
// written unless every record can be imported.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, skip")
	}

	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.NexusError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	maxChars := note.DefaultMaxChars
	if cfg != nil && cfg.NoteMaxChars > 0 {
		maxChars = cfg.NoteMaxChars
	}
	records, parseErrors := parseExportFile(file, maxChars)

	dim, haveDim, err := db.EmbeddingDimension(ctx, database)
	if err != nil {
		return nil, err
	}
	records, dimErrors := checkDimensions(records, dim, haveDim)
	parseErrors = append(parseErrors, dimErrors...)

	// For mode:error, fail on any parse errors
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	if input.Mode == ImportModeError {
		return importAtomic(ctx, database, records)
	}
	return importLenient(ctx, database, records, input.Mode, parseErrors)
}

// parseExportFile parses a JSONL export file into records.
func parseExportFile(r io.Reader, maxChars int) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
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

		// Skip header line
		if record.NexusExport {
			continue
		}

		switch {
		case record.Kind == note.RecordNote && record.Note != nil:
			if msg := validateNoteRecord(record.Note, maxChars); msg != "" {
				parseErrors = append(parseErrors, ImportError{Line: lineNum, ID: record.Note.ID, Code: "INVALID_RECORD", Message: msg})
				continue
			}
			records = append(records, importRecord{line: lineNum, note: record.Note.ToNote()})

		case record.Kind == note.RecordConnection && record.Connection != nil:
			c := *record.Connection
			if c.SourceID == "" || c.TargetID == "" || !note.ValidLabel(c.Label) {
				parseErrors = append(parseErrors, ImportError{Line: lineNum, ID: c.ID, Code: "INVALID_RECORD", Message: "connection needs source_id, target_id and a known label"})
				continue
			}
			c.Strength = note.ClampStrength(c.Strength)
			records = append(records, importRecord{line: lineNum, connection: &c})

		default:
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "record must be a note or a connection",
			})
		}
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

func validateNoteRecord(r *note.NoteRecord, maxChars int) string {
	switch {
	case r.ID == "":
		return "missing id field"
	case strings.TrimSpace(r.Content) == "":
		return "missing content"
	case note.CountChars(r.Content) > maxChars:
		return fmt.Sprintf("content exceeds %d characters", maxChars)
	case len(r.Embedding) == 0:
		return "missing embedding"
	case r.Origin != "" && !note.ValidOrigin(r.Origin):
		return fmt.Sprintf("unknown origin %q", r.Origin)
	}
	return ""
}

// checkDimensions drops notes whose embedding size differs from the store's,
// or from the first note in the file when the store is empty.
func checkDimensions(records []importRecord, dim int, haveDim bool) ([]importRecord, []ImportError) {
	var errs []ImportError
	kept := records[:0]
	for _, r := range records {
		if r.note != nil {
			if !haveDim {
				dim, haveDim = len(r.note.Embedding), true
			}
			if len(r.note.Embedding) != dim {
				errs = append(errs, ImportError{
					Line:    r.line,
					ID:      r.note.ID,
					Code:    "DIMENSION_MISMATCH",
					Message: fmt.Sprintf("embedding has %d dimensions, expected %d", len(r.note.Embedding), dim),
				})
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, errs
}

// importAtomic imports all records in one transaction, aborting on the first
// id collision or dangling connection.
func importAtomic(ctx context.Context, database *sql.DB, records []importRecord) (*ImportOutput, error) {
	fileNotes := make(map[string]bool)
	for _, r := range records {
		if r.note == nil {
			continue
		}
		exists, err := db.NoteExists(ctx, database, r.note.ID)
		if err != nil {
			return nil, err
		}
		if exists || fileNotes[r.note.ID] {
			return &ImportOutput{Errors: []ImportError{{
				Line:    r.line,
				ID:      r.note.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("note with id %q already exists", r.note.ID),
			}}}, nil
		}
		fileNotes[r.note.ID] = true
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := &ImportOutput{Errors: []ImportError{}}
	for _, r := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}
		if r.note != nil {
			if err := db.InsertNote(ctx, tx, r.note); err != nil {
				return nil, err
			}
			out.NotesImported++
			continue
		}

		ok, err := endpointsExist(ctx, tx, r.connection)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &ImportOutput{Errors: []ImportError{danglingError(r)}}, nil
		}
		if _, err := db.UpsertConnection(ctx, tx, *r.connection); err != nil {
			return nil, err
		}
		out.ConnectionsImported++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewPersistence(err)
	}
	return out, nil
}

// importLenient imports record by record. Collisions are replaced or skipped
// according to mode; bad records are reported and skipped.
func importLenient(ctx context.Context, database *sql.DB, records []importRecord, mode ImportMode, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Errors: []ImportError{}}

	// Include parse errors
	out.Errors = append(out.Errors, parseErrors...)
	out.Skipped += len(parseErrors)

	for _, r := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		if r.note != nil {
			exists, err := db.NoteExists(ctx, database, r.note.ID)
			if err != nil {
				return nil, err
			}
			switch {
			case exists && mode == ImportModeSkip:
				out.Skipped++
			case exists:
				if err := db.ReplaceNote(ctx, database, r.note); err != nil {
					return nil, err
				}
				out.NotesImported++
			default:
				if err := db.InsertNote(ctx, database, r.note); err != nil {
					return nil, err
				}
				out.NotesImported++
			}
			continue
		}

		ok, err := endpointsExist(ctx, database, r.connection)
		if err != nil {
			return nil, err
		}
		if !ok {
			out.Errors = append(out.Errors, danglingError(r))
			out.Skipped++
			continue
		}
		if _, err := db.UpsertConnection(ctx, database, *r.connection); err != nil {
			return nil, err
		}
		out.ConnectionsImported++
	}

	return out, nil
}

func endpointsExist(ctx context.Context, q db.Querier, c *note.Connection) (bool, error) {
	for _, id := range []string{c.SourceID, c.TargetID} {
		ok, err := db.NoteExists(ctx, q, id)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func danglingError(r importRecord) ImportError {
	return ImportError{
		Line:    r.line,
		ID:      r.connection.ID,
		Code:    "MISSING_ENDPOINT",
		Message: fmt.Sprintf("connection %s -> %s references a note that does not exist", r.connection.SourceID, r.connection.TargetID),
	}
}
