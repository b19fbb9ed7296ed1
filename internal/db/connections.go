package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

const connectionColumns = `id, source_id, target_id, label, strength, reasoning, created_at`

// UpsertConnection inserts a connection or, when (source, target, label) already
// exists, overwrites its strength and reasoning. Strength is clamped to [0,1].
// Returns the stored row.
func UpsertConnection(ctx context.Context, db Querier, c note.Connection) (*note.Connection, error) {
	if !note.ValidLabel(c.Label) {
		return nil, errors.NewInvalidRequest("invalid connection label: " + string(c.Label))
	}
	if c.ID == "" {
		id, err := note.NewID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		c.ID = id
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	c.Strength = note.ClampStrength(c.Strength)

	row := db.QueryRowContext(ctx, `
		INSERT INTO connections (`+connectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, target_id, label) DO UPDATE SET
			strength = excluded.strength,
			reasoning = excluded.reasoning
		RETURNING `+connectionColumns,
		c.ID, c.SourceID, c.TargetID, string(c.Label), c.Strength, toNullString(c.Reasoning), c.CreatedAt,
	)

	stored, err := scanConnection(row)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	return stored, nil
}

// ConnectionsTouching returns every connection with either endpoint in ids and
// strength >= minStrength, strongest first (ties by id).
func ConnectionsTouching(ctx context.Context, db *sql.DB, ids []string, minStrength float64) ([]note.Connection, error) {
	var out []note.Connection
	seen := make(map[string]bool)

	for _, chunk := range chunkIDs(dedupeIDs(ids)) {
		ph := placeholders(len(chunk))
		args := append(stringArgs(chunk), stringArgs(chunk)...)
		args = append(args, minStrength)

		conns, err := queryConnections(ctx, db, `
			SELECT `+connectionColumns+` FROM connections
			WHERE (source_id IN (`+ph+`) OR target_id IN (`+ph+`))
			AND strength >= ?
			ORDER BY strength DESC, id ASC`, args...)
		if err != nil {
			return nil, err
		}
		for _, c := range conns {
			// An edge between two chunks is returned by both queries.
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// ConnectionsAmong returns connections whose both endpoints are in ids and whose
// strength >= minStrength.
func ConnectionsAmong(ctx context.Context, db *sql.DB, ids []string, minStrength float64) ([]note.Connection, error) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	var out []note.Connection
	for _, chunk := range chunkIDs(dedupeIDs(ids)) {
		args := append(stringArgs(chunk), minStrength)
		conns, err := queryConnections(ctx, db, `
			SELECT `+connectionColumns+` FROM connections
			WHERE source_id IN (`+placeholders(len(chunk))+`)
			AND strength >= ?
			ORDER BY strength DESC, id ASC`, args...)
		if err != nil {
			return nil, err
		}
		for _, c := range conns {
			if set[c.TargetID] {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// ConnectionsCreatedSince returns the strongest connections created at or after since.
func ConnectionsCreatedSince(ctx context.Context, db *sql.DB, since int64, limit int) ([]note.Connection, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections WHERE created_at >= ?`, since).Scan(&total); err != nil {
		return nil, 0, errors.NewPersistence(err)
	}

	conns, err := queryConnections(ctx, db, `
		SELECT `+connectionColumns+` FROM connections
		WHERE created_at >= ?
		ORDER BY strength DESC, id ASC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, 0, err
	}
	return conns, total, nil
}

// CountConnections returns the number of stored connections.
func CountConnections(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&n); err != nil {
		return 0, errors.NewPersistence(err)
	}
	return n, nil
}

// CountConnectionsByLabel returns connection counts keyed by label.
func CountConnectionsByLabel(ctx context.Context, db *sql.DB) (map[note.Label]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT label, COUNT(*) FROM connections GROUP BY label`)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	defer rows.Close()

	out := make(map[note.Label]int)
	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return nil, errors.NewPersistence(err)
		}
		out[note.Label(label)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence(err)
	}
	return out, nil
}

// StreamConnectionsForExport returns rows over every connection oldest first.
// Caller must close rows and scan with ScanConnectionFromRows.
func StreamConnectionsForExport(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	return rows, nil
}

// ScanConnectionFromRows scans a row produced by StreamConnectionsForExport.
func ScanConnectionFromRows(rows *sql.Rows) (*note.Connection, error) {
	return scanConnection(rows)
}

func queryConnections(ctx context.Context, db *sql.DB, query string, args ...any) ([]note.Connection, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	defer rows.Close()

	var out []note.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, errors.NewPersistence(err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence(err)
	}
	return out, nil
}

func scanConnection(row rowScanner) (*note.Connection, error) {
	var (
		c         note.Connection
		label     string
		reasoning sql.NullString
	)
	if err := row.Scan(&c.ID, &c.SourceID, &c.TargetID, &label, &c.Strength, &reasoning, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Label = note.Label(label)
	c.Reasoning = fromNullString(reasoning)
	return &c, nil
}
