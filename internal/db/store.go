package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/nexus/internal/note"
)

// Store adapts the package-level query functions to the capability interfaces
// consumed by the graph engine (similarity index, edge writer, traversal reader).
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SimilaritySearch implements graph.SimilarityIndex.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, k int, tags []string) ([]note.Candidate, error) {
	return SimilaritySearch(ctx, s.db, query, k, tags)
}

// UpsertConnection implements graph.EdgeWriter.
func (s *Store) UpsertConnection(ctx context.Context, c note.Connection) (*note.Connection, error) {
	return UpsertConnection(ctx, s.db, c)
}

// ConnectionsTouching implements graph.EdgeReader.
func (s *Store) ConnectionsTouching(ctx context.Context, ids []string, minStrength float64) ([]note.Connection, error) {
	return ConnectionsTouching(ctx, s.db, ids, minStrength)
}

// ConnectionsAmong implements graph.EdgeReader.
func (s *Store) ConnectionsAmong(ctx context.Context, ids []string, minStrength float64) ([]note.Connection, error) {
	return ConnectionsAmong(ctx, s.db, ids, minStrength)
}

// NotesByID implements graph.EdgeReader.
func (s *Store) NotesByID(ctx context.Context, ids []string) (map[string]*note.Note, error) {
	return GetNotesByIDs(ctx, s.db, ids)
}

// RecentNotes implements graph.NodeLister.
func (s *Store) RecentNotes(ctx context.Context, limit int, tag *string) ([]note.Note, error) {
	notes, _, err := ListNotes(ctx, s.db, ListFilter{Tag: tag}, limit, 0)
	return notes, err
}
