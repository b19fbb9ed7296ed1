// Package graph builds and walks the note graph: the connection engine that
// links a freshly saved note to related notes, breadth-first traversal over
// those links, and the interest-graph projection of recent activity.
package graph

import (
	"context"

	"github.com/hpungsan/nexus/internal/note"
)

// SimilarityIndex ranks stored notes against a query vector.
type SimilarityIndex interface {
	SimilaritySearch(ctx context.Context, query []float32, k int, tags []string) ([]note.Candidate, error)
}

// Classifier proposes typed relationships between a note and candidates.
type Classifier interface {
	Classify(ctx context.Context, subject note.Subject, candidates []note.Candidate) ([]note.Proposal, error)
}

// EdgeWriter persists connections, idempotent on (source, target, label).
type EdgeWriter interface {
	UpsertConnection(ctx context.Context, c note.Connection) (*note.Connection, error)
}

// EdgeReader loads the edges and notes a traversal needs.
type EdgeReader interface {
	ConnectionsTouching(ctx context.Context, ids []string, minStrength float64) ([]note.Connection, error)
	NotesByID(ctx context.Context, ids []string) (map[string]*note.Note, error)
}

// NodeLister supplies the interest graph's node and edge sets.
type NodeLister interface {
	RecentNotes(ctx context.Context, limit int, tag *string) ([]note.Note, error)
	ConnectionsAmong(ctx context.Context, ids []string, minStrength float64) ([]note.Connection, error)
}

// Warning codes.
const (
	WarnClassifierFailed  = "CLASSIFIER_FAILED"
	WarnPartialEnrichment = "PARTIAL_ENRICHMENT"
)

// Warning is a non-fatal problem reported next to a successful result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
