package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/note"
)

// StatsOutput describes the knowledge base as a whole.
type StatsOutput struct {
	Notes        int                `json:"notes"`
	Connections  int                `json:"connections"`
	ByLabel      map[note.Label]int `json:"by_label"`
	EmbeddingDim int                `json:"embedding_dim"`
	TopTags      []db.TagCount      `json:"top_tags"`
}

// Stats counts notes and connections.
func Stats(ctx context.Context, database *sql.DB) (*StatsOutput, error) {
	notes, err := db.CountNotes(ctx, database)
	if err != nil {
		return nil, err
	}
	conns, err := db.CountConnections(ctx, database)
	if err != nil {
		return nil, err
	}
	stored, err := db.CountConnectionsByLabel(ctx, database)
	if err != nil {
		return nil, err
	}

	// Every label is reported, zero counts included
	byLabel := make(map[note.Label]int, len(note.Labels))
	for _, l := range note.Labels {
		byLabel[l] = stored[l]
	}

	dim, _, err := db.EmbeddingDimension(ctx, database)
	if err != nil {
		return nil, err
	}

	tags, err := db.TagCounts(ctx, database, 0, 10)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []db.TagCount{}
	}

	return &StatsOutput{
		Notes:        notes,
		Connections:  conns,
		ByLabel:      byLabel,
		EmbeddingDim: dim,
		TopTags:      tags,
	}, nil
}
