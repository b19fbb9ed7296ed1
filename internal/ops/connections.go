package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/graph"
	"github.com/hpungsan/nexus/internal/note"
)

// ConnectionsInput contains parameters for the Connections operation.
type ConnectionsInput struct {
	ID          string
	Depth       int      // default: 1, capped at max_traversal_depth
	MinStrength *float64 // default: 0.3
}

// ConnectionsOutput contains the result of the Connections operation.
type ConnectionsOutput struct {
	Root        string                 `json:"root"`
	Depth       int                    `json:"depth"`
	MinStrength float64                `json:"min_strength"`
	Items       []note.TraversalResult `json:"items"`
	Count       int                    `json:"count"`
}

// Connections traverses the graph outward from a note.
func Connections(ctx context.Context, database *sql.DB, cfg *config.Config, input ConnectionsInput) (*ConnectionsOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	minStrength, err := resolveMinStrength(input.MinStrength)
	if err != nil {
		return nil, err
	}

	maxDepth := cfg.MaxTraversalDepth
	if maxDepth <= 0 {
		maxDepth = config.DefaultConfig().MaxTraversalDepth
	}
	depth := clampLimit(input.Depth, 1, maxDepth)

	exists, err := db.NoteExists(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFound(id)
	}

	items, err := graph.NewTraverser(db.NewStore(database)).Deep(ctx, id, depth, minStrength)
	if err != nil {
		return nil, err
	}

	return &ConnectionsOutput{
		Root:        id,
		Depth:       depth,
		MinStrength: minStrength,
		Items:       items,
		Count:       len(items),
	}, nil
}
