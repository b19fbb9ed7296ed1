package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/graph"
)

// GraphInput contains parameters for the Graph operation.
type GraphInput struct {
	Limit       int      // default: 50, max: 500
	MinStrength *float64 // default: 0.3
	Tag         *string  // optional filter
}

// GraphOutput is the interest graph with its parameters echoed back.
type GraphOutput struct {
	*graph.Interest
	Limit       int     `json:"limit"`
	MinStrength float64 `json:"min_strength"`
}

// Graph returns the subgraph induced by the most recently created notes.
func Graph(ctx context.Context, database *sql.DB, input GraphInput) (*GraphOutput, error) {
	minStrength, err := resolveMinStrength(input.MinStrength)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(input.Limit, DefaultGraphLimit, MaxGraphLimit)

	g, err := graph.InterestGraph(ctx, db.NewStore(database), limit, minStrength, normalizeTag(input.Tag))
	if err != nil {
		return nil, err
	}

	return &GraphOutput{
		Interest:    g,
		Limit:       limit,
		MinStrength: minStrength,
	}, nil
}
