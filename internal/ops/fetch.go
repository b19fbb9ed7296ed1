package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/graph"
	"github.com/hpungsan/nexus/internal/note"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID                 string
	IncludeConnections *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	NoteOutput
	Connections []note.TraversalResult `json:"connections,omitempty"`
}

// Fetch retrieves a note by id along with its direct connections.
func Fetch(ctx context.Context, database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	n, err := db.GetNoteByID(ctx, database, id)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{NoteOutput: toNoteOutput(n)}

	includeConnections := true
	if input.IncludeConnections != nil {
		includeConnections = *input.IncludeConnections
	}
	if includeConnections {
		conns, err := graph.NewTraverser(db.NewStore(database)).Direct(ctx, id, 0)
		if err != nil {
			return nil, err
		}
		output.Connections = conns
	}

	return output, nil
}
