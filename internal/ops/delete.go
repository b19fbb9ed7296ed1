package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/nexus/internal/db"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted            bool   `json:"deleted"`
	ID                 string `json:"id"`
	ConnectionsRemoved int    `json:"connections_removed"`
}

// Delete permanently removes a note and every connection touching it.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}

	removed, err := db.DeleteNote(ctx, database, id)
	if err != nil {
		return nil, err
	}

	return &DeleteOutput{
		Deleted:            true,
		ID:                 id,
		ConnectionsRemoved: removed,
	}, nil
}
