package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Tag    *string // optional filter
	Origin *string // optional filter
	Limit  int     // default: 20, max: 100
	Offset int     // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []note.Summary `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// List retrieves note summaries, most recent first, with pagination.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	filter := db.ListFilter{Tag: normalizeTag(input.Tag)}
	if o := cleanOptionalString(input.Origin); o != nil {
		origin := note.Origin(strings.ToLower(*o))
		if !note.ValidOrigin(origin) {
			return nil, errors.NewInvalidRequest("origin must be one of: manual, auto, conversation")
		}
		filter.Origin = &origin
	}

	// Apply limit defaults and bounds
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)

	// Ensure offset is non-negative
	offset := max(input.Offset, 0)

	notes, total, err := db.ListNotes(ctx, database, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	summaries := make([]note.Summary, len(notes))
	for i := range notes {
		summaries[i] = notes[i].ToSummary()
	}

	// Calculate has_more
	hasMore := offset+len(summaries) < total

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: hasMore,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}
