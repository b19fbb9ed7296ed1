package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// Digest limits
const (
	DefaultDigestDays    = 7
	MaxDigestDays        = 365
	DigestTopTags        = 10
	DigestTopConnections = 10
	DefaultDigestNotes   = 20
	MaxDigestNotes       = 100
	secondsPerDay        = 24 * 60 * 60
)

// DigestInput contains parameters for the Digest operation.
type DigestInput struct {
	Days  int // default: 7, max: 365
	Limit int // notes listed, default: 20, max: 100
}

// DigestConnection is a connection created in the window, with endpoint titles.
type DigestConnection struct {
	note.Connection
	SourceTitle string `json:"source_title"`
	TargetTitle string `json:"target_title"`
}

// DigestOutput summarizes recent activity.
type DigestOutput struct {
	Days                 int                `json:"days"`
	Since                int64              `json:"since"`
	NoteCount            int                `json:"note_count"`
	Notes                []note.Summary     `json:"notes"`
	TopTags              []db.TagCount      `json:"top_tags"`
	ConnectionCount      int                `json:"connection_count"`
	StrongestConnections []DigestConnection `json:"strongest_connections"`
}

// Digest reports notes and connections created in the last days.
func Digest(ctx context.Context, database *sql.DB, input DigestInput) (*DigestOutput, error) {
	days := input.Days
	if days < 0 {
		return nil, errors.NewInvalidRequest("days must not be negative")
	}
	days = clampLimit(days, DefaultDigestDays, MaxDigestDays)
	limit := clampLimit(input.Limit, DefaultDigestNotes, MaxDigestNotes)
	since := time.Now().Unix() - int64(days)*secondsPerDay

	notes, noteCount, err := db.ListNotes(ctx, database, db.ListFilter{Since: &since}, limit, 0)
	if err != nil {
		return nil, err
	}
	summaries := make([]note.Summary, len(notes))
	for i := range notes {
		summaries[i] = notes[i].ToSummary()
	}

	tags, err := db.TagCounts(ctx, database, since, DigestTopTags)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []db.TagCount{}
	}

	conns, connCount, err := db.ConnectionsCreatedSince(ctx, database, since, DigestTopConnections)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, 2*len(conns))
	for _, c := range conns {
		ids = append(ids, c.SourceID, c.TargetID)
	}
	titles, err := db.GetNotesByIDs(ctx, database, ids)
	if err != nil {
		return nil, err
	}
	strongest := make([]DigestConnection, 0, len(conns))
	for _, c := range conns {
		dc := DigestConnection{Connection: c}
		if n, ok := titles[c.SourceID]; ok {
			dc.SourceTitle = n.DisplayTitle()
		}
		if n, ok := titles[c.TargetID]; ok {
			dc.TargetTitle = n.DisplayTitle()
		}
		strongest = append(strongest, dc)
	}

	return &DigestOutput{
		Days:                 days,
		Since:                since,
		NoteCount:            noteCount,
		Notes:                summaries,
		TopTags:              tags,
		ConnectionCount:      connCount,
		StrongestConnections: strongest,
	}, nil
}
