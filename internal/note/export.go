package note

// Record kinds in a JSONL export file.
const (
	RecordNote       = "note"
	RecordConnection = "connection"
)

// ExportRecord is one line of a JSONL export file.
// The header line sets NexusExport; every other line sets Kind and one payload.
type ExportRecord struct {
	// Header detection field - true only for header line
	NexusExport bool `json:"_nexus_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	Kind       string      `json:"kind,omitempty"`
	Note       *NoteRecord `json:"note,omitempty"`
	Connection *Connection `json:"connection,omitempty"`
}

// NoteRecord is the exported form of a Note. The embedding travels with it so
// an import does not need an embedding provider.
type NoteRecord struct {
	ID        string    `json:"id"`
	Title     *string   `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Origin    Origin    `json:"origin"`
	Embedding []float32 `json:"embedding"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// ToNote converts a NoteRecord to a Note, recomputing derived fields.
func (r *NoteRecord) ToNote() *Note {
	origin := r.Origin
	if origin == "" {
		origin = OriginManual
	}
	return &Note{
		ID:           r.ID,
		Title:        r.Title,
		Content:      r.Content,
		ContentChars: CountChars(r.Content),
		Tags:         NormalizeTags(r.Tags),
		Origin:       origin,
		Embedding:    r.Embedding,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// NoteToRecord converts a Note to its export form.
func NoteToRecord(n *Note) *NoteRecord {
	return &NoteRecord{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      n.Tags,
		Origin:    n.Origin,
		Embedding: n.Embedding,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
