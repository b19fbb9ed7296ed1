package note

// Origin records how a note entered the knowledge base.
type Origin string

const (
	OriginManual       Origin = "manual"
	OriginAuto         Origin = "auto"
	OriginConversation Origin = "conversation"
)

// ValidOrigin reports whether o is one of the known origins.
func ValidOrigin(o Origin) bool {
	switch o {
	case OriginManual, OriginAuto, OriginConversation:
		return true
	}
	return false
}

// Note is a stored unit of text content with tags, origin, and embedding.
type Note struct {
	// ID is a ULID that uniquely identifies this note
	ID string

	// Title is an optional human-readable title
	Title *string

	// Content is the note body
	Content string

	// ContentChars is the character count (runes, not bytes)
	ContentChars int

	// Tags are normalized, deduplicated and sorted (stored as JSON in DB)
	Tags []string

	// Origin is one of manual, auto, conversation
	Origin Origin

	// Embedding is computed once before the note is inserted and never changes
	Embedding []float32

	// CreatedAt is the Unix timestamp when the note was created
	CreatedAt int64

	// UpdatedAt is the Unix timestamp when the note was last updated
	UpdatedAt int64
}

// Summary is a note without its embedding, with the content cut to a preview.
// Used by list, search, and traversal results.
type Summary struct {
	ID           string   `json:"id"`
	Title        *string  `json:"title,omitempty"`
	Preview      string   `json:"preview"`
	ContentChars int      `json:"content_chars"`
	Tags         []string `json:"tags,omitempty"`
	Origin       Origin   `json:"origin"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// PreviewChars is the preview length used by ToSummary.
const PreviewChars = 200

// ToSummary converts a Note to a Summary.
func (n *Note) ToSummary() Summary {
	return Summary{
		ID:           n.ID,
		Title:        n.Title,
		Preview:      Preview(n.Content, PreviewChars),
		ContentChars: n.ContentChars,
		Tags:         n.Tags,
		Origin:       n.Origin,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

// DisplayTitle returns the title, or a preview of the content when untitled.
func (n *Note) DisplayTitle() string {
	if n.Title != nil && *n.Title != "" {
		return *n.Title
	}
	return Preview(n.Content, 60)
}

// Candidate is a note projection scored against a query vector. Never persisted.
type Candidate struct {
	ID         string   `json:"id"`
	Title      *string  `json:"title,omitempty"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	Similarity float64  `json:"similarity"`
}

// Subject is the new note handed to a relationship classifier.
type Subject struct {
	ID      string
	Title   *string
	Content string
	Tags    []string
}

// Proposal is a relationship suggested by a classifier or a fallback policy.
type Proposal struct {
	NoteID    string  `json:"note_id"`
	Label     Label   `json:"label"`
	Strength  float64 `json:"strength"`
	Reasoning string  `json:"reasoning"`
}

// TraversalResult is a note reached from a traversal root. Never persisted.
type TraversalResult struct {
	Summary
	Depth    int     `json:"depth"`
	Label    Label   `json:"label"`
	Strength float64 `json:"strength"`
	// Via is the note on the other end of the edge this note was reached through.
	Via string `json:"via"`
}
