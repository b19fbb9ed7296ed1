package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Names follow "type_action" so DisabledTypes can switch
// off a whole family.

var saveToolDef = mcp.NewTool("note_save",
	mcp.WithDescription("Save a note. The note is embedded, stored, then linked to related notes with typed, weighted connections (supports, contradicts, follows_from, expands_on, related_to). Relationship problems come back as warnings; the note is still saved."),
	mcp.WithString("content", mcp.Required(), mcp.Description("Note body")),
	mcp.WithString("title", mcp.Description("Optional title")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags, normalized to lowercase")),
	mcp.WithString("origin", mcp.Enum("manual", "auto", "conversation"), mcp.Description("How the note was captured (default: manual)")),
)

var fetchToolDef = mcp.NewTool("note_fetch",
	mcp.WithDescription("Fetch a note by id with its direct connections."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	mcp.WithBoolean("include_connections", mcp.Description("Include direct connections (default: true)")),
)

var searchToolDef = mcp.NewTool("note_search",
	mcp.WithDescription("Semantic search over notes, ranked by similarity to the query."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Only notes carrying every tag")),
	mcp.WithNumber("limit", mcp.Description("Max results (default: 10, max: 50)")),
	mcp.WithNumber("min_similarity", mcp.Min(0), mcp.Max(1), mcp.Description("Drop results below this similarity (default: 0)")),
)

var connectionsToolDef = mcp.NewTool("note_connections",
	mcp.WithDescription("Walk the graph outward from a note. Each reachable note is reported once at the depth it was first reached."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Root note id")),
	mcp.WithNumber("depth", mcp.Description("Hops to follow (default: 1, capped by max_traversal_depth)")),
	mcp.WithNumber("min_strength", mcp.Min(0), mcp.Max(1), mcp.Description("Ignore weaker connections (default: 0.3)")),
)

var summarizeToolDef = mcp.NewTool("note_summarize",
	mcp.WithDescription("Gather the notes most relevant to a query, their neighbors, the connections among them and the dominant tags. Adds a prose summary when a summarizer is configured."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Topic to summarize")),
	mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Only match notes carrying every tag")),
	mcp.WithNumber("limit", mcp.Description("Matched notes (default: 5, max: 20)")),
	mcp.WithNumber("min_strength", mcp.Min(0), mcp.Max(1), mcp.Description("Ignore weaker connections (default: 0.3)")),
)

var digestToolDef = mcp.NewTool("note_digest",
	mcp.WithDescription("Recent activity: notes saved, top tags and the strongest new connections in the last N days."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("days", mcp.Description("Window in days (default: 7, max: 365)")),
	mcp.WithNumber("limit", mcp.Description("Notes listed (default: 20, max: 100)")),
)

var deleteToolDef = mcp.NewTool("note_delete",
	mcp.WithDescription("Permanently delete a note and every connection touching it."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
)

var listToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List notes, most recent first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("tag", mcp.Description("Only notes with this tag")),
	mcp.WithString("origin", mcp.Enum("manual", "auto", "conversation"), mcp.Description("Only notes with this origin")),
	mcp.WithNumber("limit", mcp.Description("Page size (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Page offset (default: 0)")),
)

var interestToolDef = mcp.NewTool("graph_interest",
	mcp.WithDescription("The interest graph: the most recent notes as nodes and the connections among them as edges."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Nodes (default: 50, max: 500)")),
	mcp.WithNumber("min_strength", mcp.Min(0), mcp.Max(1), mcp.Description("Ignore weaker connections (default: 0.3)")),
	mcp.WithString("tag", mcp.Description("Only notes with this tag")),
)

var statsToolDef = mcp.NewTool("graph_stats",
	mcp.WithDescription("Counts of notes and connections by label, the embedding dimension and the most used tags."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("note_export",
	mcp.WithDescription("Export every note (with embedding) and connection to a JSONL file."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file (default: ~/.nexus/exports/nexus-<timestamp>.jsonl)")),
)

var importToolDef = mcp.NewTool("note_import",
	mcp.WithDescription("Import notes and connections from a JSONL export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl file")),
	mcp.WithString("mode", mcp.Enum("error", "replace", "skip"), mcp.Description("Collision handling (default: error, atomic)")),
)
