// Package ops implements the operations exposed by the MCP tools, the CLI and
// the web UI. Each operation validates its input, applies defaults and returns
// a JSON-ready output struct or a typed error.
package ops

import (
	"database/sql"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/graph"
	"github.com/hpungsan/nexus/internal/metrics"
	"github.com/hpungsan/nexus/internal/note"
	"github.com/hpungsan/nexus/internal/provider"
)

// Pagination and result limits
const (
	DefaultListLimit      = 20
	MaxListLimit          = 100
	DefaultSearchLimit    = 10
	MaxSearchLimit        = 50
	DefaultSummarizeLimit = 5
	MaxSummarizeLimit     = 20
	DefaultGraphLimit     = 50
	MaxGraphLimit         = 500
	DefaultMinStrength    = 0.3
	MaxQueryLength        = 2000
)

// Warning codes beyond those raised by the connection engine.
const (
	WarnSummarizerFailed = "SUMMARIZER_FAILED"
)

// Warning is a non-fatal problem reported next to a successful result.
type Warning = graph.Warning

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Env carries the dependencies of operations that need more than the database:
// the embedding provider, the connection engine and the optional summarizer.
type Env struct {
	DB         *sql.DB
	Config     *config.Config
	Embedder   provider.Embedder
	Engine     *graph.Engine
	Summarizer provider.Summarizer
	Logger     *zap.Logger
	Metrics    *metrics.Collector
}

// NewEnv wires providers to the store. logger and m may be nil.
func NewEnv(database *sql.DB, cfg *config.Config, providers *provider.Set, logger *zap.Logger, m *metrics.Collector) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := db.NewStore(database)
	return &Env{
		DB:       database,
		Config:   cfg,
		Embedder: providers.Embedder,
		Engine: graph.NewEngine(store, providers.Classifier, store,
			graph.WithLogger(logger.Named("engine")),
			graph.WithMetrics(m)),
		Summarizer: providers.Summarizer,
		Logger:     logger,
		Metrics:    m,
	}
}

// NoteOutput is a full note as returned to callers. The embedding is never
// exposed; only its dimension.
type NoteOutput struct {
	ID           string      `json:"id"`
	Title        *string     `json:"title,omitempty"`
	Content      string      `json:"content"`
	ContentChars int         `json:"content_chars"`
	Tags         []string    `json:"tags,omitempty"`
	Origin       note.Origin `json:"origin"`
	EmbeddingDim int         `json:"embedding_dim,omitempty"`
	CreatedAt    int64       `json:"created_at"`
	UpdatedAt    int64       `json:"updated_at"`
}

func toNoteOutput(n *note.Note) NoteOutput {
	return NoteOutput{
		ID:           n.ID,
		Title:        n.Title,
		Content:      n.Content,
		ContentChars: n.ContentChars,
		Tags:         n.Tags,
		Origin:       n.Origin,
		EmbeddingDim: len(n.Embedding),
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}

// cleanOptionalString trims s and returns nil when the result is empty.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// normalizeTag normalizes an optional tag filter.
func normalizeTag(tag *string) *string {
	if tag == nil {
		return nil
	}
	t := note.Normalize(*tag)
	if t == "" {
		return nil
	}
	return &t
}

// resolveMinStrength applies the default and checks the [0,1] range.
func resolveMinStrength(v *float64) (float64, error) {
	if v == nil {
		return DefaultMinStrength, nil
	}
	if math.IsNaN(*v) || *v < 0 || *v > 1 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("min_strength must be between 0 and 1, got %v", *v))
	}
	return *v, nil
}

// clampLimit applies a default for non-positive limits and caps at max.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// requireID trims and checks a note id argument.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}
