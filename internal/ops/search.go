package ops

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query         string   // required
	Tags          []string // optional: notes must carry every tag
	Limit         int      // default: 10, max: 50
	MinSimilarity float64  // default: 0
}

// SearchResultItem is a note ranked against the query.
type SearchResultItem struct {
	ID         string   `json:"id"`
	Title      *string  `json:"title,omitempty"`
	Preview    string   `json:"preview"`
	Tags       []string `json:"tags,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	Similarity float64  `json:"similarity"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items []SearchResultItem `json:"items"`
	Count int                `json:"count"`
	Sort  string             `json:"sort"` // "similarity_desc"
}

// Search embeds the query and returns the most similar notes.
func Search(ctx context.Context, env *Env, input SearchInput) (out *SearchOutput, err error) {
	defer func() { env.Metrics.ObserveOperation("search", err) }()

	candidates, err := similar(ctx, env, input.Query, input.Tags, clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit), input.MinSimilarity)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, SearchResultItem{
			ID:         c.ID,
			Title:      c.Title,
			Preview:    note.Preview(c.Content, note.PreviewChars),
			Tags:       c.Tags,
			CreatedAt:  c.CreatedAt,
			Similarity: c.Similarity,
		})
	}

	return &SearchOutput{
		Items: items,
		Count: len(items),
		Sort:  "similarity_desc",
	}, nil
}

// similar validates a query, embeds it and runs the similarity search.
// Shared by Search and Summarize.
func similar(ctx context.Context, env *Env, query string, tags []string, limit int, minSimilarity float64) ([]note.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return nil, errors.NewInvalidRequest("min_similarity must be between 0 and 1")
	}

	vec, err := env.Embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("search")
		}
		env.Metrics.ObserveProviderFailure("embed")
		return nil, errors.NewProvider("embedding", err)
	}
	if err := checkDimension(ctx, env.DB, len(vec)); err != nil {
		return nil, err
	}

	candidates, err := db.SimilaritySearch(ctx, env.DB, vec, limit, note.NormalizeTags(tags))
	if err != nil {
		return nil, err
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Similarity >= minSimilarity {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}
