package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"

	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// SimilaritySearch returns the k stored notes most similar to query, ranked by
// cosine similarity clamped to [0,1]. When tags is non-empty only notes holding
// every tag are considered. Notes whose embedding dimension differs from the
// query are skipped.
//
// The scan is brute force over the notes table; a personal knowledge base stays
// small enough that this beats maintaining an ANN index.
func SimilaritySearch(ctx context.Context, db *sql.DB, query []float32, k int, tags []string) ([]note.Candidate, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	conds := []string{"embedding_dim = ?"}
	args := []any{len(query)}
	for _, tag := range tags {
		conds = append(conds, tagCondition)
		args = append(args, tag)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, content, tags_json, created_at, embedding
		FROM notes
		WHERE `+strings.Join(conds, " AND "), args...)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	defer rows.Close()

	var candidates []note.Candidate
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("similarity search")
		}

		var (
			c        note.Candidate
			title    sql.NullString
			tagsJSON sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&c.ID, &title, &c.Content, &tagsJSON, &c.CreatedAt, &blob); err != nil {
			return nil, errors.NewPersistence(err)
		}
		vec, err := note.DecodeVector(blob)
		if err != nil {
			return nil, errors.NewPersistence(err)
		}
		c.Title = fromNullString(title)
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &c.Tags); err != nil {
				return nil, errors.NewPersistence(err)
			}
		}
		c.Similarity = note.Similarity(query, vec)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistence(err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if candidates[i].CreatedAt != candidates[j].CreatedAt {
			return candidates[i].CreatedAt > candidates[j].CreatedAt
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}
