package ops

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/note"
)

// summarizeConcurrency bounds parallel connection lookups.
const summarizeConcurrency = 4

// SummarizeInput contains parameters for the Summarize operation.
type SummarizeInput struct {
	Query       string   // required
	Tags        []string // optional filter on the matched notes
	Limit       int      // default: 5, max: 20
	MinStrength *float64 // default: 0.3
}

// SummarizeNote is a matched note with its full content.
type SummarizeNote struct {
	ID         string   `json:"id"`
	Title      *string  `json:"title,omitempty"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	Similarity float64  `json:"similarity"`
}

// SummarizeOutput is a context bundle around a query: the best matching notes,
// their neighbors, the connections among all of them and the dominant tags.
type SummarizeOutput struct {
	Query       string            `json:"query"`
	Notes       []SummarizeNote   `json:"notes"`
	Neighbors   []note.Summary    `json:"neighbors"`
	Connections []note.Connection `json:"connections"`
	TopTags     []db.TagCount     `json:"top_tags"`
	Summary     string            `json:"summary,omitempty"`
	Warnings    []Warning         `json:"warnings,omitempty"`
}

// Summarize gathers the notes most relevant to a query plus their direct
// neighborhood. With a summarizer configured it also writes a prose summary;
// a summarizer failure is a warning, not an error.
func Summarize(ctx context.Context, env *Env, input SummarizeInput) (out *SummarizeOutput, err error) {
	defer func() { env.Metrics.ObserveOperation("summarize", err) }()

	minStrength, err := resolveMinStrength(input.MinStrength)
	if err != nil {
		return nil, err
	}
	hits, err := similar(ctx, env, input.Query, input.Tags, clampLimit(input.Limit, DefaultSummarizeLimit, MaxSummarizeLimit), 0)
	if err != nil {
		return nil, err
	}

	out = &SummarizeOutput{
		Query:       input.Query,
		Notes:       make([]SummarizeNote, 0, len(hits)),
		Neighbors:   []note.Summary{},
		Connections: []note.Connection{},
		TopTags:     []db.TagCount{},
	}
	if len(hits) == 0 {
		return out, nil
	}

	inHits := make(map[string]bool, len(hits))
	for _, h := range hits {
		inHits[h.ID] = true
		out.Notes = append(out.Notes, SummarizeNote{
			ID:         h.ID,
			Title:      h.Title,
			Content:    h.Content,
			Tags:       h.Tags,
			CreatedAt:  h.CreatedAt,
			Similarity: h.Similarity,
		})
	}

	// Each hit's edges are loaded on its own goroutine; results land in
	// per-hit slots so no locking is needed.
	perHit := make([][]note.Connection, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summarizeConcurrency)
	for i, h := range hits {
		g.Go(func() error {
			conns, err := db.ConnectionsTouching(gctx, env.DB, []string{h.ID}, minStrength)
			if err != nil {
				return err
			}
			perHit[i] = conns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seenEdge := make(map[string]bool)
	var neighborIDs []string
	seenNeighbor := make(map[string]bool)
	for _, conns := range perHit {
		for _, c := range conns {
			if seenEdge[c.ID] {
				continue
			}
			seenEdge[c.ID] = true
			out.Connections = append(out.Connections, c)
			for _, id := range []string{c.SourceID, c.TargetID} {
				if !inHits[id] && !seenNeighbor[id] {
					seenNeighbor[id] = true
					neighborIDs = append(neighborIDs, id)
				}
			}
		}
	}
	sort.SliceStable(out.Connections, func(i, j int) bool {
		if out.Connections[i].Strength != out.Connections[j].Strength {
			return out.Connections[i].Strength > out.Connections[j].Strength
		}
		return out.Connections[i].ID < out.Connections[j].ID
	})

	tagCounts := make(map[string]int)
	for _, h := range hits {
		for _, t := range h.Tags {
			tagCounts[t]++
		}
	}

	if len(neighborIDs) > 0 {
		neighbors, err := db.GetNotesByIDs(ctx, env.DB, neighborIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range neighborIDs {
			n, ok := neighbors[id]
			if !ok {
				continue
			}
			out.Neighbors = append(out.Neighbors, n.ToSummary())
			for _, t := range n.Tags {
				tagCounts[t]++
			}
		}
	}
	out.TopTags = topTags(tagCounts, 10)

	if env.Summarizer != nil {
		notes := make([]note.Note, len(hits))
		for i, h := range hits {
			notes[i] = note.Note{ID: h.ID, Title: h.Title, Content: h.Content, Tags: h.Tags}
		}
		summary, err := env.Summarizer.Summarize(ctx, input.Query, notes)
		if err != nil {
			env.Logger.Warn("summarizer failed", zap.Error(err))
			env.Metrics.ObserveProviderFailure("summarize")
			out.Warnings = append(out.Warnings, Warning{
				Code:    WarnSummarizerFailed,
				Message: "summary unavailable: " + err.Error(),
			})
		} else {
			out.Summary = summary
		}
	}

	return out, nil
}

// topTags returns the limit most frequent tags, ties broken alphabetically.
func topTags(counts map[string]int, limit int) []db.TagCount {
	out := make([]db.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, db.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
