package graph

import (
	"context"
	"sort"

	"github.com/hpungsan/nexus/internal/errors"
	"github.com/hpungsan/nexus/internal/note"
)

// Traverser walks connections outward from a root note. Edges are treated as
// undirected.
type Traverser struct {
	reader EdgeReader
}

// NewTraverser creates a traverser over reader.
func NewTraverser(reader EdgeReader) *Traverser {
	return &Traverser{reader: reader}
}

// Direct returns one result per edge touching root with strength >= minStrength.
// A note linked to root by two edges appears twice. Self-loops are skipped.
// The caller is responsible for checking that root exists.
func (t *Traverser) Direct(ctx context.Context, rootID string, minStrength float64) ([]note.TraversalResult, error) {
	conns, err := t.reader.ConnectionsTouching(ctx, []string{rootID}, minStrength)
	if err != nil {
		return nil, err
	}

	hits := make([]hit, 0, len(conns))
	for _, c := range conns {
		other := c.Other(rootID)
		if other == rootID || c.Strength < minStrength {
			continue
		}
		hits = append(hits, hit{id: other, depth: 1, label: c.Label, strength: c.Strength, via: rootID})
	}
	return t.resolve(ctx, hits)
}

// Deep runs a breadth-first search up to maxDepth hops. Each note is reported
// once, at the depth it was first reached, with the edge it was reached
// through. Within a level the frontier is expanded in id order and each
// note's edges strongest first, so ties resolve the same way every run.
// maxDepth <= 1 is Direct.
func (t *Traverser) Deep(ctx context.Context, rootID string, maxDepth int, minStrength float64) ([]note.TraversalResult, error) {
	if maxDepth <= 1 {
		return t.Direct(ctx, rootID, minStrength)
	}

	seen := map[string]bool{rootID: true}
	frontier := []string{rootID}
	var hits []hit

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("traversal")
		}

		sort.Strings(frontier)
		conns, err := t.reader.ConnectionsTouching(ctx, frontier, minStrength)
		if err != nil {
			return nil, err
		}

		inFrontier := make(map[string]bool, len(frontier))
		for _, id := range frontier {
			inFrontier[id] = true
		}
		byNode := make(map[string][]note.Connection, len(frontier))
		for _, c := range conns {
			if c.Strength < minStrength {
				continue
			}
			if inFrontier[c.SourceID] {
				byNode[c.SourceID] = append(byNode[c.SourceID], c)
			}
			if inFrontier[c.TargetID] && c.TargetID != c.SourceID {
				byNode[c.TargetID] = append(byNode[c.TargetID], c)
			}
		}

		var next []string
		for _, id := range frontier {
			edges := byNode[id]
			sort.SliceStable(edges, func(i, j int) bool {
				if edges[i].Strength != edges[j].Strength {
					return edges[i].Strength > edges[j].Strength
				}
				return edges[i].ID < edges[j].ID
			})
			for _, c := range edges {
				other := c.Other(id)
				if seen[other] {
					continue
				}
				seen[other] = true
				hits = append(hits, hit{id: other, depth: depth, label: c.Label, strength: c.Strength, via: id})
				next = append(next, other)
			}
		}
		frontier = next
	}

	return t.resolve(ctx, hits)
}

type hit struct {
	id       string
	depth    int
	label    note.Label
	strength float64
	via      string
}

// resolve loads the notes behind hits and orders the results by depth,
// strength desc, then id. Hits whose note vanished are dropped.
func (t *Traverser) resolve(ctx context.Context, hits []hit) ([]note.TraversalResult, error) {
	if len(hits) == 0 {
		return []note.TraversalResult{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	notes, err := t.reader.NotesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]note.TraversalResult, 0, len(hits))
	for _, h := range hits {
		n, ok := notes[h.id]
		if !ok {
			continue
		}
		results = append(results, note.TraversalResult{
			Summary:  n.ToSummary(),
			Depth:    h.depth,
			Label:    h.label,
			Strength: h.strength,
			Via:      h.via,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		return a.ID < b.ID
	})
	return results, nil
}
