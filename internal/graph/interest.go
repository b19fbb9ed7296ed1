package graph

import (
	"context"

	"github.com/hpungsan/nexus/internal/note"
)

// Node is a note in the interest graph.
type Node struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"created_at"`
	Degree    int      `json:"degree"`
}

// Edge is a connection in the interest graph.
type Edge struct {
	ID       string     `json:"id"`
	Source   string     `json:"source"`
	Target   string     `json:"target"`
	Label    note.Label `json:"label"`
	Strength float64    `json:"strength"`
}

// Interest is the subgraph induced by recently created notes.
type Interest struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// InterestGraph returns the limit most recent notes (optionally only those
// tagged tag) and every edge of strength >= minStrength with both endpoints
// among them. Nodes keep recency order.
func InterestGraph(ctx context.Context, lister NodeLister, limit int, minStrength float64, tag *string) (*Interest, error) {
	notes, err := lister.RecentNotes(ctx, limit, tag)
	if err != nil {
		return nil, err
	}

	out := &Interest{Nodes: []Node{}, Edges: []Edge{}}
	if len(notes) == 0 {
		return out, nil
	}

	ids := make([]string, len(notes))
	index := make(map[string]int, len(notes))
	for i := range notes {
		ids[i] = notes[i].ID
		index[notes[i].ID] = i
		out.Nodes = append(out.Nodes, Node{
			ID:        notes[i].ID,
			Title:     notes[i].DisplayTitle(),
			Tags:      notes[i].Tags,
			CreatedAt: notes[i].CreatedAt,
		})
	}

	conns, err := lister.ConnectionsAmong(ctx, ids, minStrength)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		si, okS := index[c.SourceID]
		ti, okT := index[c.TargetID]
		if !okS || !okT || c.Strength < minStrength {
			continue
		}
		out.Edges = append(out.Edges, Edge{
			ID:       c.ID,
			Source:   c.SourceID,
			Target:   c.TargetID,
			Label:    c.Label,
			Strength: c.Strength,
		})
		out.Nodes[si].Degree++
		if ti != si {
			out.Nodes[ti].Degree++
		}
	}
	return out, nil
}
