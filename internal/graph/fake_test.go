package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hpungsan/nexus/internal/note"
)

// memStore is an in-memory store implementing every graph interface.
type memStore struct {
	mu         sync.Mutex
	notes      map[string]*note.Note
	conns      []note.Connection
	candidates []note.Candidate
	searchErr  error
	failUpsert map[string]bool // target ids whose upsert fails
	calls      map[string]int
	nextID     int
}

func newMemStore() *memStore {
	return &memStore{
		notes:      make(map[string]*note.Note),
		failUpsert: make(map[string]bool),
		calls:      make(map[string]int),
	}
}

func (m *memStore) addNote(id string, createdAt int64, tags ...string) {
	m.notes[id] = &note.Note{ID: id, Content: "content of " + id, Tags: tags, CreatedAt: createdAt}
}

func (m *memStore) connect(id, source, target string, label note.Label, strength float64) {
	m.conns = append(m.conns, note.Connection{ID: id, SourceID: source, TargetID: target, Label: label, Strength: strength})
}

func (m *memStore) SimilaritySearch(_ context.Context, _ []float32, k int, _ []string) ([]note.Candidate, error) {
	m.calls["search"]++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := append([]note.Candidate(nil), m.candidates...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memStore) UpsertConnection(_ context.Context, c note.Connection) (*note.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["upsert"]++
	if m.failUpsert[c.TargetID] {
		return nil, errors.New("disk full")
	}
	for i := range m.conns {
		e := &m.conns[i]
		if e.SourceID == c.SourceID && e.TargetID == c.TargetID && e.Label == c.Label {
			e.Strength = c.Strength
			e.Reasoning = c.Reasoning
			stored := *e
			return &stored, nil
		}
	}
	m.nextID++
	c.ID = fmt.Sprintf("edge-%02d", m.nextID)
	m.conns = append(m.conns, c)
	return &c, nil
}

func (m *memStore) ConnectionsTouching(_ context.Context, ids []string, minStrength float64) ([]note.Connection, error) {
	m.calls["touching"]++
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	var out []note.Connection
	for _, c := range m.conns {
		if (set[c.SourceID] || set[c.TargetID]) && c.Strength >= minStrength {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ConnectionsAmong(_ context.Context, ids []string, minStrength float64) ([]note.Connection, error) {
	m.calls["among"]++
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	var out []note.Connection
	for _, c := range m.conns {
		if set[c.SourceID] && set[c.TargetID] && c.Strength >= minStrength {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) NotesByID(_ context.Context, ids []string) (map[string]*note.Note, error) {
	out := make(map[string]*note.Note)
	for _, id := range ids {
		if n, ok := m.notes[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (m *memStore) RecentNotes(_ context.Context, limit int, tag *string) ([]note.Note, error) {
	var out []note.Note
	for _, n := range m.notes {
		if tag != nil && !note.HasAllTags(n.Tags, []string{*tag}) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// stubClassifier returns scripted proposals.
type stubClassifier struct {
	proposals []note.Proposal
	err       error
	calls     int
	seen      []note.Candidate
}

func (s *stubClassifier) Classify(_ context.Context, _ note.Subject, candidates []note.Candidate) ([]note.Proposal, error) {
	s.calls++
	s.seen = candidates
	return s.proposals, s.err
}

// panicClassifier fails the way a misbehaving model client would.
type panicClassifier struct{}

func (panicClassifier) Classify(context.Context, note.Subject, []note.Candidate) ([]note.Proposal, error) {
	panic("model client blew up")
}

// panicEdges panics on every write.
type panicEdges struct{}

func (panicEdges) UpsertConnection(context.Context, note.Connection) (*note.Connection, error) {
	panic("driver bug")
}
