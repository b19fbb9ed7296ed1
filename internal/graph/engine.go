package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/nexus/internal/metrics"
	"github.com/hpungsan/nexus/internal/note"
)

// DefaultTopK is the number of similar notes considered per save.
const DefaultTopK = 10

// PreviewChars bounds the candidate content handed to the classifier.
const PreviewChars = 500

// Fixed reasoning attached to similarity-only edges.
const (
	ReasonClassifierUnavailable = "Semantic similarity (relationship classifier unavailable)"
	ReasonNoSpecificRelation    = "High semantic similarity (no specific relationship identified)"
)

// ConnectResult is what Connect produced for one note.
type ConnectResult struct {
	Connections []note.Connection `json:"connections"`
	Warning     *Warning          `json:"warning,omitempty"`
}

// Engine links a saved note to the notes it relates to.
type Engine struct {
	index      SimilarityIndex
	classifier Classifier
	edges      EdgeWriter
	logger     *zap.Logger
	metrics    *metrics.Collector
	policies   []policy
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a connection engine.
func NewEngine(index SimilarityIndex, classifier Classifier, edges EdgeWriter, opts ...EngineOption) *Engine {
	e := &Engine{
		index:      index,
		classifier: classifier,
		edges:      edges,
		logger:     zap.NewNop(),
		policies:   defaultPolicies(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// classification is what a policy looks at.
type classification struct {
	candidates []note.Candidate // similarity desc
	proposals  []note.Proposal
	err        error
}

// policy turns a classification into proposals. Policies are tried in order
// and the first whose match returns true decides.
type policy struct {
	tier    string
	match   func(c classification) bool
	propose func(c classification) ([]note.Proposal, *Warning)
}

func defaultPolicies() []policy {
	return []policy{
		{
			tier:  "classifier_failed",
			match: func(c classification) bool { return c.err != nil },
			propose: func(c classification) ([]note.Proposal, *Warning) {
				return similarityProposals(c.candidates, 0.4, 3, ReasonClassifierUnavailable), &Warning{
					Code:    WarnClassifierFailed,
					Message: fmt.Sprintf("relationship classifier failed, used similarity fallback: %v", c.err),
				}
			},
		},
		{
			tier:  "classifier_empty",
			match: func(c classification) bool { return len(c.proposals) == 0 },
			propose: func(c classification) ([]note.Proposal, *Warning) {
				return similarityProposals(c.candidates, 0.5, 2, ReasonNoSpecificRelation), nil
			},
		},
		{
			tier:  "classifier",
			match: func(classification) bool { return true },
			propose: func(c classification) ([]note.Proposal, *Warning) {
				return c.proposals, nil
			},
		},
	}
}

// similarityProposals synthesizes related_to proposals from the best candidates.
func similarityProposals(candidates []note.Candidate, threshold float64, max int, reasoning string) []note.Proposal {
	var out []note.Proposal
	for _, c := range candidates {
		if len(out) == max {
			break
		}
		if c.Similarity < threshold {
			continue
		}
		out = append(out, note.Proposal{
			NoteID:    c.ID,
			Label:     note.LabelRelatedTo,
			Strength:  note.ClampStrength(c.Similarity),
			Reasoning: reasoning,
		})
	}
	return out
}

// Connect finds notes similar to n, classifies how n relates to them (falling
// back to similarity when classification fails or finds nothing) and persists
// the resulting edges with n as source. n must already be stored.
//
// Connect never fails: any problem after the note is saved is reported as a
// warning next to whatever edges were persisted.
func (e *Engine) Connect(ctx context.Context, n *note.Note, topK int) (res ConnectResult) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	log := e.logger.With(zap.String("note_id", n.ID))

	// One extra slot since the note itself is usually the top hit.
	found, err := e.index.SimilaritySearch(ctx, n.Embedding, topK+1, nil)
	if err != nil {
		log.Warn("similarity search failed", zap.Error(err))
		return ConnectResult{Warning: incomplete(err)}
	}

	candidates := make([]note.Candidate, 0, len(found))
	for _, c := range found {
		if c.ID != n.ID {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	if len(candidates) == 0 {
		return ConnectResult{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	subject := note.Subject{ID: n.ID, Title: n.Title, Content: n.Content, Tags: n.Tags}
	cls := classification{candidates: candidates}
	cls.proposals, cls.err = e.classify(ctx, subject, previews(candidates))
	if cls.err != nil {
		log.Warn("classifier failed, using similarity fallback", zap.Error(cls.err))
		e.metrics.ObserveProviderFailure("classify")
	}

	var (
		proposals []note.Proposal
		warning   *Warning
	)
	for _, p := range e.policies {
		if p.match(cls) {
			proposals, warning = p.propose(cls)
			e.metrics.ObserveTier(p.tier)
			log.Debug("connect policy selected",
				zap.String("tier", p.tier),
				zap.Int("candidates", len(candidates)),
				zap.Int("proposals", len(proposals)))
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return ConnectResult{Warning: joinWarnings(warning, incomplete(err))}
	}

	var (
		created   []note.Connection
		attempted int
		failed    int
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while persisting connections", zap.Any("panic", r))
			res = ConnectResult{
				Connections: created,
				Warning:     joinWarnings(warning, incomplete(fmt.Errorf("panic: %v", r))),
			}
		}
	}()
	for _, p := range dedupeProposals(proposals) {
		if p.NoteID == n.ID {
			continue
		}
		attempted++

		var reasoning *string
		if p.Reasoning != "" {
			r := p.Reasoning
			reasoning = &r
		}
		stored, err := e.edges.UpsertConnection(ctx, note.Connection{
			SourceID:  n.ID,
			TargetID:  p.NoteID,
			Label:     p.Label,
			Strength:  note.ClampStrength(p.Strength),
			Reasoning: reasoning,
		})
		if err != nil {
			failed++
			log.Warn("failed to persist connection",
				zap.String("target_id", p.NoteID),
				zap.String("label", string(p.Label)),
				zap.Error(err))
			continue
		}
		created = append(created, *stored)
	}
	e.metrics.ObserveEdges(len(created), failed)

	if failed > 0 {
		warning = joinWarnings(warning, &Warning{
			Code:    WarnPartialEnrichment,
			Message: fmt.Sprintf("%d of %d connections failed to persist", failed, attempted),
		})
	}

	return ConnectResult{Connections: created, Warning: warning}
}

// classify runs the classifier, turning a panic into an error so the
// similarity fallback still applies.
func (e *Engine) classify(ctx context.Context, subject note.Subject, candidates []note.Candidate) (proposals []note.Proposal, err error) {
	defer func() {
		if r := recover(); r != nil {
			proposals, err = nil, fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return e.classifier.Classify(ctx, subject, candidates)
}

// previews copies candidates with their content cut to PreviewChars.
func previews(candidates []note.Candidate) []note.Candidate {
	out := make([]note.Candidate, len(candidates))
	for i, c := range candidates {
		c.Content = note.Preview(c.Content, PreviewChars)
		out[i] = c
	}
	return out
}

// dedupeProposals keeps one proposal per (note, label). The last one wins,
// matching the upsert, at the position of the first.
func dedupeProposals(proposals []note.Proposal) []note.Proposal {
	type key struct {
		id    string
		label note.Label
	}
	index := make(map[key]int, len(proposals))
	out := make([]note.Proposal, 0, len(proposals))
	for _, p := range proposals {
		k := key{p.NoteID, p.Label}
		if i, ok := index[k]; ok {
			out[i] = p
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out
}

func incomplete(err error) *Warning {
	return &Warning{
		Code:    WarnPartialEnrichment,
		Message: fmt.Sprintf("note saved, relationship analysis incomplete: %v", err),
	}
}

// joinWarnings merges b into a. The first warning's code is kept.
func joinWarnings(a, b *Warning) *Warning {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &Warning{
		Code:    a.Code,
		Message: strings.Join([]string{a.Message, b.Message}, "; "),
	}
}
