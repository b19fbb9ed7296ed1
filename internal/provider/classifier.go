package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/hpungsan/nexus/internal/note"
)

// CandidatePreviewChars bounds how much of each note the summarizer sends to
// the model.
const CandidatePreviewChars = 500

// ErrClassifierDisabled is returned when no chat model is configured.
var ErrClassifierDisabled = errors.New("relationship classifier not configured")

// DisabledClassifier always fails, which sends Connect down the similarity fallback.
type DisabledClassifier struct{}

// Classify implements Classifier.
func (DisabledClassifier) Classify(context.Context, note.Subject, []note.Candidate) ([]note.Proposal, error) {
	return nil, ErrClassifierDisabled
}

const classifySystemPrompt = `You analyze a personal knowledge base and decide how a NEW note relates to existing notes.

For each existing note that is genuinely related to the NEW note, output one relationship:
- "supports": the new note provides evidence for or agrees with it
- "contradicts": the new note disagrees with or undermines it
- "follows_from": the new note is a consequence or next step of it
- "expands_on": the new note adds detail or depth to it
- "related_to": same topic, none of the above fits

strength is a number between 0 and 1 expressing how strong the relationship is.
Skip notes that are unrelated. Respond with JSON only, no prose:
{"connections": [{"note_id": "...", "label": "...", "strength": 0.0, "reasoning": "one sentence"}]}`

// LLMClassifier asks a chat model to label relationships.
type LLMClassifier struct {
	chat model.BaseChatModel
}

// NewLLMClassifier creates a classifier backed by chat.
func NewLLMClassifier(chat model.BaseChatModel) *LLMClassifier {
	return &LLMClassifier{chat: chat}
}

// Classify implements Classifier. Entries with an unknown label, a strength
// outside [0,1] or a note id that was not a candidate are dropped.
func (c *LLMClassifier) Classify(ctx context.Context, subject note.Subject, candidates []note.Candidate) ([]note.Proposal, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	resp, err := c.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(classifySystemPrompt),
		schema.UserMessage(buildClassifyPrompt(subject, candidates)),
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("generate: empty response")
	}

	raw, err := parseClassification(resp.Content)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		known[cand.ID] = true
	}

	var out []note.Proposal
	for _, p := range raw {
		if !known[p.NoteID] || !note.ValidLabel(p.Label) {
			continue
		}
		if p.Strength < 0 || p.Strength > 1 {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func buildClassifyPrompt(subject note.Subject, candidates []note.Candidate) string {
	var sb strings.Builder

	sb.WriteString("NEW note:\n")
	if subject.Title != nil && *subject.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", *subject.Title)
	}
	if len(subject.Tags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(subject.Tags, ", "))
	}
	fmt.Fprintf(&sb, "Content: %s\n\n", subject.Content)

	sb.WriteString("EXISTING notes:\n")
	for _, cand := range candidates {
		fmt.Fprintf(&sb, "- note_id: %s\n", cand.ID)
		if cand.Title != nil && *cand.Title != "" {
			fmt.Fprintf(&sb, "  title: %s\n", *cand.Title)
		}
		if len(cand.Tags) > 0 {
			fmt.Fprintf(&sb, "  tags: %s\n", strings.Join(cand.Tags, ", "))
		}
		fmt.Fprintf(&sb, "  similarity: %.2f\n", cand.Similarity)
		fmt.Fprintf(&sb, "  content: %s\n", cand.Content)
	}
	return sb.String()
}

// parseClassification accepts either {"connections": [...]} or a bare array,
// optionally wrapped in a markdown code fence.
func parseClassification(response string) ([]note.Proposal, error) {
	cleaned := extractJSON(response)
	if cleaned == "" {
		return nil, fmt.Errorf("no JSON found in classifier response")
	}

	if strings.HasPrefix(cleaned, "[") {
		var list []note.Proposal
		if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
			return nil, fmt.Errorf("parse classifier response: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Connections []note.Proposal `json:"connections"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}
	return wrapped.Connections, nil
}

// extractJSON strips code fences and returns the outermost object or array.
func extractJSON(response string) string {
	s := strings.TrimSpace(response)
	if idx := strings.Index(s, "```"); idx != -1 {
		start := idx + 3
		// Skip language identifier if present
		if nl := strings.Index(s[start:], "\n"); nl != -1 {
			start += nl + 1
		}
		if end := strings.Index(s[start:], "```"); end != -1 {
			s = strings.TrimSpace(s[start : start+end])
		}
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}
