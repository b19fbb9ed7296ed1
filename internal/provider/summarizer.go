package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/hpungsan/nexus/internal/note"
)

const summarizeSystemPrompt = `You summarize notes from a personal knowledge base.
Write 3-5 sentences that synthesize what the notes say about the user's query.
Mention agreements and contradictions between notes. Do not invent facts.`

// LLMSummarizer asks a chat model for a short synthesis.
type LLMSummarizer struct {
	chat model.BaseChatModel
}

// NewLLMSummarizer creates a summarizer backed by chat.
func NewLLMSummarizer(chat model.BaseChatModel) *LLMSummarizer {
	return &LLMSummarizer{chat: chat}
}

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, query string, notes []note.Note) (string, error) {
	if len(notes) == 0 {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nNotes:\n", query)
	for i := range notes {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, notes[i].DisplayTitle(),
			note.Preview(notes[i].Content, CandidatePreviewChars))
	}

	resp, err := s.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(summarizeSystemPrompt),
		schema.UserMessage(sb.String()),
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("generate: empty response")
	}
	return strings.TrimSpace(resp.Content), nil
}
