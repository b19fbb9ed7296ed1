// Package provider builds the external capabilities nexus depends on: text
// embedding, relationship classification and summarization. Remote backends
// go through CloudWeGo Eino; the default embedder is a local hashing model
// that needs no network.
package provider

import (
	"context"
	"fmt"
	"time"

	ollamaEmbed "github.com/cloudwego/eino-ext/components/embedding/ollama"
	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/note"
)

// Default model names per provider.
const (
	DefaultOllamaURL            = "http://localhost:11434"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultOllamaEmbeddingModel = "nomic-embed-text"
	DefaultOpenAIChatModel      = "gpt-4o-mini"
	DefaultOllamaChatModel      = "llama3.1"
	DefaultAnthropicChatModel   = "claude-3-5-haiku-latest"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Classifier proposes typed relationships between a new note and candidates.
type Classifier interface {
	Classify(ctx context.Context, subject note.Subject, candidates []note.Candidate) ([]note.Proposal, error)
}

// Summarizer writes a short prose summary of a set of notes.
type Summarizer interface {
	Summarize(ctx context.Context, query string, notes []note.Note) (string, error)
}

// Set is every provider handle, built once per process.
type Set struct {
	Embedder   Embedder
	Classifier Classifier
	// Summarizer is nil unless enabled and a chat model is configured.
	Summarizer Summarizer
}

// New builds the providers selected by cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	embedder, err := NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	set := &Set{Embedder: embedder}

	chat, err := NewChatModel(ctx, cfg.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if chat == nil {
		set.Classifier = DisabledClassifier{}
		return set, nil
	}

	timeout := time.Duration(cfg.Classifier.BreakerTimeoutSeconds) * time.Second
	set.Classifier = NewBreakerClassifier(
		NewLLMClassifier(chat),
		uint32(cfg.Classifier.BreakerFailures),
		timeout,
		logger,
	)
	if cfg.SummarizerEnabled {
		set.Summarizer = NewLLMSummarizer(chat)
	}
	return set, nil
}

// NewEmbedder creates the embedder named by cfg.Provider.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", config.ProviderLocal:
		return NewHashEmbedder(cfg.Dimensions), nil

	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = DefaultOpenAIEmbeddingModel
		}
		e, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
			Model:   modelName,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return &EinoEmbedder{name: config.ProviderOpenAI, embedder: e}, nil

	case config.ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = DefaultOllamaEmbeddingModel
		}
		e, err := ollamaEmbed.NewEmbedder(ctx, &ollamaEmbed.EmbeddingConfig{
			BaseURL: baseURL,
			Model:   modelName,
		})
		if err != nil {
			return nil, err
		}
		return &EinoEmbedder{name: config.ProviderOllama, embedder: e}, nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: local, openai, ollama)", cfg.Provider)
	}
}

// NewChatModel creates the chat model named by cfg.Provider.
// Returns nil, nil for the none provider.
func NewChatModel(ctx context.Context, cfg config.ClassifierConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return nil, nil

	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = DefaultOpenAIChatModel
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   modelName,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})

	case config.ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = DefaultOllamaChatModel
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
		})

	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		modelName := cfg.Model
		if modelName == "" {
			modelName = DefaultAnthropicChatModel
		}
		maxTokens := cfg.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 1024
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     modelName,
			MaxTokens: maxTokens,
		})

	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s (supported: none, openai, ollama, anthropic)", cfg.Provider)
	}
}
