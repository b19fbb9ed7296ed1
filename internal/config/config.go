package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Provider names accepted in EmbeddingConfig and ClassifierConfig.
const (
	ProviderLocal     = "local"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	// Provider is one of local, openai, ollama. Default: local (hashing embedder, no network).
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	APIKey   string `json:"api_key,omitempty"`

	// Dimensions is only used by the local provider.
	Dimensions int `json:"dimensions,omitempty"`
}

// ClassifierConfig selects the chat model used to classify relationships
// (and, when SummarizerEnabled is set, to summarize).
type ClassifierConfig struct {
	// Provider is one of none, openai, ollama, anthropic. Default: none, which
	// always routes Connect into the similarity fallback.
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`

	// BreakerFailures is the number of consecutive failures that opens the circuit.
	BreakerFailures int `json:"breaker_failures,omitempty"`

	// BreakerTimeoutSeconds is how long the circuit stays open before a trial call.
	BreakerTimeoutSeconds int `json:"breaker_timeout_seconds,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// NoteMaxChars is the maximum character count for note content
	NoteMaxChars int `json:"note_max_chars"`

	// ConnectTopK bounds how many similar notes are considered when a note is saved.
	ConnectTopK int `json:"connect_top_k,omitempty"`

	// MaxTraversalDepth caps the depth accepted by connection queries.
	MaxTraversalDepth int `json:"max_traversal_depth,omitempty"`

	Embedding  EmbeddingConfig  `json:"embedding"`
	Classifier ClassifierConfig `json:"classifier"`

	// SummarizerEnabled asks the classifier's chat model for a prose summary in note_summarize.
	SummarizerEnabled bool `json:"summarizer_enabled,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.nexus/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "note", "graph".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is a zap level name (debug, info, warn, error). Default: info.
	LogLevel string `json:"log_level,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		NoteMaxChars:      8000,
		ConnectTopK:       10,
		MaxTraversalDepth: 5,
		Embedding: EmbeddingConfig{
			Provider:   ProviderLocal,
			Dimensions: 256,
		},
		Classifier: ClassifierConfig{
			Provider:              ProviderNone,
			MaxTokens:             1024,
			BreakerFailures:       3,
			BreakerTimeoutSeconds: 60,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.nexus.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.nexus) and repo (.nexus) directories.
// Repo config is found by walking upward from startDir to find the nearest .nexus/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	ApplyEnv(cfg)
	return cfg, nil
}

// LoadEnvFile loads baseDir/.env into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadEnvFile(baseDir string) error {
	path := filepath.Join(baseDir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv fills empty API keys from the environment.
func ApplyEnv(cfg *Config) {
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == ProviderOpenAI {
		cfg.Embedding.APIKey = firstEnv("NEXUS_OPENAI_API_KEY", "OPENAI_API_KEY")
	}
	if cfg.Classifier.APIKey == "" {
		switch cfg.Classifier.Provider {
		case ProviderOpenAI:
			cfg.Classifier.APIKey = firstEnv("NEXUS_OPENAI_API_KEY", "OPENAI_API_KEY")
		case ProviderAnthropic:
			cfg.Classifier.APIKey = firstEnv("NEXUS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
		}
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// FindRepoConfig walks upward from startDir to find the nearest .nexus/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".nexus", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.NoteMaxChars = pickInt(overlay.NoteMaxChars, base.NoteMaxChars)
	result.ConnectTopK = pickInt(overlay.ConnectTopK, base.ConnectTopK)
	result.MaxTraversalDepth = pickInt(overlay.MaxTraversalDepth, base.MaxTraversalDepth)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)

	result.Embedding = EmbeddingConfig{
		Provider:   pickString(overlay.Embedding.Provider, base.Embedding.Provider),
		Model:      pickString(overlay.Embedding.Model, base.Embedding.Model),
		BaseURL:    pickString(overlay.Embedding.BaseURL, base.Embedding.BaseURL),
		APIKey:     pickString(overlay.Embedding.APIKey, base.Embedding.APIKey),
		Dimensions: pickInt(overlay.Embedding.Dimensions, base.Embedding.Dimensions),
	}
	result.Classifier = ClassifierConfig{
		Provider:              pickString(overlay.Classifier.Provider, base.Classifier.Provider),
		Model:                 pickString(overlay.Classifier.Model, base.Classifier.Model),
		BaseURL:               pickString(overlay.Classifier.BaseURL, base.Classifier.BaseURL),
		APIKey:                pickString(overlay.Classifier.APIKey, base.Classifier.APIKey),
		MaxTokens:             pickInt(overlay.Classifier.MaxTokens, base.Classifier.MaxTokens),
		BreakerFailures:       pickInt(overlay.Classifier.BreakerFailures, base.Classifier.BreakerFailures),
		BreakerTimeoutSeconds: pickInt(overlay.Classifier.BreakerTimeoutSeconds, base.Classifier.BreakerTimeoutSeconds),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.SummarizerEnabled = base.SummarizerEnabled || overlay.SummarizerEnabled

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
