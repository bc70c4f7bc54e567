// Package config loads the application configuration. The config is built
// once at process start and passed explicitly into constructors; no component
// reads ambient global state.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wiki-agent/internal/registry"
)

// Backend modes and history backends.
const (
	ModeSimulated = "simulated"
	ModeLive      = "live"

	HistoryBackendFile     = "file"
	HistoryBackendDynamoDB = "dynamodb"
)

// HistoryConfig selects and sizes the conversation store. Capacity is global
// per backing store, not per user or index.
type HistoryConfig struct {
	Backend  string `yaml:"backend"`
	Capacity int    `yaml:"capacity"`
	FilePath string `yaml:"file_path"`
	Table    string `yaml:"table"`
}

// RetrievalConfig configures the live document-search backend.
type RetrievalConfig struct {
	BaseURL         string  `yaml:"base_url"`
	TimeoutSecs     int     `yaml:"timeout_secs"`
	MaxDocuments    int     `yaml:"max_documents"`
	NumCandidates   int     `yaml:"num_candidates"`
	RelevanceWeight float64 `yaml:"relevance_weight"`
	DateWeight      float64 `yaml:"date_weight"`
}

// GenerationConfig configures the live text-generation backend.
type GenerationConfig struct {
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	MaxHistoryTurns int    `yaml:"max_history_turns"`
}

// Config is the root application configuration.
type Config struct {
	Mode                string                    `yaml:"mode"`
	FallbackToSimulated bool                      `yaml:"fallback_to_simulated"`
	History             HistoryConfig             `yaml:"history"`
	Retrieval           RetrievalConfig           `yaml:"retrieval"`
	Generation          GenerationConfig          `yaml:"generation"`
	Indices             map[string]registry.Index `yaml:"indices"`
}

// Load reads a config from path. A missing file yields the defaults; a
// present but unparsable file is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Mode {
	case ModeSimulated, ModeLive:
	default:
		return fmt.Errorf("config: unknown mode %q", cfg.Mode)
	}
	switch cfg.History.Backend {
	case HistoryBackendFile, HistoryBackendDynamoDB:
	default:
		return fmt.Errorf("config: unknown history backend %q", cfg.History.Backend)
	}
	if cfg.History.Capacity <= 0 {
		return errors.New("config: history capacity must be positive")
	}
	if cfg.Retrieval.RelevanceWeight < 0 || cfg.Retrieval.DateWeight < 0 {
		return errors.New("config: sort weights must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeSimulated
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = HistoryBackendFile
	}
	if cfg.History.Capacity == 0 {
		cfg.History.Capacity = 500
	}
	if cfg.History.FilePath == "" {
		cfg.History.FilePath = "chat_history.json"
	}
	if cfg.Retrieval.TimeoutSecs == 0 {
		cfg.Retrieval.TimeoutSecs = 45
	}
	if cfg.Retrieval.MaxDocuments == 0 {
		cfg.Retrieval.MaxDocuments = 3
	}
	if cfg.Retrieval.NumCandidates == 0 {
		cfg.Retrieval.NumCandidates = 1000
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = 30
	}
	if cfg.Generation.MaxHistoryTurns == 0 {
		cfg.Generation.MaxHistoryTurns = 10
	}
	if len(cfg.Indices) == 0 {
		cfg.Indices = DefaultIndices()
	}
}

// Default returns the configuration used when no config file is present.
// The sort weights are seeded here rather than in applyDefaults: a file is
// parsed on top of these values, so an explicit zero weight survives.
func Default() *Config {
	cfg := &Config{
		Retrieval: RetrievalConfig{
			RelevanceWeight: 0.7,
			DateWeight:      0.3,
		},
	}
	applyDefaults(cfg)
	return cfg
}

// DefaultIndices is the built-in topic-index table: the team wiki, the
// terminology glossary, and the JEDEC standards corpus.
func DefaultIndices() map[string]registry.Index {
	return map[string]registry.Index{
		"ae_wiki": {
			DisplayName:  "AE WIKI",
			RAGIndexName: "rp-conflu_1",
			SystemPrompt: "You are the technical Q&A assistant for the applications engineering team. " +
				"Answer only from the retrieved documents and the prior conversation. " +
				"Lead with a short summary, then structured detail, and cite each document inline as a markdown link. " +
				"If the retrieved material does not cover the question, say so instead of guessing.",
			Mock: registry.MockParams{
				Greeting: "Hello! This is the AE WIKI assistant.",
				Documents: []string{
					"Team process guide excerpt. Question: '{query}'. The current guideline describes the approval flow, the documents to prepare, and the teams to involve.",
					"Product specification notes related to '{query}', covering the technical parameters and how to apply them in customer engagements.",
					"Customer-support handbook section touching on '{query}', with the escalation path and response-time targets.",
				},
				Sources: []registry.MockSource{
					{Name: "Process-Guide", Relevance: 0.95, Recency: 1.0, AgeDays: 1, URL: "https://confluence.company.com/display/AE/Process-Guide"},
					{Name: "Product-Spec", Relevance: 0.88, Recency: 0.8, AgeDays: 7, URL: "https://confluence.company.com/display/AE/Product-Spec"},
					{Name: "Customer-Support", Relevance: 0.82, Recency: 0.3, AgeDays: 30, URL: "https://confluence.company.com/display/AE/Customer-Support"},
				},
			},
		},
		"glossary": {
			DisplayName:  "AE Glossary",
			RAGIndexName: "rp-ae_wiki",
			SystemPrompt: "You are a semiconductor terminology expert. " +
				"Define the requested term precisely, connect it to related concepts, and explain how it is used in practice. " +
				"Use only the retrieved glossary entries as sources.",
			Mock: registry.MockParams{
				Greeting: "Hello! This is the AE Glossary assistant.",
				Documents: []string{
					"Glossary entry for '{query}': definition and the context in which the term is used across the memory product line.",
					"Extended technical note on '{query}' with the underlying mechanism and typical parameter ranges.",
					"Related terms and reference material for '{query}', useful for follow-up reading.",
				},
				Sources: []registry.MockSource{
					{Name: "Glossary-DB", Relevance: 0.92, Recency: 1.0, AgeDays: 1, URL: "https://confluence.company.com/display/AE/Glossary-DB"},
					{Name: "Tech-Terms", Relevance: 0.85, Recency: 0.8, AgeDays: 7, URL: "https://confluence.company.com/display/AE/Tech-Terms"},
					{Name: "Reference-Notes", Relevance: 0.78, Recency: 0.3, AgeDays: 30, URL: "https://confluence.company.com/display/AE/Reference-Notes"},
				},
			},
		},
		"jedec": {
			DisplayName:  "JEDEC SPEC",
			RAGIndexName: "rp-jedec",
			SystemPrompt: "You are a JEDEC standards expert. " +
				"Quote standard text verbatim, never paraphrase normative requirements, and present the matching specification as a markdown table with the source named below it. " +
				"Call out implementation caveats in a separate warnings section.",
			Mock: registry.MockParams{
				Greeting: "Hello! This is the JEDEC SPEC assistant.",
				Documents: []string{
					"Standard clause relevant to '{query}', including the normative requirement and the parameters it constrains.",
					"Memory-standard section mapping '{query}' to the applicable device categories and compliance conditions.",
					"Test-method chapter describing how conformance to '{query}' is verified.",
				},
				Sources: []registry.MockSource{
					{Name: "JESD79-5B", Relevance: 0.94, Recency: 1.0, AgeDays: 1, URL: "https://www.jedec.org/standards-documents/docs/jesd79-5b"},
					{Name: "JEP106BJ", Relevance: 0.87, Recency: 0.8, AgeDays: 7, URL: "https://www.jedec.org/standards-documents/docs/jep-106bj"},
					{Name: "Test-Methods-Guide", Relevance: 0.83, Recency: 0.3, AgeDays: 30, URL: "https://www.jedec.org/standards-documents/docs/test-methods"},
				},
			},
		},
	}
}
