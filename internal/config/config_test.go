package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, ModeSimulated, cfg.Mode)
	require.Equal(t, HistoryBackendFile, cfg.History.Backend)
	require.Equal(t, 500, cfg.History.Capacity)
	require.Equal(t, 3, cfg.Retrieval.MaxDocuments)
	require.Equal(t, 0.7, cfg.Retrieval.RelevanceWeight)
	require.Equal(t, 0.3, cfg.Retrieval.DateWeight)
	require.Contains(t, cfg.Indices, "ae_wiki")
	require.Contains(t, cfg.Indices, "glossary")
	require.Contains(t, cfg.Indices, "jedec")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
mode: live
fallback_to_simulated: true
history:
  backend: dynamodb
  table: chat-log
  capacity: 50
retrieval:
  base_url: https://search.internal
  max_documents: 5
generation:
  model: gpt-mock
  max_history_turns: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ModeLive, cfg.Mode)
	require.True(t, cfg.FallbackToSimulated)
	require.Equal(t, HistoryBackendDynamoDB, cfg.History.Backend)
	require.Equal(t, "chat-log", cfg.History.Table)
	require.Equal(t, 50, cfg.History.Capacity)
	require.Equal(t, "https://search.internal", cfg.Retrieval.BaseURL)
	require.Equal(t, 5, cfg.Retrieval.MaxDocuments)
	require.Equal(t, "gpt-mock", cfg.Generation.Model)
	require.Equal(t, 4, cfg.Generation.MaxHistoryTurns)
	// untouched sections keep their defaults
	require.Equal(t, 1000, cfg.Retrieval.NumCandidates)
	require.Equal(t, 30, cfg.Generation.TimeoutSecs)
}

func TestLoad_ExplicitZeroWeightIsKept(t *testing.T) {
	path := writeConfig(t, `
retrieval:
  relevance_weight: 0.0
  date_weight: 1.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.0, cfg.Retrieval.RelevanceWeight)
	require.Equal(t, 1.0, cfg.Retrieval.DateWeight)
}

func TestLoad_NegativeWeightRejected(t *testing.T) {
	path := writeConfig(t, `
retrieval:
  date_weight: -0.3
`)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "weights")
}

func TestLoad_CustomIndicesReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `
indices:
  faq:
    display_name: FAQ
    system_prompt: You answer FAQs.
    mock:
      greeting: Hi!
      documents: ["entry about '{query}'"]
      sources:
        - name: FAQ-DB
          relevance: 0.9
          recency: 1.0
          age_days: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Indices, 1)
	faq := cfg.Indices["faq"]
	require.Equal(t, "FAQ", faq.DisplayName)
	require.Len(t, faq.Mock.Sources, 1)
	require.Equal(t, 2, faq.Mock.Sources[0].AgeDays)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "mode: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse")
}

func TestLoad_UnknownMode(t *testing.T) {
	path := writeConfig(t, "mode: hybrid")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown mode")
}

func TestLoad_UnknownHistoryBackend(t *testing.T) {
	path := writeConfig(t, "history:\n  backend: redis")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "history backend")
}

func TestLoad_NegativeCapacity(t *testing.T) {
	path := writeConfig(t, "history:\n  capacity: -5")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "capacity")
}

func TestDefaultIndices_WellFormed(t *testing.T) {
	for id, idx := range DefaultIndices() {
		require.NotEmpty(t, idx.SystemPrompt, id)
		require.Len(t, idx.Mock.Documents, 3, id)
		require.Len(t, idx.Mock.Sources, 3, id)
		for _, doc := range idx.Mock.Documents {
			require.Contains(t, doc, "{query}", id)
		}
		for i := 1; i < len(idx.Mock.Sources); i++ {
			require.Greater(t, idx.Mock.Sources[i-1].Relevance, idx.Mock.Sources[i].Relevance, id)
		}
	}
}
