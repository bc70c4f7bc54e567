package citation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wiki-agent/internal/domain"
)

func src(name string, relevance, recency float64) domain.SourceMetadata {
	return domain.SourceMetadata{Name: name, Relevance: relevance, Recency: recency}
}

func names(sources []domain.SourceMetadata) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, s.Name)
	}
	return out
}

func TestRank_OrdersByRelevanceDescending(t *testing.T) {
	ranked := Rank([]domain.SourceMetadata{
		src("Customer-Support", 0.82, 0.3),
		src("Process-Guide", 0.95, 1.0),
		src("Product-Spec", 0.88, 0.8),
	})
	require.Equal(t, []string{"Process-Guide", "Product-Spec", "Customer-Support"}, names(ranked))
}

func TestRank_TieBrokenByRecency(t *testing.T) {
	ranked := Rank([]domain.SourceMetadata{
		src("older", 0.9, 0.2),
		src("newer", 0.9, 0.8),
	})
	require.Equal(t, []string{"newer", "older"}, names(ranked))
}

func TestRank_FullTiePreservesInputOrder(t *testing.T) {
	ranked := Rank([]domain.SourceMetadata{
		src("first", 0.9, 0.5),
		src("second", 0.9, 0.5),
		src("third", 0.9, 0.5),
	})
	require.Equal(t, []string{"first", "second", "third"}, names(ranked))
}

func TestRank_DeduplicatesByNameKeepingHighestRelevance(t *testing.T) {
	ranked := Rank([]domain.SourceMetadata{
		src("guide", 0.7, 0.5),
		src("other", 0.8, 0.5),
		src("guide", 0.91, 0.5),
	})
	require.Equal(t, []string{"guide", "other"}, names(ranked))
	require.Equal(t, 0.91, ranked[0].Relevance)
}

func TestRank_EmptyInput(t *testing.T) {
	require.Empty(t, Rank(nil))
}

func TestFormat_RendersHeaderAndEntries(t *testing.T) {
	got := Format([]domain.SourceMetadata{
		{Name: "Product-Spec", Relevance: 0.88, Recency: 0.8, URL: "https://example.com/spec", LastModified: "2026-08-19"},
		{Name: "Process-Guide", Relevance: 0.95, Recency: 1.0, URL: "https://example.com/guide", LastModified: "2026-08-25"},
	})
	want := "References:\n" +
		"- Process-Guide - https://example.com/guide (last modified 2026-08-25)\n" +
		"- Product-Spec - https://example.com/spec (last modified 2026-08-19)"
	require.Equal(t, want, got)
}

func TestFormat_OmitsMissingFields(t *testing.T) {
	got := Format([]domain.SourceMetadata{{Name: "Guide", Relevance: 0.9}})
	require.Equal(t, "References:\n- Guide", got)
}

func TestFormat_EmptyInput(t *testing.T) {
	require.Equal(t, "", Format(nil))
	require.Equal(t, "", Format([]domain.SourceMetadata{}))
}
