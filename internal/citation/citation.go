// Package citation renders source metadata into the reference block appended
// to every answer. The ordering contract here is exact: callers and tests
// depend on it byte for byte.
package citation

import (
	"sort"
	"strings"

	"wiki-agent/internal/domain"
)

const header = "References:"

// Rank deduplicates and orders sources for presentation: duplicates by source
// name collapse to the occurrence with the highest relevance, then a stable
// sort orders by relevance descending, ties by recency descending, remaining
// ties by original input order.
func Rank(sources []domain.SourceMetadata) []domain.SourceMetadata {
	type ranked struct {
		src domain.SourceMetadata
		pos int
	}

	byName := make(map[string]int, len(sources))
	deduped := make([]ranked, 0, len(sources))
	for i, src := range sources {
		if at, ok := byName[src.Name]; ok {
			if src.Relevance > deduped[at].src.Relevance {
				deduped[at] = ranked{src: src, pos: deduped[at].pos}
			}
			continue
		}
		byName[src.Name] = len(deduped)
		deduped = append(deduped, ranked{src: src, pos: i})
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.src.Relevance != b.src.Relevance {
			return a.src.Relevance > b.src.Relevance
		}
		if a.src.Recency != b.src.Recency {
			return a.src.Recency > b.src.Recency
		}
		return a.pos < b.pos
	})

	out := make([]domain.SourceMetadata, len(deduped))
	for i, r := range deduped {
		out[i] = r.src
	}
	return out
}

// Format renders the citation block for the given sources. Empty input
// renders an empty string so callers can append the result unconditionally.
func Format(sources []domain.SourceMetadata) string {
	ranked := Rank(sources)
	if len(ranked) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(header)
	for _, src := range ranked {
		sb.WriteString("\n- ")
		sb.WriteString(src.Name)
		if src.URL != "" {
			sb.WriteString(" - ")
			sb.WriteString(src.URL)
		}
		if src.LastModified != "" {
			sb.WriteString(" (last modified ")
			sb.WriteString(src.LastModified)
			sb.WriteString(")")
		}
	}
	return sb.String()
}
