// Package retrieval provides the deterministic, offline retrieval adapter.
// Given the same query, index, and clock it produces byte-identical output,
// which keeps pipeline behavior reproducible for tests and development.
package retrieval

import (
	"context"
	"strings"
	"time"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/registry"
)

const defaultMaxDocuments = 3

// queryPlaceholder is replaced with the literal query text in every mock
// document template.
const queryPlaceholder = "{query}"

// Simulated generates documents from the index's mock template parameters.
type Simulated struct {
	maxDocuments int
	now          func() time.Time
}

// Option configures a Simulated retriever.
type Option func(*Simulated)

// WithClock fixes the clock used to render last-modified dates. Tests use it
// to make output fully deterministic.
func WithClock(now func() time.Time) Option {
	return func(s *Simulated) {
		s.now = now
	}
}

// NewSimulated creates a simulated retriever returning at most maxDocuments
// documents per query.
func NewSimulated(maxDocuments int, opts ...Option) *Simulated {
	if maxDocuments <= 0 {
		maxDocuments = defaultMaxDocuments
	}
	s := &Simulated{
		maxDocuments: maxDocuments,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve renders the index's mock documents for the query. Documents and
// sources are always the same length and rank-aligned, and every document
// embeds the original query text.
func (s *Simulated) Retrieve(_ context.Context, query string, idx registry.Index) ([]string, []domain.SourceMetadata, error) {
	n := len(idx.Mock.Documents)
	if n > s.maxDocuments {
		n = s.maxDocuments
	}

	now := s.now()
	docs := make([]string, 0, n)
	sources := make([]domain.SourceMetadata, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, strings.ReplaceAll(idx.Mock.Documents[i], queryPlaceholder, query))

		src := idx.Mock.Sources[i]
		sources = append(sources, domain.SourceMetadata{
			Name:         src.Name,
			LastModified: now.AddDate(0, 0, -src.AgeDays).Format("2006-01-02"),
			Relevance:    src.Relevance,
			Recency:      src.Recency,
			URL:          src.URL,
		})
	}
	return docs, sources, nil
}
