package retrieval

import (
	"context"
	"errors"
	"fmt"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/registry"
)

// Searcher is the backend query surface Live depends on.
// *ragsearch.Client satisfies this interface.
type Searcher interface {
	Search(ctx context.Context, query, indexName string) ([]string, []domain.SourceMetadata, error)
}

// Live retrieves documents from the external search backend.
type Live struct {
	searcher     Searcher
	maxDocuments int
}

// NewLive creates a Live adapter over the given search client, returning at
// most maxDocuments documents per query.
func NewLive(searcher Searcher, maxDocuments int) (*Live, error) {
	if searcher == nil {
		return nil, errors.New("retrieval: searcher must not be nil")
	}
	if maxDocuments <= 0 {
		maxDocuments = defaultMaxDocuments
	}
	return &Live{searcher: searcher, maxDocuments: maxDocuments}, nil
}

// Retrieve queries the backend index bound to idx and returns the ranked
// documents with their index-aligned source metadata. The document bound is
// enforced here even though the backend is asked for the same limit.
func (l *Live) Retrieve(ctx context.Context, query string, idx registry.Index) ([]string, []domain.SourceMetadata, error) {
	indexName := idx.RAGIndexName
	if indexName == "" {
		indexName = idx.ID
	}

	docs, sources, err := l.searcher.Search(ctx, query, indexName)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval: search index %q: %w", indexName, err)
	}
	if len(docs) != len(sources) {
		return nil, nil, fmt.Errorf("retrieval: backend returned %d documents but %d sources", len(docs), len(sources))
	}
	if len(docs) > l.maxDocuments {
		docs = docs[:l.maxDocuments]
		sources = sources[:l.maxDocuments]
	}
	return docs, sources, nil
}
