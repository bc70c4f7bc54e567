package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/registry"
)

type fakeSearcher struct {
	docs      []string
	sources   []domain.SourceMetadata
	err       error
	gotQuery  string
	gotIndex  string
	callCount int
}

func (f *fakeSearcher) Search(_ context.Context, query, indexName string) ([]string, []domain.SourceMetadata, error) {
	f.callCount++
	f.gotQuery = query
	f.gotIndex = indexName
	return f.docs, f.sources, f.err
}

func TestNewLive_NilSearcher(t *testing.T) {
	_, err := NewLive(nil, 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestLiveRetrieve_UsesBackendIndexName(t *testing.T) {
	f := &fakeSearcher{
		docs:    []string{"doc"},
		sources: []domain.SourceMetadata{{Name: "Guide"}},
	}
	l, err := NewLive(f, 3)
	require.NoError(t, err)

	docs, sources, err := l.Retrieve(context.Background(), "q", registry.Index{ID: "wiki", RAGIndexName: "rp-conflu_1"})
	require.NoError(t, err)
	require.Equal(t, "rp-conflu_1", f.gotIndex)
	require.Equal(t, "q", f.gotQuery)
	require.Len(t, docs, 1)
	require.Len(t, sources, 1)
}

func TestLiveRetrieve_FallsBackToIndexID(t *testing.T) {
	f := &fakeSearcher{}
	l, err := NewLive(f, 3)
	require.NoError(t, err)

	_, _, err = l.Retrieve(context.Background(), "q", registry.Index{ID: "wiki"})
	require.NoError(t, err)
	require.Equal(t, "wiki", f.gotIndex)
}

func TestLiveRetrieve_BackendError(t *testing.T) {
	f := &fakeSearcher{err: errors.New("search unavailable")}
	l, err := NewLive(f, 3)
	require.NoError(t, err)

	_, _, err = l.Retrieve(context.Background(), "q", registry.Index{ID: "wiki"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "search unavailable")
}

func TestLiveRetrieve_MisalignedBackendResponse(t *testing.T) {
	f := &fakeSearcher{docs: []string{"a", "b"}, sources: []domain.SourceMetadata{{Name: "only-one"}}}
	l, err := NewLive(f, 3)
	require.NoError(t, err)

	_, _, err = l.Retrieve(context.Background(), "q", registry.Index{ID: "wiki"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "2 documents but 1 sources")
}

func TestLiveRetrieve_ClampsToMaxDocuments(t *testing.T) {
	f := &fakeSearcher{
		docs: []string{"a", "b", "c"},
		sources: []domain.SourceMetadata{
			{Name: "A"}, {Name: "B"}, {Name: "C"},
		},
	}
	l, err := NewLive(f, 2)
	require.NoError(t, err)

	docs, sources, err := l.Retrieve(context.Background(), "q", registry.Index{ID: "wiki"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, docs)
	require.Equal(t, []domain.SourceMetadata{{Name: "A"}, {Name: "B"}}, sources)
}
