// Package registry holds the closed set of topic indices a deployment
// serves. The set is validated once at construction and read-only afterwards,
// so lookups need no locking.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MockSource is the template for one simulated-retrieval source. AgeDays
// anchors the rendered last-modified date relative to the retrieval clock.
type MockSource struct {
	Name      string  `yaml:"name"`
	Relevance float64 `yaml:"relevance"`
	Recency   float64 `yaml:"recency"`
	URL       string  `yaml:"url"`
	AgeDays   int     `yaml:"age_days"`
}

// MockParams parameterize the simulated retrieval and generation adapters
// for one index. Document templates embed the literal query wherever the
// {query} placeholder appears.
type MockParams struct {
	Greeting  string       `yaml:"greeting"`
	Documents []string     `yaml:"documents"`
	Sources   []MockSource `yaml:"sources"`
}

// Index is one registered topic index. Immutable once the registry is built.
type Index struct {
	ID           string     `yaml:"-"`
	DisplayName  string     `yaml:"display_name"`
	SystemPrompt string     `yaml:"system_prompt"`
	RAGIndexName string     `yaml:"rag_index_name"`
	Mock         MockParams `yaml:"mock"`
}

// UnknownIndexError reports a lookup against an unregistered topic index.
// It indicates a caller bug, not a transient condition, and is never retried.
type UnknownIndexError struct {
	Index string
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("registry: unknown topic index %q", e.Index)
}

// Registry resolves topic-index identifiers. Safe for unsynchronized
// concurrent reads after construction.
type Registry struct {
	indices map[string]Index
}

// New builds a registry from the configured index table. Every entry is
// validated up front so a misconfigured index fails at startup rather than
// deep inside a request.
func New(indices map[string]Index) (*Registry, error) {
	if len(indices) == 0 {
		return nil, errors.New("registry: index table must not be empty")
	}
	out := make(map[string]Index, len(indices))
	for id, idx := range indices {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errors.New("registry: index id must not be blank")
		}
		if strings.TrimSpace(idx.SystemPrompt) == "" {
			return nil, fmt.Errorf("registry: index %q has no system prompt", id)
		}
		if len(idx.Mock.Documents) != len(idx.Mock.Sources) {
			return nil, fmt.Errorf("registry: index %q mock documents and sources differ in length", id)
		}
		idx.ID = id
		if idx.DisplayName == "" {
			idx.DisplayName = id
		}
		out[id] = idx
	}
	return &Registry{indices: out}, nil
}

// Resolve returns the index registered under id. The returned value is a
// copy; callers cannot mutate registry state through it.
func (r *Registry) Resolve(id string) (Index, error) {
	idx, ok := r.indices[id]
	if !ok {
		return Index{}, &UnknownIndexError{Index: id}
	}
	return idx, nil
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.indices))
	for id := range r.indices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
