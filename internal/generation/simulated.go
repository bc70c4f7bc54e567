package generation

import (
	"context"
	"strings"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/registry"
)

// Simulated renders answers from a fixed template with no backend calls.
// The same query against the same index always yields byte-identical output.
type Simulated struct{}

// NewSimulated returns a deterministic generation adapter.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Generate builds the templated answer and appends the citation block
// verbatim at the end. Prior turns are accepted for interface parity but do
// not influence the output.
func (s *Simulated) Generate(_ context.Context, query string, documents []string, citations string, idx registry.Index, _ []domain.Turn) (string, error) {
	if len(documents) == 0 {
		return NoGroundingResponse, nil
	}

	var b strings.Builder
	if greeting := idx.Mock.Greeting; greeting != "" {
		b.WriteString(greeting)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: \"")
	b.WriteString(query)
	b.WriteString("\"\n\nAnswer:\nBased on the retrieved documents:\n\n")
	b.WriteString(JoinDocuments(documents))
	if citations != "" {
		b.WriteString("\n\n")
		b.WriteString(citations)
	}
	return b.String(), nil
}
