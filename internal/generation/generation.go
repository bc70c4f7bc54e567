// Package generation produces the grounded answer text for a query. The
// simulated adapter is a deterministic template; the live adapter delegates
// to an external chat-completions backend. Both answer only from the supplied
// documents: an empty document set yields an explicit no-grounding response
// instead of a fabricated answer.
package generation

import "strings"

// NoGroundingResponse is returned whenever retrieval produced no documents.
// Stating the absence of grounding material is part of the adapter contract.
const NoGroundingResponse = "I could not find any supporting documents for this question, " +
	"so I cannot give a grounded answer. Please rephrase the question or try another topic."

// JoinDocuments concatenates documents into a single context block,
// preserving rank order with a blank-line separator.
func JoinDocuments(documents []string) string {
	return strings.Join(documents, "\n\n")
}
