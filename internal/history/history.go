// Package history stores the chat log as a bounded FIFO: once the store
// reaches capacity, appending a new entry evicts the oldest one in the same
// operation.
package history

import (
	"fmt"
	"iter"

	"wiki-agent/internal/domain"
)

// Match filters entries during a Query scan. A nil Match selects everything.
type Match func(domain.ChatHistoryEntry) bool

// Seq is a lazy scan over store entries in chronological order. Iteration
// stops at the first non-nil error.
type Seq = iter.Seq2[domain.ChatHistoryEntry, error]

// CorruptStoreError reports a store whose persisted form could not be
// decoded. The store refuses reads and writes until the operator repairs or
// resets the file, unless recovery was explicitly enabled.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("history: corrupt store at %s: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}
