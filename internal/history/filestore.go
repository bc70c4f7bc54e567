package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"wiki-agent/internal/domain"
)

// FileStore persists the chat log as a JSON file. Appends rewrite the file
// atomically through a temp file and rename, so a crash mid-write never
// leaves a half-written store behind.
type FileStore struct {
	path     string
	capacity int
	logger   *slog.Logger
	recover  bool

	mu      sync.RWMutex
	entries []domain.ChatHistoryEntry
}

type FileOption func(*FileStore)

// WithLogger sets the logger used for recovery warnings.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// WithRecovery makes NewFileStore reset a corrupt file to an empty store
// instead of failing. The corrupt content is preserved next to the store file
// with a .corrupt suffix.
func WithRecovery() FileOption {
	return func(s *FileStore) {
		s.recover = true
	}
}

// NewFileStore creates or loads a FileStore located at path, keeping at most
// capacity entries.
func NewFileStore(path string, capacity int, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("history: store path must not be empty")
	}
	if capacity <= 0 {
		return nil, errors.New("history: capacity must be positive")
	}

	s := &FileStore{
		path:     path,
		capacity: capacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Append adds entry to the store and evicts the oldest entries beyond
// capacity in the same write.
func (s *FileStore) Append(ctx context.Context, entry domain.ChatHistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.entries, entry)
	if over := len(entries) - s.capacity; over > 0 {
		entries = entries[over:]
	}

	if err := s.save(entries); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	s.entries = entries
	return nil
}

// Query returns a lazy scan over entries matching match, oldest first. The
// scan walks a snapshot, so concurrent appends do not disturb an iteration
// in progress.
func (s *FileStore) Query(ctx context.Context, match Match) Seq {
	s.mu.RLock()
	snapshot := make([]domain.ChatHistoryEntry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.RUnlock()

	return func(yield func(domain.ChatHistoryEntry, error) bool) {
		for _, entry := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(domain.ChatHistoryEntry{}, fmt.Errorf("history: query: %w", err))
				return
			}
			if match != nil && !match(entry) {
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

// Len reports the number of stored entries.
func (s *FileStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("history: len: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// storeFile is the persisted JSON shape.
type storeFile struct {
	Entries []domain.ChatHistoryEntry `json:"chat_history"`
}

func (s *FileStore) load() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("history: create store directory: %w", err)
		}
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("history: read store file: %w", err)
	}

	var payload storeFile
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		if !s.recover {
			return &CorruptStoreError{Path: s.path, Err: decErr}
		}
		backup := s.path + ".corrupt"
		if wrErr := os.WriteFile(backup, raw, 0o644); wrErr != nil {
			return fmt.Errorf("history: back up corrupt store: %w", wrErr)
		}
		s.logger.Warn("history store corrupt, starting empty",
			"path", s.path, "backup", backup, "error", decErr)
		return s.save(nil)
	}

	entries := payload.Entries
	if over := len(entries) - s.capacity; over > 0 {
		entries = entries[over:]
	}
	s.entries = entries
	return nil
}

func (s *FileStore) save(entries []domain.ChatHistoryEntry) error {
	payload := storeFile{Entries: entries}
	if payload.Entries == nil {
		payload.Entries = []domain.ChatHistoryEntry{}
	}

	tmpPath := s.path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp store file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&payload); err != nil {
		file.Close()
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
