// Package usecase orchestrates one question/answer exchange: resolve the
// topic index, retrieve grounding documents, rank citations, generate the
// answer, and append the exchange to the chat log.
package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"wiki-agent/internal/citation"
	"wiki-agent/internal/domain"
	"wiki-agent/internal/history"
	"wiki-agent/internal/registry"
)

// Retriever fetches grounding documents for a query against a topic index.
type Retriever interface {
	Retrieve(ctx context.Context, query string, idx registry.Index) ([]string, []domain.SourceMetadata, error)
}

// Generator produces the answer text from the query, the retrieved documents
// and the rendered citation block.
type Generator interface {
	Generate(ctx context.Context, query string, documents []string, citations string, idx registry.Index, turns []domain.Turn) (string, error)
}

// HistoryStore is the bounded chat log the pipeline appends completed
// exchanges to.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.ChatHistoryEntry) error
	Query(ctx context.Context, match history.Match) history.Seq
	Len(ctx context.Context) (int, error)
}

// PipelineService wires the retrieval and generation adapters behind one
// Handle operation. When fallback adapters are configured, a live adapter
// failure downgrades that stage to its simulated counterpart instead of
// failing the exchange.
type PipelineService struct {
	registry  *registry.Registry
	retriever Retriever
	generator Generator
	store     HistoryStore
	logger    *slog.Logger

	fallbackRetriever Retriever
	fallbackGenerator Generator
}

type Option func(*PipelineService)

// WithFallback installs simulated stand-ins used when the primary retriever
// or generator fails.
func WithFallback(retriever Retriever, generator Generator) Option {
	return func(s *PipelineService) {
		s.fallbackRetriever = retriever
		s.fallbackGenerator = generator
	}
}

// WithLogger sets the logger for fallback and persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *PipelineService) {
		s.logger = logger
	}
}

type HandleInput struct {
	Index      string
	Message    string
	UserID     string
	Username   string
	PriorTurns []domain.Turn
}

type HandleOutput struct {
	Answer string
	Index  string
}

func NewPipelineService(reg *registry.Registry, r Retriever, g Generator, store HistoryStore, opts ...Option) (*PipelineService, error) {
	if reg == nil {
		return nil, errors.New("usecase: registry must not be nil")
	}
	if r == nil {
		return nil, errors.New("usecase: retriever must not be nil")
	}
	if g == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	s := &PipelineService{
		registry:  reg,
		retriever: r,
		generator: g,
		store:     store,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle runs one exchange end to end. The index is resolved before any
// other work, so an unknown index never touches the adapters or the store.
// A failed append is logged and swallowed: the user still gets the answer.
func (s *PipelineService) Handle(ctx context.Context, in HandleInput) (HandleOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return HandleOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}

	idx, err := s.registry.Resolve(in.Index)
	if err != nil {
		var unknown *registry.UnknownIndexError
		if errors.As(err, &unknown) {
			return HandleOutput{}, newError(ErrorUnknownIndex, "unknown_index", err)
		}
		return HandleOutput{}, newError(ErrorInternal, "registry_error", err)
	}

	docs, sources, err := s.retrieve(ctx, message, idx)
	if err != nil {
		return HandleOutput{}, newError(ErrorRetrieval, "retrieval_error", err)
	}

	citations := citation.Format(sources)

	answer, err := s.generate(ctx, message, docs, citations, idx, in.PriorTurns)
	if err != nil {
		return HandleOutput{}, newError(ErrorGeneration, "generation_error", err)
	}
	answer = withCitations(answer, citations)

	entry := domain.NewChatHistoryEntry(timeNow(), in.UserID, in.Username, idx.ID, message, answer)
	if err := s.store.Append(ctx, entry); err != nil {
		s.logger.Warn("chat log append failed", "entry_id", entry.ID, "index", idx.ID, "error", err)
	}

	return HandleOutput{Answer: answer, Index: idx.ID}, nil
}

// Recent returns up to limit most recent exchanges for an index, newest
// last. An empty index selects all indices.
func (s *PipelineService) Recent(ctx context.Context, index string, limit int) ([]domain.ChatHistoryEntry, error) {
	if limit <= 0 {
		return nil, newError(ErrorInvalidInput, "non_positive_limit", nil)
	}
	if index != "" {
		if _, err := s.registry.Resolve(index); err != nil {
			var unknown *registry.UnknownIndexError
			if errors.As(err, &unknown) {
				return nil, newError(ErrorUnknownIndex, "unknown_index", err)
			}
			return nil, newError(ErrorInternal, "registry_error", err)
		}
	}

	var match history.Match
	if index != "" {
		match = func(e domain.ChatHistoryEntry) bool { return e.Index == index }
	}

	var entries []domain.ChatHistoryEntry
	for entry, err := range s.store.Query(ctx, match) {
		if err != nil {
			var corrupt *history.CorruptStoreError
			if errors.As(err, &corrupt) {
				return nil, newError(ErrorInternal, "corrupt_chat_log", err)
			}
			return nil, newError(ErrorInternal, "chat_log_read_error", err)
		}
		entries = append(entries, entry)
		if len(entries) > limit {
			entries = entries[1:]
		}
	}
	return entries, nil
}

// IndexIDs lists the registered topic indices.
func (s *PipelineService) IndexIDs() []string {
	return s.registry.IDs()
}

func (s *PipelineService) retrieve(ctx context.Context, query string, idx registry.Index) ([]string, []domain.SourceMetadata, error) {
	docs, sources, err := s.retriever.Retrieve(ctx, query, idx)
	if err == nil || s.fallbackRetriever == nil {
		return docs, sources, err
	}
	s.logger.Warn("retrieval failed, falling back to simulated documents", "index", idx.ID, "error", err)
	return s.fallbackRetriever.Retrieve(ctx, query, idx)
}

func (s *PipelineService) generate(ctx context.Context, query string, docs []string, citations string, idx registry.Index, turns []domain.Turn) (string, error) {
	answer, err := s.generator.Generate(ctx, query, docs, citations, idx, turns)
	if err == nil || s.fallbackGenerator == nil {
		return answer, err
	}
	s.logger.Warn("generation failed, falling back to simulated answer", "index", idx.ID, "error", err)
	return s.fallbackGenerator.Generate(ctx, query, docs, citations, idx, turns)
}

// withCitations guarantees the citation block closes the answer exactly
// once. Simulated answers already carry it; live answers do not.
func withCitations(answer, citations string) string {
	if citations == "" || strings.HasSuffix(answer, citations) {
		return answer
	}
	return answer + "\n\n" + citations
}

var timeNow = func() time.Time {
	return time.Now()
}
