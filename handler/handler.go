// Package handler adapts API Gateway proxy events to the pipeline use case.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/usecase"
)

const defaultRecentLimit = 20

// UseCase is the pipeline surface the handler depends on.
type UseCase interface {
	Handle(ctx context.Context, in usecase.HandleInput) (usecase.HandleOutput, error)
	Recent(ctx context.Context, index string, limit int) ([]domain.ChatHistoryEntry, error)
	IndexIDs() []string
}

type Handler struct {
	uc UseCase
}

func NewHandler(uc UseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

type chatRequest struct {
	Index    string        `json:"index"`
	Message  string        `json:"message"`
	UserID   string        `json:"userId"`
	Username string        `json:"username"`
	History  []historyTurn `json:"history"`
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Answer string `json:"answer"`
	Index  string `json:"index"`
}

type recentResponse struct {
	Entries []domain.ChatHistoryEntry `json:"entries"`
}

type indicesResponse struct {
	Indices []string `json:"indices"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Handle routes one proxy event: POST runs an exchange, GET /indices lists
// the registered topic indices, any other GET lists recent chat log entries.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := resolveCorrelationID(event.Headers)

	switch event.HTTPMethod {
	case http.MethodPost:
		return h.handleChat(ctx, event, correlationID), nil
	case http.MethodGet:
		if strings.HasSuffix(event.Path, "/indices") {
			return jsonResult(http.StatusOK, indicesResponse{Indices: h.uc.IndexIDs()}, correlationID), nil
		}
		return h.handleRecent(ctx, event, correlationID), nil
	default:
		return errorResult(http.StatusMethodNotAllowed, string(usecase.ErrorInvalidInput), "method_not_allowed", correlationID), nil
	}
}

func (h *Handler) handleChat(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	var req chatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return errorResult(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "malformed_body", correlationID)
	}

	turns := make([]domain.Turn, 0, len(req.History))
	for _, t := range req.History {
		turns = append(turns, domain.Turn{Role: t.Role, Content: t.Content})
	}

	out, err := h.uc.Handle(ctx, usecase.HandleInput{
		Index:      req.Index,
		Message:    req.Message,
		UserID:     req.UserID,
		Username:   req.Username,
		PriorTurns: turns,
	})
	if err != nil {
		return errorResultFor(err, correlationID)
	}

	return jsonResult(http.StatusOK, chatResponse{Answer: out.Answer, Index: out.Index}, correlationID)
}

func (h *Handler) handleRecent(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	limit := defaultRecentLimit
	if raw := event.QueryStringParameters["limit"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errorResult(http.StatusBadRequest, string(usecase.ErrorInvalidInput), "malformed_limit", correlationID)
		}
		limit = n
	}

	entries, err := h.uc.Recent(ctx, event.QueryStringParameters["index"], limit)
	if err != nil {
		return errorResultFor(err, correlationID)
	}
	if entries == nil {
		entries = []domain.ChatHistoryEntry{}
	}

	return jsonResult(http.StatusOK, recentResponse{Entries: entries}, correlationID)
}

// statusForCode maps use case error codes to HTTP statuses.
func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorUnknownIndex:
		return http.StatusNotFound
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorRetrieval, usecase.ErrorGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResultFor(err error, correlationID string) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return errorResult(statusForCode(ucErr.Code), string(ucErr.Code), ucErr.Reason, correlationID)
	}
	return errorResult(http.StatusInternalServerError, string(usecase.ErrorInternal), "unexpected_error", correlationID)
}

func errorResult(status int, code, reason, correlationID string) events.APIGatewayProxyResponse {
	return jsonResult(status, errorResponse{Error: code, Reason: reason}, correlationID)
}

func jsonResult(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(`{"error":"INTERNAL_ERROR","reason":"encode_response"}`)
		status = http.StatusInternalServerError
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": correlationID,
		},
		Body: string(raw),
	}
}

// resolveCorrelationID reuses a caller-provided correlation id header,
// matched case-insensitively, and mints one otherwise.
func resolveCorrelationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "X-Correlation-Id") && v != "" {
			return v
		}
	}
	return newUUID()
}

var newUUID = func() string {
	return uuid.NewString()
}
