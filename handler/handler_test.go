package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/usecase"
)

type stubUseCase struct {
	out       usecase.HandleOutput
	err       error
	in        usecase.HandleInput
	recent    []domain.ChatHistoryEntry
	recentErr error
	gotIndex  string
	gotLimit  int
}

func (s *stubUseCase) Handle(_ context.Context, in usecase.HandleInput) (usecase.HandleOutput, error) {
	s.in = in
	return s.out, s.err
}

func (s *stubUseCase) Recent(_ context.Context, index string, limit int) ([]domain.ChatHistoryEntry, error) {
	s.gotIndex = index
	s.gotLimit = limit
	return s.recent, s.recentErr
}

func (s *stubUseCase) IndexIDs() []string {
	return []string{"ae_wiki", "glossary"}
}

func makeChatEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_Chat_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.HandleOutput{Answer: "hello", Index: "wiki"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	body := `{"index":"wiki","message":"how?","userId":"u-1","username":"tester","history":[{"role":"user","content":"earlier"}]}`
	resp, err := h.Handle(context.Background(), makeChatEvent(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, "wiki", uc.in.Index)
	require.Equal(t, "how?", uc.in.Message)
	require.Equal(t, "u-1", uc.in.UserID)
	require.Equal(t, []domain.Turn{{Role: "user", Content: "earlier"}}, uc.in.PriorTurns)

	out := parseBody[chatResponse](t, resp.Body)
	require.Equal(t, "hello", out.Answer)
	require.Equal(t, "wiki", out.Index)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_Chat_InvalidBody(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeChatEvent(`not-json`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "unknown index", err: &usecase.Error{Code: usecase.ErrorUnknownIndex, Reason: "unknown_index"}, status: http.StatusNotFound, code: string(usecase.ErrorUnknownIndex)},
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "empty_message"}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput)},
		{name: "retrieval", err: &usecase.Error{Code: usecase.ErrorRetrieval, Reason: "retrieval_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorRetrieval)},
		{name: "generation", err: &usecase.Error{Code: usecase.ErrorGeneration, Reason: "generation_error"}, status: http.StatusBadGateway, code: string(usecase.ErrorGeneration)},
		{name: "internal", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "corrupt_chat_log"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{err: tc.err}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeChatEvent(`{"index":"wiki","message":"q"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
		})
	}
}

func TestHandle_Recent_HappyPath(t *testing.T) {
	uc := &stubUseCase{recent: []domain.ChatHistoryEntry{{ID: "chat_1", Index: "wiki"}}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/chat",
		QueryStringParameters: map[string]string{"index": "wiki", "limit": "5"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "wiki", uc.gotIndex)
	require.Equal(t, 5, uc.gotLimit)

	out := parseBody[recentResponse](t, resp.Body)
	require.Len(t, out.Entries, 1)
}

func TestHandle_Recent_DefaultLimitAndEmptyResult(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, defaultRecentLimit, uc.gotLimit)
	require.Contains(t, resp.Body, `"entries":[]`)
}

func TestHandle_Recent_MalformedLimit(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"limit": "lots"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_Indices(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/indices",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := parseBody[indicesResponse](t, resp.Body)
	require.Equal(t, []string{"ae_wiki", "glossary"}, out.Indices)
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodDelete})
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{out: usecase.HandleOutput{Answer: "ok", Index: "wiki"}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeChatEvent(`{"index":"wiki","message":"q"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
