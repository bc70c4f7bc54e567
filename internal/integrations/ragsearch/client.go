// Package ragsearch is a focused client for the document search backend.
// Queries are ranked server-side by a weighted blend of relevance and
// document recency.
package ragsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"wiki-agent/internal/domain"
	"wiki-agent/internal/integrations/paramstore"
)

// searchRequest is the request shape for the search endpoint.
type searchRequest struct {
	Query         string     `json:"query"`
	IndexName     string     `json:"index_name"`
	NumCandidates int        `json:"num_candidates"`
	NumResultDoc  int        `json:"num_result_doc"`
	SortConfig    sortConfig `json:"sort_config"`
}

type sortConfig struct {
	DateWeight      float64 `json:"date_weight"`
	RelevanceWeight float64 `json:"relevance_weight"`
}

// searchResponse is the minimal response shape returned by the search endpoint.
type searchResponse struct {
	Results []struct {
		Text     string                `json:"text"`
		Metadata domain.SourceMetadata `json:"metadata"`
	} `json:"results"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("ragsearch: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Params control result count and server-side ranking.
type Params struct {
	NumCandidates   int
	NumResultDoc    int
	RelevanceWeight float64
	DateWeight      float64
}

// Client calls the search backend with an API key held in SSM.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      paramstore.Getter
	paramPrefix string
	params      Params

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new Client for the search backend at baseURL. The API
// key is fetched from SSM on the first call to Search and reused for the
// lifetime of the process.
func NewClient(ps paramstore.Getter, paramPrefix, baseURL string, params Params, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("ragsearch: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("ragsearch: parameter prefix must not be empty")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("ragsearch: base URL must not be empty")
	}
	if params.NumResultDoc <= 0 {
		return nil, errors.New("ragsearch: num result doc must be positive")
	}
	if params.NumCandidates < params.NumResultDoc {
		return nil, errors.New("ragsearch: num candidates must be at least num result doc")
	}
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 45 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
		params:      params,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = paramstore.FetchToken(ctx, c.getter, c.paramPrefix+"/search-api-token")
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 45 * time.Second}
}

// Search queries the backend index and returns the ranked document texts
// alongside their source metadata, index-aligned.
func (c *Client) Search(ctx context.Context, query, indexName string) ([]string, []domain.SourceMetadata, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, errors.New("ragsearch: query must not be empty")
	}
	if strings.TrimSpace(indexName) == "" {
		return nil, nil, errors.New("ragsearch: index name must not be empty")
	}

	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, nil, err
	}

	body, err := json.Marshal(searchRequest{
		Query:         query,
		IndexName:     indexName,
		NumCandidates: c.params.NumCandidates,
		NumResultDoc:  c.params.NumResultDoc,
		SortConfig: sortConfig{
			DateWeight:      c.params.DateWeight,
			RelevanceWeight: c.params.RelevanceWeight,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("ragsearch: marshal request: %w", err)
	}

	url := c.baseURL + "/search"

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return nil, nil, fmt.Errorf("ragsearch: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return nil, nil, fmt.Errorf("ragsearch: request failed: %w", err)
	}

	var payload searchResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return nil, nil, fmt.Errorf("ragsearch: decode response: %w", decErr)
	}

	docs := make([]string, 0, len(payload.Results))
	sources := make([]domain.SourceMetadata, 0, len(payload.Results))
	for _, r := range payload.Results {
		docs = append(docs, r.Text)
		sources = append(sources, r.Metadata)
	}
	return docs, sources, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
