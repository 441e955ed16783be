package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medrag/internal/errdefs"
)

// HTTPCrossEncoder talks to a reranker service exposing a /rerank
// endpoint in the TEI/Jina request shape: the service receives the query
// and documents in one call and returns per-document relevance scores.
type HTTPCrossEncoder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"relevance_score"`
	} `json:"results"`
}

type rerankError struct {
	Error string `json:"error"`
}

func NewHTTP(cfg Config) (*HTTPCrossEncoder, error) {
	if cfg.BaseURL == "" {
		return nil, errdefs.Config("rerank.url", "must not be empty")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCrossEncoder{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (e *HTTPCrossEncoder) ModelName() string {
	return e.model
}

func (e *HTTPCrossEncoder) ScorePairs(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model:     e.model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := e.baseURL + "/rerank"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, errdefs.Transient("rerank", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errdefs.Transient("rerank", fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr rerankError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, errdefs.Transient("rerank", fmt.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Error))
		}
		return nil, errdefs.Transient("rerank", fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody)))
	}

	var resp rerankResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errdefs.Transient("rerank", fmt.Errorf("unmarshal response: %w", err))
	}

	scores := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank: result index %d out of range for %d documents", r.Index, len(documents))
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank: no score returned for document %d", i)
		}
	}
	return scores, nil
}
