// Package search adapts a Serper-compatible web search API as the research
// provider for the build pipeline.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/config"
)

// DegradedResult is returned when no API key is configured. The research
// phase then succeeds trivially instead of failing.
const DegradedResult = "search API key not configured - skipping research."

// resultCount is the number of organic results requested per query.
const resultCount = 5

// Client calls the search API.
type Client struct {
	apiKey     config.Secret
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a search client. An unset API key is valid and puts the client
// into degraded mode.
func New(cfg config.SearchConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type searchRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type organicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

// Search runs a web search and returns a numbered textual digest of the top
// results. Without a configured API key it returns DegradedResult and no
// error.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if !c.apiKey.IsSet() {
		c.logger.Debug("search running in degraded mode", zap.String("query", query))
		return DegradedResult, nil
	}

	body, err := json.Marshal(searchRequest{Query: query, Num: resultCount})
	if err != nil {
		return "", fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey.Value())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("search failed (%d): %s", resp.StatusCode, string(detail))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	return formatDigest(parsed.Organic), nil
}

// formatDigest renders results as numbered title/snippet/link entries.
func formatDigest(results []organicResult) string {
	entries := make([]string, 0, len(results))
	for i, r := range results {
		entries = append(entries, fmt.Sprintf("%d. %s\n   %s\n   %s", i+1, r.Title, r.Snippet, r.Link))
	}
	return strings.Join(entries, "\n\n")
}
