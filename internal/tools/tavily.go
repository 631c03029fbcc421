// Package tools provides external tool clients used by the agents.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/agentgraph"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// TavilySearch is a web search tool backed by the Tavily API.
type TavilySearch struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewTavilySearch creates a Tavily search client.
func NewTavilySearch(apiKey string) *TavilySearch {
	return &TavilySearch{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs a web search and returns up to maxResults results.
func (t *TavilySearch) Search(ctx context.Context, query string, maxResults int) ([]agentgraph.SearchResult, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:     t.apiKey,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, agentgraph.NewSearchError("failed to encode search request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, agentgraph.NewSearchError("failed to build search request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, agentgraph.NewSearchError("search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, agentgraph.NewSearchError(fmt.Sprintf("search API returned status %d", resp.StatusCode), nil)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, agentgraph.NewSearchError("failed to decode search response", err)
	}

	results := make([]agentgraph.SearchResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		results = append(results, agentgraph.SearchResult{
			Title:   r.Title,
			Content: r.Content,
		})
	}
	return results, nil
}

// FormatResults renders search results as a compact text block for prompts,
// truncating each result's content to keep prompt sizes bounded.
func FormatResults(results []agentgraph.SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	formatted := make([]string, 0, len(results))
	for _, r := range results {
		content := r.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		formatted = append(formatted, fmt.Sprintf("**%s**\n%s", r.Title, content))
	}
	return strings.Join(formatted, "\n\n")
}
