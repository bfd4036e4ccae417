// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch queries the Tavily web search API and returns
// scored results with optional raw page content.
package websearch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/kbgen/internal/httputil"
	"github.com/pdiddy/kbgen/pkg/types"
)

// Client abstracts the web search service so tests can supply a mock.
type Client interface {
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}

// Options holds per-query search parameters.
type Options struct {
	// Depth is "basic" or "advanced".
	Depth string

	// MaxResults caps the result count for this query.
	MaxResults int

	// IncludeDomains restricts results to the listed domains.
	IncludeDomains []string

	// IncludeRawContent requests the full page text, not just a snippet.
	IncludeRawContent bool
}

// Result is one search hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	RawContent    string  `json:"raw_content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// Response holds the results for one query.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// tavilyAPIURL is the Tavily endpoint. Package-level var for test substitution.
var tavilyAPIURL = "https://api.tavily.com/search"

// Tavily is the production web search client.
type Tavily struct {
	apiKey string
	cfg    types.SearchConfig
	client *http.Client
}

// NewTavily builds a Tavily client. It fails fast when the API key is
// missing.
func NewTavily(cfg types.SearchConfig, client *http.Client) (*Tavily, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily API key is required")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Tavily{apiKey: cfg.APIKey, cfg: cfg, client: client}, nil
}

// tavilyRequest is the request body for the Tavily search API.
type tavilyRequest struct {
	APIKey            string   `json:"api_key"`
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	MaxResults        int      `json:"max_results"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content"`
	IncludeAnswer     bool     `json:"include_answer"`
}

// Search runs one query against the Tavily API.
func (t *Tavily) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	depth := opts.Depth
	if depth == "" {
		depth = t.cfg.Depth
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = t.cfg.MaxResults
	}
	domains := opts.IncludeDomains
	if len(domains) == 0 {
		domains = t.cfg.IncludeDomains
	}

	req := tavilyRequest{
		APIKey:            t.apiKey,
		Query:             query,
		SearchDepth:       depth,
		MaxResults:        maxResults,
		IncludeDomains:    domains,
		IncludeRawContent: opts.IncludeRawContent,
		IncludeAnswer:     true,
	}

	headers := map[string]string{"User-Agent": t.cfg.UserAgent}

	var resp Response
	if err := httputil.PostJSON(ctx, t.client, tavilyAPIURL, headers, req, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	resp.Query = query
	return &resp, nil
}
