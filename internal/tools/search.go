package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/leadscout/leadscout/internal/log"
)

// StageSearch labels fetch failures originating from the web-search provider.
const StageSearch = "search"

// SearchInput defines input for the searchWeb tool.
type SearchInput struct {
	Query string `json:"query" jsonschema_description:"The search query to look up on the web"`
}

// SearchOutput is the output for the searchWeb tool. The provider response is
// passed through verbatim so the model sees titles, URLs, and content snippets.
type SearchOutput struct {
	Results string `json:"results" jsonschema_description:"Raw search results from the provider"`
}

// Search performs web searches through the Tavily API.
type Search struct {
	fetcher  *Fetcher
	endpoint string
	apiKey   string
	logger   log.Logger
}

// NewSearch creates a Search tool. All parameters are required.
func NewSearch(fetcher *Fetcher, endpoint, apiKey string, logger log.Logger) (*Search, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Search{fetcher: fetcher, endpoint: endpoint, apiKey: apiKey, logger: logger}, nil
}

// Run executes a web search and returns the provider's raw response body.
// The query is sent as-is; empty queries are passed through and left to the
// provider to reject.
func (s *Search) Run(ctx context.Context, query string) (string, error) {
	s.logger.Info("searchWeb called", "query", query)

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", &Error{Kind: KindNetwork, Stage: StageSearch, Err: fmt.Errorf("encoding request: %w", err)}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.apiKey)
	header.Set("Content-Type", "application/json")

	body, err := s.fetcher.Do(ctx, StageSearch, http.MethodPost, s.endpoint, header, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	s.logger.Debug("searchWeb succeeded", "response_size", len(body))
	return string(body), nil
}
