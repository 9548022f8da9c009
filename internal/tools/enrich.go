package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/leadscout/leadscout/internal/log"
)

// StageEnrich labels failures originating from the profile-enrichment provider
// or from LinkedIn URL extraction.
const StageEnrich = "enrich"

// linkedInProfileRe matches the first LinkedIn profile URL in a blob of search
// results. Regional subdomains (fr.linkedin.com, uk.linkedin.com) are accepted;
// company pages are not.
var linkedInProfileRe = regexp.MustCompile(`(?i)https://([a-z]{2,3}\.)?linkedin\.com/in/[a-zA-Z0-9_%-]+`)

// EnrichInput defines input for the enrichProfile tool.
type EnrichInput struct {
	Query string `json:"query" jsonschema_description:"The person to look up, e.g. a full name and company"`
}

// EnrichOutput is the output for the enrichProfile tool.
type EnrichOutput struct {
	Profile string `json:"profile" jsonschema_description:"Raw profile data from the enrichment provider"`
}

// searcher is the web-search dependency of Enricher. Satisfied by *Search.
type searcher interface {
	Run(ctx context.Context, query string) (string, error)
}

// Enricher looks up a person's LinkedIn profile and enriches it through the
// Scrapin API. The pipeline has three stages:
//
//  1. web search for "<query> LinkedIn URL"
//  2. extract the first LinkedIn profile URL from the results
//  3. fetch enriched profile data for that URL
//
// Each stage fails with a distinguishable *Error; a failed stage stops the
// pipeline, so stage 2 failing never triggers the stage 3 request.
type Enricher struct {
	search   searcher
	fetcher  *Fetcher
	endpoint string
	apiKey   string
	logger   log.Logger
}

// NewEnricher creates an Enricher. All parameters are required.
func NewEnricher(search searcher, fetcher *Fetcher, endpoint, apiKey string, logger log.Logger) (*Enricher, error) {
	if search == nil {
		return nil, fmt.Errorf("search is required")
	}
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
	return &Enricher{search: search, fetcher: fetcher, endpoint: endpoint, apiKey: apiKey, logger: logger}, nil
}

// Run executes the three-stage enrichment pipeline for a person query and
// returns the provider's raw profile response.
func (e *Enricher) Run(ctx context.Context, query string) (string, error) {
	e.logger.Info("enrichProfile called", "query", query)

	results, err := e.search.Run(ctx, query+" LinkedIn URL")
	if err != nil {
		return "", err
	}

	profileURL := ExtractLinkedInURL(results)
	if profileURL == "" {
		e.logger.Warn("no LinkedIn profile URL found in search results", "query", query)
		return "", &Error{
			Kind:  KindExtractionFailed,
			Stage: StageEnrich,
			Err:   fmt.Errorf("no LinkedIn profile URL in search results for %q", query),
		}
	}
	e.logger.Debug("extracted LinkedIn URL", "url", profileURL)

	reqURL := e.endpoint + "?apikey=" + url.QueryEscape(e.apiKey) + "&linkedInUrl=" + url.QueryEscape(profileURL)
	body, err := e.fetcher.Do(ctx, StageEnrich, http.MethodGet, reqURL, nil, nil)
	if err != nil {
		return "", err
	}

	e.logger.Debug("enrichProfile succeeded", "response_size", len(body))
	return string(body), nil
}

// ExtractLinkedInURL returns the first LinkedIn profile URL found in text,
// or "" if there is none. Matching is case-insensitive and only /in/ profile
// paths qualify.
func ExtractLinkedInURL(text string) string {
	return linkedInProfileRe.FindString(text)
}
