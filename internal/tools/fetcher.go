// Package tools provides the agent's tool implementations: web search,
// LinkedIn profile enrichment, and the current date, plus the registry that
// tracks them and the shared HTTP fetcher they are built on.
package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/leadscout/leadscout/internal/log"
)

// maxResponseSize caps upstream response bodies (prevent resource exhaustion).
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Fetcher performs outbound HTTP requests for tools, producing classified
// errors. A single Fetcher is shared by all tools so they use one connection
// pool and one timeout policy.
//
// Thread Safety: safe for concurrent use (http.Client is concurrency-safe).
type Fetcher struct {
	client *http.Client
	logger log.Logger
}

// NewFetcher creates a Fetcher with the given timeout-configured client.
// A nil client falls back to http.DefaultClient.
func NewFetcher(client *http.Client, logger log.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Fetcher{client: client, logger: logger}
}

// Do sends a request and returns the response body on 2xx status.
// stage labels the failing pipeline step in any returned *Error.
//
// Error classification:
//   - request build / transport / body read failure: KindNetwork
//   - non-2xx status: KindUpstreamStatus with the code
func (f *Fetcher) Do(ctx context.Context, stage, method, url string, header http.Header, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Stage: stage, Err: fmt.Errorf("building request: %w", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("upstream request failed", "stage", stage, "method", method, "error", err)
		return nil, &Error{Kind: KindNetwork, Stage: stage, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		f.logger.Error("upstream returned error status", "stage", stage, "status", resp.StatusCode)
		return nil, &Error{Kind: KindUpstreamStatus, Stage: stage, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		f.logger.Error("reading upstream response failed", "stage", stage, "error", err)
		return nil, &Error{Kind: KindNetwork, Stage: stage, Err: fmt.Errorf("reading response: %w", err)}
	}

	f.logger.Debug("upstream request succeeded", "stage", stage, "status", resp.StatusCode, "body_size", len(data))
	return data, nil
}
