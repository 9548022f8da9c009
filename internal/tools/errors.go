package tools

import (
	"errors"
	"fmt"
)

// Kind classifies a tool failure so callers can map it to a transport-level
// response without string matching.
type Kind string

const (
	// KindNetwork is a transport failure: DNS, connect, TLS, timeout, or a
	// broken response body. The upstream was never reached or never answered.
	KindNetwork Kind = "network"

	// KindUpstreamStatus means the upstream answered with a non-success HTTP
	// status. Error.Status carries the code.
	KindUpstreamStatus Kind = "upstream_status"

	// KindExtractionFailed means an upstream response was received but the
	// expected data could not be extracted from it.
	KindExtractionFailed Kind = "extraction_failed"
)

// Error is the failure type returned by all tool operations. Stage names the
// pipeline step that failed ("search", "enrich", "fetch") so multi-stage tools
// produce distinguishable errors.
type Error struct {
	Kind   Kind
	Stage  string
	Status int // HTTP status, set only for KindUpstreamStatus
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUpstreamStatus:
		return fmt.Sprintf("%s: upstream returned status %d", e.Stage, e.Status)
	case KindExtractionFailed:
		if e.Err != nil {
			return fmt.Sprintf("%s: extraction failed: %v", e.Stage, e.Err)
		}
		return fmt.Sprintf("%s: extraction failed", e.Stage)
	default:
		return fmt.Sprintf("%s: network error: %v", e.Stage, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
