package websearch

import (
	"fmt"
	"time"
)

// TimeoutError reports a single bounded search attempt that exceeded its
// deadline. It is a normal failure path, distinguishable from provider
// errors so callers can report it precisely.
type TimeoutError struct {
	Endpoint string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("search timed out after %s (%s)", e.Timeout, e.Endpoint)
}

// SearchError reports that every query variant and every fallback provider
// failed. Callers treat it as non-fatal enrichment loss, not a hard error.
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("web search failed for %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error {
	return e.Err
}
