// Package websearch aggregates a free web-search surface into a ranked,
// deduplicated shortlist for prompt enrichment. It queries multiple
// phrasings of a topic, merges the noisy results, scores them for topical
// overlap and host authority, and gates them by query intent.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout    = 8 * time.Second
	DefaultMaxResults = 5
	maxResultsLimit   = 8

	// mirrorDelay spaces the lite and html endpoint attempts apart.
	mirrorDelay = 200 * time.Millisecond
)

// Result is one projected search hit handed to the generation prompt.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Response is the outcome of one aggregated search.
type Response struct {
	Query     string    `json:"query"`
	FetchedAt time.Time `json:"fetchedAt"`
	Results   []Result  `json:"results"`
}

// Options controls a single search call.
type Options struct {
	// MaxResults caps the shortlist, clamped to [1, 8]. Zero means 5.
	MaxResults int

	// Timeout bounds each individual endpoint attempt. Zero means 8s.
	Timeout time.Duration
}

// Searcher queries DuckDuckGo's lite and html mirrors with a Bing RSS
// fallback. It holds no per-request state and is safe for concurrent use.
type Searcher struct {
	client *http.Client

	liteURL    string
	htmlURL    string
	bingRSSURL string
}

// NewSearcher creates a Searcher with a browser-like User-Agent transport.
func NewSearcher() *Searcher {
	return &Searcher{
		client: &http.Client{
			Transport: &userAgentTransport{base: http.DefaultTransport},
		},
		liteURL:    "https://lite.duckduckgo.com/lite/",
		htmlURL:    "https://html.duckduckgo.com/html/",
		bingRSSURL: "https://www.bing.com/search",
	}
}

// userAgentTransport injects browser-like headers on every request; the
// scraped endpoints reject obvious bot traffic.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
	}
	return t.base.RoundTrip(req)
}

// Search runs the full aggregation pipeline: build query variants, fetch
// them concurrently, dedupe by canonical URL, score, intent-gate, and
// truncate. It returns a SearchError only when every variant and every
// fallback provider failed.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty search query")
	}

	maxResults := clamp(opts.MaxResults, 1, maxResultsLimit, DefaultMaxResults)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	variants := BuildQueryVariants(query)
	slog.Info("web search started", "query", query, "maxResults", maxResults, "variants", variants)

	// Fetch variants concurrently but keep variant order for the
	// first-seen dedupe below.
	perVariant := make([][]rawResult, len(variants))
	variantErrs := make([]error, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(variants))
	for i, variant := range variants {
		g.Go(func() error {
			fetchMax := maxResults
			if fetchMax < 6 {
				fetchMax = 6
			}
			results, err := s.searchSingleQuery(gctx, variant, fetchMax, timeout)
			if err != nil {
				slog.Warn("query variant failed", "variant", variant, "error", err)
				variantErrs[i] = err
				return nil // variant failures never fail the batch
			}
			for j := range results {
				results[j].SourceQuery = variant
			}
			perVariant[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("searching variants: %w", err)
	}

	var aggregate []rawResult
	for _, results := range perVariant {
		aggregate = append(aggregate, results...)
	}

	// Variants that succeeded with zero hits are a legitimate empty
	// outcome; only report an error when a variant actually failed.
	if len(aggregate) == 0 {
		if err := errors.Join(variantErrs...); err != nil {
			return nil, &SearchError{Query: query, Err: err}
		}
		slog.Info("web search finished", "query", query, "count", 0)
		return &Response{Query: query, FetchedAt: time.Now().UTC()}, nil
	}

	selected := rankAndFilter(aggregate, query, maxResults)

	slog.Info("web search finished", "query", query, "count", len(selected))
	return &Response{
		Query:     query,
		FetchedAt: time.Now().UTC(),
		Results:   selected,
	}, nil
}

// rankAndFilter dedupes, scores, intent-gates, and truncates the merged
// variant results. Both filters fall back to the unfiltered set rather than
// returning nothing.
func rankAndFilter(aggregate []rawResult, query string, maxResults int) []Result {
	var deduped []rawResult
	seen := make(map[string]bool)
	for _, item := range aggregate {
		key := CanonicalURLKey(item.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, item)
	}

	scores := make(map[int]int, len(deduped))
	order := make([]int, len(deduped))
	for i, item := range deduped {
		scores[i] = scoreResult(item, query)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	scored := make([]rawResult, len(order))
	scoredScores := make([]int, len(order))
	for i, idx := range order {
		scored[i] = deduped[idx]
		scoredScores[i] = scores[idx]
	}

	pick := func(keep func(i int) bool) ([]rawResult, []int) {
		var items []rawResult
		var itemScores []int
		for i := range scored {
			if keep(i) {
				items = append(items, scored[i])
				itemScores = append(itemScores, scoredScores[i])
			}
		}
		return items, itemScores
	}

	intentItems, intentScores := pick(func(i int) bool { return isIntentMatch(scored[i], query) })
	if len(intentItems) == 0 {
		intentItems, intentScores = scored, scoredScores
	}

	var quality []rawResult
	for i := range intentItems {
		if intentScores[i] > -4 {
			quality = append(quality, intentItems[i])
		}
	}
	if len(quality) == 0 {
		quality = intentItems
	}

	if len(quality) > maxResults {
		quality = quality[:maxResults]
	}

	selected := make([]Result, len(quality))
	for i, item := range quality {
		selected[i] = Result{Title: item.Title, URL: item.URL, Snippet: item.Snippet}
	}
	return selected
}

// searchSingleQuery runs the provider fallback chain for one variant: the
// DuckDuckGo lite endpoint, then its html mirror after a short delay, then
// Bing RSS. Every attempt is bounded by timeout.
func (s *Searcher) searchSingleQuery(ctx context.Context, query string, maxResults int, timeout time.Duration) ([]rawResult, error) {
	endpoints := []string{
		s.liteURL + "?q=" + url.QueryEscape(query) + "&kl=us-en",
		s.htmlURL + "?q=" + url.QueryEscape(query) + "&kl=us-en",
	}

	var lastErr error
	for i, endpoint := range endpoints {
		if i > 0 {
			select {
			case <-time.After(mirrorDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := s.fetchHTML(ctx, endpoint, timeout)
		if err != nil {
			lastErr = err
			slog.Warn("search attempt failed", "query", query, "endpoint", endpoint, "error", err)
			continue
		}

		if results := parseDuckDuckGoHTML(body, maxResults); len(results) > 0 {
			return results, nil
		}
	}

	rssCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := s.fetchBingRSS(rssCtx, query, maxResults)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Endpoint: s.bingRSSURL, Timeout: timeout}
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return results, nil
}

// fetchHTML GETs one endpoint with a per-attempt timeout and returns the
// response body. Timeouts convert to a typed TimeoutError.
func (s *Searcher) fetchHTML(ctx context.Context, endpoint string, timeout time.Duration) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TimeoutError{Endpoint: endpoint, Timeout: timeout}
		}
		return "", fmt.Errorf("fetching %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search endpoint %q: HTTP %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	return string(body), nil
}

func clamp(v, min, max, fallback int) int {
	if v == 0 {
		v = fallback
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
