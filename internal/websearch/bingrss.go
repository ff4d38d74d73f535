package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmcdole/gofeed"
)

// fetchBingRSS queries Bing's RSS output as the last-resort provider and
// parses the feed items into results.
func (s *Searcher) fetchBingRSS(ctx context.Context, query string, maxResults int) ([]rawResult, error) {
	endpoint := s.bingRSSURL + "?format=rss&setlang=en-US&cc=US&mkt=en-US&q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml,application/xml,text/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching bing rss: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing rss: HTTP %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing bing rss: %w", err)
	}

	var items []rawResult
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		if len(items) >= maxResults {
			break
		}
		title := normalizeSpace(item.Title)
		link := item.Link
		if title == "" || link == "" || seen[link] {
			continue
		}
		seen[link] = true
		items = append(items, rawResult{
			Title:   title,
			URL:     link,
			Snippet: truncate(normalizeSpace(stripHTMLTags(item.Description)), maxSnippetLen),
		})
	}
	return items, nil
}

// stripHTMLTags flattens the HTML markup Bing puts in descriptions.
func stripHTMLTags(s string) string {
	var b []rune
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b = append(b, r)
		}
	}
	return string(b)
}
