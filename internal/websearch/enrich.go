package websearch

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const excerptMaxWords = 400

// browserHeaders sets browser-like request headers so sites that check
// Accept or User-Agent don't reject the extraction request.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PostPilot/1.0)")
}

// FetchTopExcerpt extracts the readable text of a result page for richer
// generation context, truncated to a prompt-sized excerpt. It is best-effort
// enrichment; callers degrade to snippet-only context on error.
func FetchTopExcerpt(pageURL string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	article, err := readability.FromURL(pageURL, timeout, browserHeaders)
	if err != nil {
		return "", fmt.Errorf("readability extraction from %q: %w", pageURL, err)
	}

	return truncateWords(article.TextContent, excerptMaxWords), nil
}

// truncateWords returns the first maxWords whitespace-delimited words of s.
func truncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.TrimSpace(s)
	}
	return strings.Join(words[:maxWords], " ")
}
