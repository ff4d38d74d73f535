package websearch

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

const maxSnippetLen = 300

// rawResult is one scraped result before scoring and projection.
type rawResult struct {
	Title       string
	URL         string
	Snippet     string
	SourceQuery string
}

// parseDuckDuckGoHTML extracts result items from a DuckDuckGo lite/html
// response. Result links carry a result__a or result-link class; the snippet
// for a link is the next result__snippet/result-snippet element before the
// following result link.
func parseDuckDuckGoHTML(body string, maxResults int) []rawResult {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var items []rawResult
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(items) >= maxResults {
			return
		}

		if n.Type == html.ElementNode {
			class := getAttr(n, "class")

			switch {
			case n.Data == "a" && (strings.Contains(class, "result__a") || strings.Contains(class, "result-link")):
				href := getAttr(n, "href")
				title := normalizeSpace(textContent(n))
				resultURL := unwrapDuckDuckGoURL(href)

				if title != "" && resultURL != "" && !seen[resultURL] {
					seen[resultURL] = true
					items = append(items, rawResult{Title: title, URL: resultURL})
				}
				return // anchor text already consumed

			case (n.Data == "a" || n.Data == "div" || n.Data == "td") &&
				(strings.Contains(class, "result__snippet") || strings.Contains(class, "result-snippet")):
				// Attach to the most recent link that has no snippet yet.
				if len(items) > 0 && items[len(items)-1].Snippet == "" {
					items[len(items)-1].Snippet = truncate(normalizeSpace(textContent(n)), maxSnippetLen)
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return items
}

// unwrapDuckDuckGoURL resolves a DuckDuckGo result href to the target URL.
// Redirect links carry the destination in the uddg query parameter.
func unwrapDuckDuckGoURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	} else if strings.HasPrefix(href, "/") {
		href = "https://duckduckgo.com" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if strings.Contains(u.Hostname(), "duckduckgo.com") {
		if uddg := u.Query().Get("uddg"); uddg != "" {
			return uddg
		}
	}
	return u.String()
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func normalizeSpace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at n characters, not bytes, so Korean text keeps its
// full allowance.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
