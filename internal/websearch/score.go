package websearch

import (
	"net/url"
	"regexp"
	"strings"
)

// officialDomains are first-party hosts for the subjects this agent writes
// about most; they get a strong authority bonus.
var officialDomains = map[string]bool{
	"openai.com":          true,
	"chatgpt.com":         true,
	"help.openai.com":     true,
	"status.openai.com":   true,
	"platform.openai.com": true,
}

// trustedNewsDomains are established publications worth a modest bonus.
var trustedNewsDomains = map[string]bool{
	"reuters.com":           true,
	"www.reuters.com":       true,
	"www.digitaltrends.com": true,
	"www.techradar.com":     true,
	"www.zdnet.com":         true,
	"www.nytimes.com":       true,
	"www.bloomberg.com":     true,
	"www.theverge.com":      true,
	"techcrunch.com":        true,
	"www.wired.com":         true,
	"www.forbes.com":        true,
}

// lowTrustDomains are community/UGC hosts that rank well but rarely answer
// plan/pricing questions authoritatively.
var lowTrustDomains = map[string]bool{
	"reddit.com":      true,
	"www.reddit.com":  true,
	"zhihu.com":       true,
	"www.zhihu.com":   true,
	"github.com":      true,
	"quora.com":       true,
	"www.quora.com":   true,
	"pinterest.com":   true,
	"m.pinterest.com": true,
}

var queryTokenRe = regexp.MustCompile(`[a-z0-9]{3,}|[가-힣]{2,}`)

var stopwords = map[string]bool{
	"with": true, "from": true, "that": true, "this": true,
	"그리고": true, "대한": true, "관련": true, "차이": true, "비교": true,
}

// queryTokens extracts the distinct meaningful tokens of a query: ASCII
// runs of three or more characters and Korean runs of two or more, with
// stopwords removed, in first-seen order.
func queryTokens(text string) []string {
	matches := queryTokenRe.FindAllString(strings.ToLower(text), -1)

	seen := make(map[string]bool, len(matches))
	var tokens []string
	for _, tok := range matches {
		if stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

// hostname returns the lowercase host of a URL, or "" if it cannot be parsed.
func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

var localePathRe = regexp.MustCompile(`^[a-z]{2}(-[a-z0-9]{2,})?$`)

// localeStrippedHosts lists platforms that mirror the same page under a
// locale path prefix ("/ko/pricing" and "/pricing" are the same page).
var localeStrippedHosts = map[string]bool{
	"chatgpt.com": true,
	"openai.com":  true,
}

// CanonicalURLKey reduces a URL to host + normalized path for dedupe: the
// query string and fragment are dropped (tracking parameters collapse), a
// recognized locale prefix is stripped on known hosts, and trailing slashes
// are trimmed. Unparseable URLs canonicalize to themselves.
func CanonicalURLKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	host := strings.ToLower(u.Hostname())
	path := u.Path

	if localeStrippedHosts[host] {
		parts := splitPath(path)
		if len(parts) > 1 && localePathRe.MatchString(strings.ToLower(parts[0])) {
			path = "/" + strings.Join(parts[1:], "/")
		}
	}

	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	}
	return host + path
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// scoreResult scores a deduplicated result against the original query:
// token overlap in title+snippet, host authority bonuses and penalties,
// and subject/brand co-occurrence bonuses.
func scoreResult(r rawResult, originalQuery string) int {
	text := strings.ToLower(r.Title + " " + r.Snippet)

	score := 0
	for _, tok := range queryTokens(originalQuery) {
		if strings.Contains(text, tok) {
			score += 2
		}
	}

	host := hostname(r.URL)
	switch {
	case officialDomains[host]:
		score += 30
	case trustedNewsDomains[host]:
		score += 10
	case lowTrustDomains[host]:
		score -= 18
	}

	lowerQuery := strings.ToLower(originalQuery)
	if strings.Contains(lowerQuery, "chatgpt") && (strings.Contains(host, "chatgpt") || strings.Contains(host, "openai")) {
		score += 8
	}
	if strings.Contains(lowerQuery, "openai") && strings.Contains(host, "openai") {
		score += 8
	}

	return score
}

// intentRule gates results for a recognized query shape. Rules are checked
// in order; the first whose applies predicate matches decides, and queries
// matching no rule pass everything.
type intentRule struct {
	applies func(q string) bool
	pass    func(text string) bool
}

var proTermRe = regexp.MustCompile(`\bpro\b|/pro\b`)
var planCueRe = regexp.MustCompile(`pricing|plan|plans|요금`)
var outageQueryRe = regexp.MustCompile(`status|outage|issue|error|장애|이슈`)

var intentRules = []intentRule{
	{
		// A "chatgpt plus vs pro" comparison needs both plan terms, or the
		// pro term plus a pricing cue, to co-occur in the candidate.
		applies: func(q string) bool {
			return strings.Contains(q, "chatgpt") && strings.Contains(q, "plus") && strings.Contains(q, "pro")
		},
		pass: func(text string) bool {
			if !strings.Contains(text, "chatgpt") {
				return false
			}
			hasPlus := strings.Contains(text, "plus")
			hasPro := proTermRe.MatchString(text)
			return (hasPlus && hasPro) || (hasPro && planCueRe.MatchString(text))
		},
	},
	{
		// Status/outage queries want incident-flavored candidates. The
		// intended first-party match is the literal status.openai.com host.
		applies: func(q string) bool {
			return (strings.Contains(q, "chatgpt") || strings.Contains(q, "openai")) && outageQueryRe.MatchString(q)
		},
		pass: func(text string) bool {
			return strings.Contains(text, "status.openai.com") ||
				strings.Contains(text, "status") ||
				strings.Contains(text, "incident") ||
				strings.Contains(text, "outage") ||
				strings.Contains(text, "error")
		},
	},
}

// isIntentMatch reports whether a result satisfies the intent gate for the
// query's recognized shape.
func isIntentMatch(r rawResult, query string) bool {
	q := strings.ToLower(query)
	text := strings.ToLower(r.Title + " " + r.Snippet + " " + r.URL)

	for _, rule := range intentRules {
		if rule.applies(q) {
			return rule.pass(text)
		}
	}
	return true
}
