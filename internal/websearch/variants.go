package websearch

import (
	"regexp"
	"strings"
)

const maxVariants = 4

var nonASCIIRe = regexp.MustCompile(`[^\x00-\x7F]+`)
var outageVariantRe = regexp.MustCompile(`issue|issues|outage|status|error|장애|이슈|오류|다운`)

// BuildQueryVariants generates up to four phrasings of a query: the original,
// an ASCII-stripped variant when it differs, and hand-authored reformulations
// for recognized intent shapes biased toward authoritative sources.
func BuildQueryVariants(query string) []string {
	var variants []string
	add := func(q string) {
		normalized := strings.Join(strings.Fields(q), " ")
		if normalized == "" {
			return
		}
		for _, v := range variants {
			if v == normalized {
				return
			}
		}
		variants = append(variants, normalized)
	}

	add(query)

	ascii := strings.Join(strings.Fields(nonASCIIRe.ReplaceAllString(query, " ")), " ")
	if ascii != "" && !strings.EqualFold(ascii, strings.TrimSpace(query)) {
		add(ascii)
	}

	lower := strings.ToLower(query)

	if strings.Contains(lower, "chatgpt") && strings.Contains(lower, "plus") && strings.Contains(lower, "pro") {
		add("ChatGPT plans pricing plus pro official")
		add("chatgpt.com pricing plus pro")
	}

	if (strings.Contains(lower, "chatgpt") || strings.Contains(lower, "openai")) && outageVariantRe.MatchString(lower) {
		add("OpenAI status ChatGPT incidents")
		add("ChatGPT release notes OpenAI help")
	}

	if len(variants) > maxVariants {
		variants = variants[:maxVariants]
	}
	return variants
}
