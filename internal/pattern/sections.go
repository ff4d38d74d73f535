package pattern

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ContentStructure is what the body of a published post reveals about its
// layout: section roles in order, heading count, and table/FAQ presence.
type ContentStructure struct {
	SectionKeys   []string
	H2Count       int
	HasTable      bool
	HasFaq        bool
	StructureType string
}

const maxSectionKeys = 6

// sectionKeyRule maps heading vocabulary to a semantic section role.
// Rules are checked in order; the first match names the section.
type sectionKeyRule struct {
	re  *regexp.Regexp
	key string
}

var sectionKeyRules = []sectionKeyRule{
	{regexp.MustCompile(`비교|테이블|표`), "compare_table"},
	{regexp.MustCompile(`plus.*(특징|핵심)|(특징|핵심).*plus`), "plus_features"},
	{regexp.MustCompile(`pro.*(특징|핵심)|(특징|핵심).*pro`), "pro_features"},
	{regexp.MustCompile(`가이드|선택|추천`), "decision_guide"},
	{regexp.MustCompile(`faq|자주 묻는|질문`), "faq"},
	{regexp.MustCompile(`주의|리스크`), "risk_notice"},
	{regexp.MustCompile(`요약|핵심`), "summary_insight"},
	{regexp.MustCompile(`문제|배경`), "problem_context"},
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9가-힣\s]`)

// SectionKeyForHeading maps an h2 heading to its section role, falling back
// to a slug of the heading text and finally to the generic "section".
func SectionKeyForHeading(heading string) string {
	t := strings.ToLower(normalizeSpace(heading))
	if t == "" {
		return "section"
	}

	for _, rule := range sectionKeyRules {
		if rule.re.MatchString(t) {
			return rule.key
		}
	}

	slug := slugStripRe.ReplaceAllString(t, " ")
	slug = strings.Join(strings.Fields(slug), "_")
	if runes := []rune(slug); len(runes) > 30 {
		slug = string(runes[:30])
	}
	if slug == "" {
		return "section"
	}
	return slug
}

// SummarizeContentStructure derives a ContentStructure from a post body.
// The HTML is walked for h2 headings and tables; the structure type is
// inferred from the topic and the detected sections.
func SummarizeContentStructure(content, topic string) ContentStructure {
	headings, hasTable := scanBody(content)

	keys := make([]string, 0, len(headings))
	for _, h := range headings {
		if len(keys) >= maxSectionKeys {
			break
		}
		keys = append(keys, SectionKeyForHeading(h))
	}

	hasFaq := containsKey(keys, "faq") ||
		strings.Contains(strings.ToLower(content), "faq") ||
		strings.Contains(content, "자주 묻는 질문")

	structureType := "general_a"
	lowerTopic := strings.ToLower(topic)
	if compareTopicBodyRe.MatchString(lowerTopic) || containsKey(keys, "compare_table") {
		structureType = "compare_a"
	}

	if len(keys) == 0 {
		keys = []string{"section"}
	}

	return ContentStructure{
		SectionKeys:   keys,
		H2Count:       len(headings),
		HasTable:      hasTable,
		HasFaq:        hasFaq,
		StructureType: structureType,
	}
}

var compareTopicBodyRe = regexp.MustCompile(`\bvs\b|비교|차이|plus|pro`)

// scanBody walks the parsed body and collects h2 heading texts and table
// presence. html.Parse is tolerant, so malformed model output still yields
// a best-effort scan.
func scanBody(content string) (headings []string, hasTable bool) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, false
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h2":
				if text := normalizeSpace(textContent(n)); text != "" {
					headings = append(headings, text)
				}
			case "table":
				hasTable = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return headings, hasTable
}

// textContent returns the concatenated text content of a node and its children.
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

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
