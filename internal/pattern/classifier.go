// Package pattern implements the anti-repetition publishing-pattern engine:
// title classification, the append-only publish history, and the title and
// structure policies computed from that history.
package pattern

import (
	"regexp"
	"strings"
)

// TitleType is a coarse rhetorical classification of a post title.
type TitleType string

const (
	TitleNumeric   TitleType = "numeric"
	TitleQuestion  TitleType = "question"
	TitleContrast  TitleType = "contrast"
	TitleStatement TitleType = "statement"
)

// TitleTypes lists all title types in declaration order.
var TitleTypes = []TitleType{TitleNumeric, TitleQuestion, TitleContrast, TitleStatement}

// titleRule maps a predicate to a title type. Rules are evaluated in order
// and the first match wins, so numeric takes priority over question even
// for titles like "5가지 방법이 통할까?".
type titleRule struct {
	matches func(title, lower string) bool
	typ     TitleType
}

var (
	numericRe  = regexp.MustCompile(`\d+\s*(가지|개|단계|포인트|핵심)|^\d`)
	questionRe = regexp.MustCompile(`\?|무엇|어떻게|왜|할까|인가|\b(what|how|why|should)\b`)
	contrastRe = regexp.MustCompile(`\bvs\b|대\s|비교|차이|\bversus\b`)
)

var titleRules = []titleRule{
	{func(title, _ string) bool { return numericRe.MatchString(title) }, TitleNumeric},
	{func(_, lower string) bool { return questionRe.MatchString(lower) }, TitleQuestion},
	{func(_, lower string) bool { return contrastRe.MatchString(lower) }, TitleContrast},
}

// ClassifyTitle classifies a title into one of the four title types. It is
// total: anything that matches no rule is a statement.
func ClassifyTitle(title string) TitleType {
	trimmed := strings.TrimSpace(title)
	lower := strings.ToLower(trimmed)

	for _, rule := range titleRules {
		if rule.matches(trimmed, lower) {
			return rule.typ
		}
	}
	return TitleStatement
}
