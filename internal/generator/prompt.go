package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tkman/postpilot/internal/pattern"
	"github.com/tkman/postpilot/internal/websearch"
)

const systemPrompt = `당신은 한국어 기술/생활 블로그의 전문 작가입니다.
주어진 주제로 티스토리에 바로 발행할 수 있는 HTML 본문을 작성합니다.

원칙:
- 검색 컨텍스트가 주어지면 그 사실만 사용하고, 없으면 확정적 수치를 단정하지 않습니다.
- 독자가 스캔하기 좋게 h2 소제목, 목록, 표를 적극적으로 사용합니다.
- 과장 광고 문구, 클릭베이트, 이모지 남발을 피합니다.
- 출력 형식 지시를 정확히 따릅니다.`

const noSearchMarker = "웹 검색 컨텍스트 없음. 최신 수치/가격/출시일은 단정하지 말고 '공식 페이지 확인 권장'으로 처리할 것."

// PromptInput gathers everything BuildPostPrompt folds into the user
// message.
type PromptInput struct {
	Topic         string
	Tone          string
	Search        *websearch.Response
	TopExcerpt    string
	AllowedTypes  []pattern.TitleType
	RecentSummary string
	Template      pattern.Template
}

var koreanTitleTypeNames = map[pattern.TitleType]string{
	pattern.TitleNumeric:   "숫자형 (예: N가지, N단계)",
	pattern.TitleQuestion:  "질문형 (예: ~할까?, 왜 ~인가)",
	pattern.TitleContrast:  "대조형 (예: A vs B, 차이)",
	pattern.TitleStatement: "평서형 (일반 서술)",
}

// BuildPostPrompt renders the system and user messages for the single
// structured generation call.
func BuildPostPrompt(in PromptInput) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "주제: %s\n", in.Topic)
	if in.Tone != "" {
		fmt.Fprintf(&b, "톤: %s\n", in.Tone)
	}
	b.WriteString("\n")

	writeSearchContext(&b, in.Search, in.TopExcerpt)
	if kw := FocusKeywords(in.Topic); len(kw) > 0 {
		fmt.Fprintf(&b, "핵심 키워드 (본문에 자연스럽게 반영): %s\n\n", strings.Join(kw, ", "))
	}

	b.WriteString("[제목 정책]\n")
	b.WriteString("허용되는 제목 유형 중 하나로만 제목을 작성할 것:\n")
	for _, tt := range in.AllowedTypes {
		fmt.Fprintf(&b, "- %s\n", koreanTitleTypeNames[tt])
	}
	b.WriteString("\n[최근 발행 패턴 — 제목과 구조가 겹치지 않게 할 것]\n")
	b.WriteString(in.RecentSummary)
	b.WriteString("\n\n[본문 구조]\n")
	b.WriteString(in.Template.Instruction)
	b.WriteString("\n")

	b.WriteString(`
[작성 규칙]
- 본문은 완성된 HTML (h2, p, ul, table 등). 마크다운 금지.
- 이미지를 넣을 자리에 <!-- IMAGE: 영문 검색 키워드 --> 주석을 2~3개 배치할 것.
- 본문에 원시 URL 링크를 직접 넣지 말 것.
- 검색 컨텍스트에 없는 수치는 "약", "기준 시점에 따라 다름" 등으로 완충할 것.
- 태그는 쉼표로 구분한 5~7개.

다음 JSON 객체 하나만 출력:
{"title": "제목", "content": "HTML 본문", "tags": "태그1,태그2,..."}
`)

	return systemPrompt, b.String()
}

func writeSearchContext(b *strings.Builder, resp *websearch.Response, excerpt string) {
	if resp == nil || len(resp.Results) == 0 {
		b.WriteString("[검색 컨텍스트]\n")
		b.WriteString(noSearchMarker)
		b.WriteString("\n\n")
		return
	}

	fmt.Fprintf(b, "[검색 컨텍스트 — 조회 시각 %s]\n", resp.FetchedAt.Format("2006-01-02 15:04"))
	for i, r := range resp.Results {
		fmt.Fprintf(b, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(b, "   %s\n", r.Snippet)
		}
	}
	if excerpt != "" {
		b.WriteString("\n[1번 결과 본문 발췌]\n")
		b.WriteString(excerpt)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

var focusTokenRe = regexp.MustCompile(`[A-Za-z0-9]{2,}|[가-힣]{2,}`)

var focusStopwords = map[string]bool{
	"대해": true, "관련": true, "정리": true, "방법": true,
	"하는": true, "위한": true, "그리고": true,
}

// FocusKeywords extracts up to five salient tokens from the topic for the
// prompt's keyword line.
func FocusKeywords(topic string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range focusTokenRe.FindAllString(topic, -1) {
		key := strings.ToLower(tok)
		if focusStopwords[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tok)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// BuildTitleRepairPrompt renders the prompts for the single title-repair
// call. The model must answer with a bare title line.
func BuildTitleRepairPrompt(topic, tone string, allowed []pattern.TitleType, content string) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "주제: %s\n", topic)
	if tone != "" {
		fmt.Fprintf(&b, "톤: %s\n", tone)
	}
	b.WriteString("\n아래 본문에 맞는 새 제목을 하나만 작성할 것. 허용 제목 유형:\n")
	for _, tt := range allowed {
		fmt.Fprintf(&b, "- %s\n", koreanTitleTypeNames[tt])
	}
	b.WriteString("\n[본문 앞부분]\n")
	b.WriteString(truncateRunes(stripHTML(content), 400))
	b.WriteString("\n\n제목 한 줄만 출력. 따옴표, 설명, 마크다운 없이.")
	return systemPrompt, b.String()
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.Join(strings.Fields(htmlTagRe.ReplaceAllString(s, " ")), " ")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// cleanRepairedTitle normalizes a repair reply down to a single bare title
// line: first non-empty line, fences and wrapping quotes stripped.
func cleanRepairedTitle(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "```")
		line = strings.Trim(line, `"'“”`)
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
