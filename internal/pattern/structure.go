package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Template is a named content-structure plan: the ordered section roles it
// prescribes and the authoring instruction handed to the model.
type Template struct {
	ID          string
	SectionKeys []string
	Instruction string

	// CollisionScore is filled in at selection time.
	CollisionScore int
}

// compareTemplates is the candidate pool for comparison-intent topics.
// Declaration order breaks score ties: the earliest lowest-score template wins.
var compareTemplates = []Template{
	{
		ID:          "compare_a",
		SectionKeys: []string{"compare_table", "core_diff", "use_case", "decision_guide"},
		Instruction: "- 섹션 순서: 한눈에 비교표 → 핵심 차이 3가지 → 사용자 시나리오별 추천 → 최종 선택 가이드\n" +
			"- 비교표는 초반에 1회만 배치하고, 이후는 사례 중심으로 전개",
	},
	{
		ID:          "compare_b",
		SectionKeys: []string{"summary_insight", "compare_table", "cost_tradeoff", "checklist"},
		Instruction: "- 섹션 순서: 요약 인사이트 → 비교표 → 비용/성능 트레이드오프 → 선택 체크리스트\n" +
			"- 초반 요약 인사이트로 결론 방향을 먼저 제시",
	},
	{
		ID:          "compare_c",
		SectionKeys: []string{"compare_table", "workflow_example", "risk_notice", "decision_guide"},
		Instruction: "- 섹션 순서: 비교표 → 실제 활용 워크플로 예시 2개 → 리스크/주의점 → 선택 가이드\n" +
			"- 기능 나열보다 실제 사용 흐름 설명 비중을 높임",
	},
	{
		ID:          "compare_d",
		SectionKeys: []string{"problem_context", "compare_table", "faq", "next_action"},
		Instruction: "- 섹션 순서: 문제 맥락 정의 → 비교표 → FAQ 3문항 → 다음 액션\n" +
			"- FAQ 섹션을 반드시 포함해서 반복 질문을 정리",
	},
}

// generalTemplate is the default pool for non-comparison topics.
var generalTemplate = Template{
	ID:          "general_a",
	SectionKeys: []string{"intro", "main_point", "detail", "action"},
	Instruction: "- 섹션 순서: 문제 정의 → 핵심 포인트 → 상세 사례 → 실행 액션\n" +
		"- 동일 레이블 반복을 피하고 섹션 역할을 분명히 분리",
}

var compareTopicRe = regexp.MustCompile(`\bvs\b|비교|차이|플랜|요금제|plus|pro|review|리뷰`)

// IsCompareTopic reports whether the topic carries comparison intent
// (versus markers, plan/pricing cues, review vocabulary).
func IsCompareTopic(topic string) bool {
	t := strings.Join(strings.Fields(strings.ToLower(topic)), " ")
	return compareTopicRe.MatchString(t)
}

// collisionScore measures how similar a candidate template is to the recent
// publish window: +3 for an exact structure-type repeat, +2 when the first
// three section keys repeat as an ordered prefix, +1 when only the opening
// section repeats.
func collisionScore(tpl Template, recent []PublishRecord) int {
	head := strings.Join(prefix(tpl.SectionKeys, 3), "|")

	score := 0
	for _, r := range recent {
		if r.StructureType == tpl.ID {
			score += 3
		}

		recentHead := strings.Join(prefix(r.SectionKeys, 3), "|")
		if recentHead != "" && recentHead == head {
			score += 2
		}

		if len(r.SectionKeys) > 0 && len(tpl.SectionKeys) > 0 && r.SectionKeys[0] == tpl.SectionKeys[0] {
			score++
		}
	}
	return score
}

func prefix(keys []string, n int) []string {
	if len(keys) > n {
		return keys[:n]
	}
	return keys
}

// SelectTemplate picks the structure template with the lowest collision
// score against the recent window. Comparison topics choose among the four
// compare templates; everything else uses the general template. This is a
// greedy anti-repetition heuristic, not an optimal search.
func SelectTemplate(topic string, recent []PublishRecord) Template {
	pool := []Template{generalTemplate}
	if IsCompareTopic(topic) {
		pool = compareTemplates
	}

	best := pool[0]
	best.CollisionScore = collisionScore(best, recent)

	for _, candidate := range pool[1:] {
		if score := collisionScore(candidate, recent); score < best.CollisionScore {
			best = candidate
			best.CollisionScore = score
		}
	}
	return best
}

// SummarizeRecent renders up to five recent records as a compact numbered
// list for prompt embedding.
func SummarizeRecent(records []PublishRecord) string {
	if len(records) == 0 {
		return "최근 발행 패턴 데이터 없음"
	}

	if len(records) > 5 {
		records = records[:5]
	}

	var b strings.Builder
	for i, r := range records {
		title := r.Title
		if len([]rune(title)) > 60 {
			title = string([]rune(title)[:60])
		}

		titleType := string(r.TitleType)
		if titleType == "" {
			titleType = "unknown"
		}
		structureType := r.StructureType
		if structureType == "" {
			structureType = "unknown"
		}
		sectionHead := "none"
		if len(r.SectionKeys) > 0 {
			sectionHead = strings.Join(prefix(r.SectionKeys, 3), " > ")
		}

		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d) [%s] %s | %s | %s", i+1, titleType, title, structureType, sectionHead)
	}
	return b.String()
}
