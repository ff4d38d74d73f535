package generator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tkman/postpilot/internal/pattern"
	"github.com/tkman/postpilot/internal/websearch"
)

// fakeProvider scripts CompleteJSON and Complete replies in order.
type fakeProvider struct {
	jsonReplies []string
	textReplies []string
	jsonErr     error
	textErr     error

	jsonCalls []string // user prompts seen by CompleteJSON
	textCalls []string
}

func (f *fakeProvider) Complete(_ context.Context, _, user string) (string, error) {
	f.textCalls = append(f.textCalls, user)
	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.textReplies) == 0 {
		return "", fmt.Errorf("no scripted text reply")
	}
	reply := f.textReplies[0]
	f.textReplies = f.textReplies[1:]
	return reply, nil
}

func (f *fakeProvider) CompleteJSON(_ context.Context, _, user string) (string, error) {
	f.jsonCalls = append(f.jsonCalls, user)
	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	if len(f.jsonReplies) == 0 {
		return "", fmt.Errorf("no scripted json reply")
	}
	reply := f.jsonReplies[0]
	f.jsonReplies = f.jsonReplies[1:]
	return reply, nil
}

type fakeSearcher struct {
	resp  *websearch.Response
	err   error
	calls int
}

func (f *fakeSearcher) Search(context.Context, string, websearch.Options) (*websearch.Response, error) {
	f.calls++
	return f.resp, f.err
}

func draftJSON(title string) string {
	return fmt.Sprintf(`{"title": %q, "content": "<h2>본문</h2><p>내용</p>", "tags": "a,b,c,d,e"}`, title)
}

func TestGenerate_HappyPath(t *testing.T) {
	provider := &fakeProvider{jsonReplies: []string{draftJSON("ChatGPT Plus와 Pro 차이 총정리")}}
	searcher := &fakeSearcher{resp: &websearch.Response{
		Query:     "ChatGPT Plus vs Pro",
		FetchedAt: time.Now(),
		Results: []websearch.Result{
			{Title: "Pricing", URL: "https://openai.com/chatgpt/pricing/", Snippet: "공식 요금"},
		},
	}}
	session := NewSession(SessionConfig{Provider: provider, Searcher: searcher})

	draft, err := session.Generate(context.Background(), "ChatGPT Plus vs Pro", Options{Category: "AI"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if draft.Title != "ChatGPT Plus와 Pro 차이 총정리" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.Meta.TitleType != pattern.TitleContrast {
		t.Errorf("title type = %q, want contrast", draft.Meta.TitleType)
	}
	if draft.Meta.TitleRepaired {
		t.Error("unexpected repair on a compliant title")
	}
	if !draft.Meta.SearchUsed {
		t.Error("search context was available but not marked used")
	}
	if !strings.HasPrefix(draft.Meta.StructureType, "compare_") {
		t.Errorf("structure type = %q, want a compare template", draft.Meta.StructureType)
	}
	if got := session.LastSearch(); got == nil || got.Query != "ChatGPT Plus vs Pro" {
		t.Errorf("LastSearch = %+v", got)
	}

	prompt := provider.jsonCalls[0]
	if !strings.Contains(prompt, "openai.com/chatgpt/pricing") {
		t.Error("prompt missing search result URL")
	}
	if strings.Contains(prompt, noSearchMarker) {
		t.Error("prompt carries the no-search marker despite results")
	}
}

func TestGenerate_SearchFailureDegrades(t *testing.T) {
	provider := &fakeProvider{jsonReplies: []string{draftJSON("오늘의 기록")}}
	searcher := &fakeSearcher{err: &websearch.SearchError{Query: "q", Err: errors.New("down")}}
	session := NewSession(SessionConfig{Provider: provider, Searcher: searcher})

	draft, err := session.Generate(context.Background(), "일상 주제", Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.Meta.SearchUsed {
		t.Error("failed search marked as used")
	}
	if !strings.Contains(provider.jsonCalls[0], noSearchMarker) {
		t.Error("prompt missing the no-search marker")
	}
}

func TestGenerate_DisableSearch(t *testing.T) {
	provider := &fakeProvider{jsonReplies: []string{draftJSON("오늘의 기록")}}
	searcher := &fakeSearcher{resp: &websearch.Response{}}
	session := NewSession(SessionConfig{Provider: provider, Searcher: searcher})

	if _, err := session.Generate(context.Background(), "주제", Options{DisableSearch: true}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if searcher.calls != 0 {
		t.Errorf("search called %d times with search disabled", searcher.calls)
	}
}

func TestGenerate_TitleRepairAdopted(t *testing.T) {
	// Recent history is numeric-heavy, so numeric titles are disallowed.
	recent := []pattern.PublishRecord{
		{TitleType: pattern.TitleNumeric},
		{TitleType: pattern.TitleNumeric},
		{TitleType: pattern.TitleStatement},
	}
	provider := &fakeProvider{
		jsonReplies: []string{draftJSON("성공하는 5가지 습관")},
		textReplies: []string{"\"아침 습관, 꼭 바꿔야 할까?\"\n"},
	}
	session := NewSession(SessionConfig{Provider: provider})

	draft, err := session.Generate(context.Background(), "아침 습관", Options{RecentPatterns: recent})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if draft.Title != "아침 습관, 꼭 바꿔야 할까?" {
		t.Errorf("title = %q, want the repaired title with quotes stripped", draft.Title)
	}
	if !draft.Meta.TitleRepaired {
		t.Error("TitleRepaired = false after an adopted repair")
	}
	if draft.Meta.TitleType != pattern.TitleQuestion {
		t.Errorf("title type = %q, want question", draft.Meta.TitleType)
	}
	if len(provider.textCalls) != 1 {
		t.Fatalf("repair calls = %d, want exactly 1", len(provider.textCalls))
	}
}

func TestGenerate_RepairFailureKeepsOriginal(t *testing.T) {
	recent := []pattern.PublishRecord{
		{TitleType: pattern.TitleNumeric},
		{TitleType: pattern.TitleNumeric},
	}

	t.Run("call error", func(t *testing.T) {
		provider := &fakeProvider{
			jsonReplies: []string{draftJSON("성공하는 5가지 습관")},
			textErr:     errors.New("rate limited"),
		}
		session := NewSession(SessionConfig{Provider: provider})

		draft, err := session.Generate(context.Background(), "습관", Options{RecentPatterns: recent})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if draft.Title != "성공하는 5가지 습관" {
			t.Errorf("title = %q, want the original kept", draft.Title)
		}
		if draft.Meta.TitleRepaired {
			t.Error("TitleRepaired = true after a failed repair call")
		}
	})

	t.Run("repair still violates", func(t *testing.T) {
		provider := &fakeProvider{
			jsonReplies: []string{draftJSON("성공하는 5가지 습관")},
			textReplies: []string{"실패 없는 3단계 루틴"},
		}
		session := NewSession(SessionConfig{Provider: provider})

		draft, err := session.Generate(context.Background(), "습관", Options{RecentPatterns: recent})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if draft.Title != "성공하는 5가지 습관" {
			t.Errorf("title = %q, want the original kept", draft.Title)
		}
		if len(provider.textReplies) != 0 {
			t.Error("repair reply not consumed")
		}
	})
}

func TestGenerate_ProviderErrorPropagates(t *testing.T) {
	provider := &fakeProvider{jsonErr: errors.New("boom")}
	session := NewSession(SessionConfig{Provider: provider})

	if _, err := session.Generate(context.Background(), "주제", Options{}); err == nil {
		t.Fatal("want error from a failed generation call")
	}
}

func TestGenerate_MalformedOutput(t *testing.T) {
	for name, reply := range map[string]string{
		"not json":      "제목: 무언가",
		"missing title": `{"content": "<p>x</p>", "tags": "a"}`,
	} {
		t.Run(name, func(t *testing.T) {
			provider := &fakeProvider{jsonReplies: []string{reply}}
			session := NewSession(SessionConfig{Provider: provider})
			if _, err := session.Generate(context.Background(), "주제", Options{}); err == nil {
				t.Fatal("want error for malformed generation output")
			}
		})
	}
}

func TestGenerate_FencedJSONAccepted(t *testing.T) {
	provider := &fakeProvider{jsonReplies: []string{
		"```json\n" + draftJSON("정리해 본 기록") + "\n```",
	}}
	session := NewSession(SessionConfig{Provider: provider})

	draft, err := session.Generate(context.Background(), "주제", Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.Title != "정리해 본 기록" {
		t.Errorf("title = %q", draft.Title)
	}
}

func TestGenerate_ReadsHistoryFromStore(t *testing.T) {
	store := pattern.NewStore(filepath.Join(t.TempDir(), "patterns.jsonl"))
	for i := 0; i < 3; i++ {
		record := pattern.PublishRecord{
			Timestamp: time.Now(),
			Title:     fmt.Sprintf("루틴 %d가지", i+1),
			TitleType: pattern.TitleNumeric,
			Category:  "생활",
		}
		if err := store.Append(record); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	provider := &fakeProvider{
		jsonReplies: []string{draftJSON("루틴 7가지 더")},
		textReplies: []string{"루틴, 계속할 수 있을까?"},
	}
	session := NewSession(SessionConfig{Provider: provider, Store: store})

	draft, err := session.Generate(context.Background(), "루틴", Options{Category: "생활"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !draft.Meta.TitleRepaired {
		t.Error("numeric-saturated history did not trigger a repair")
	}
}

func TestGenerate_RecentWindowBoundsHistoryRead(t *testing.T) {
	store := pattern.NewStore(filepath.Join(t.TempDir(), "patterns.jsonl"))
	for i := 0; i < 4; i++ {
		record := pattern.PublishRecord{
			Timestamp: time.Now(),
			Title:     fmt.Sprintf("루틴 %d가지", i+1),
			TitleType: pattern.TitleNumeric,
			Category:  "생활",
		}
		if err := store.Append(record); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	latest := pattern.PublishRecord{
		Timestamp: time.Now(),
		Title:     "아침 루틴을 바꿔보았다",
		TitleType: pattern.TitleStatement,
		Category:  "생활",
	}
	if err := store.Append(latest); err != nil {
		t.Fatalf("Append: %v", err)
	}

	provider := &fakeProvider{jsonReplies: []string{draftJSON("루틴 7가지 더")}}
	session := NewSession(SessionConfig{Provider: provider, Store: store, RecentWindow: 1})

	draft, err := session.Generate(context.Background(), "루틴", Options{Category: "생활"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft.Meta.TitleRepaired {
		t.Error("window of 1 still saw the older numeric titles")
	}
	if got := len(provider.textCalls); got != 0 {
		t.Errorf("repair calls = %d, want 0", got)
	}
}

func TestRecordPublished_AppendsToStore(t *testing.T) {
	store := pattern.NewStore(filepath.Join(t.TempDir(), "patterns.jsonl"))
	session := NewSession(SessionConfig{Store: store})

	draft := &Draft{
		Title:   "ChatGPT Plus vs Pro 비교",
		Content: "<h2>요금 비교</h2><table><tr><td>x</td></tr></table>",
		Meta:    Meta{Topic: "ChatGPT 요금제", Category: "AI", StructureType: "compare_a"},
	}
	session.RecordPublished(draft, "https://example.tistory.com/1", "1", "")

	records, err := store.ReadRecent("AI", 5)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].TitleType != pattern.TitleContrast {
		t.Errorf("recorded title type = %q, want contrast", records[0].TitleType)
	}
	if records[0].PostID != "1" {
		t.Errorf("postId = %q", records[0].PostID)
	}
}

func TestGenerate_EmptyTopic(t *testing.T) {
	session := NewSession(SessionConfig{Provider: &fakeProvider{}})
	if _, err := session.Generate(context.Background(), "", Options{}); err == nil {
		t.Fatal("want error for empty topic")
	}
}
