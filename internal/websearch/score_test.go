package websearch

import (
	"reflect"
	"testing"
)

func TestCanonicalURLKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			"drops tracking query",
			"https://chatgpt.com/pricing?utm_source=x&ref=abc",
			"chatgpt.com/pricing",
		},
		{
			"drops fragment",
			"https://openai.com/policies#section-2",
			"openai.com/policies",
		},
		{
			"strips locale prefix on known hosts",
			"https://chatgpt.com/ko/pricing",
			"chatgpt.com/pricing",
		},
		{
			"keeps locale-looking prefix on other hosts",
			"https://example.com/ko/pricing",
			"example.com/ko/pricing",
		},
		{
			"trims trailing slash",
			"https://openai.com/pricing/",
			"openai.com/pricing",
		},
		{
			"bare host",
			"https://openai.com",
			"openai.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalURLKey(tt.url); got != tt.want {
				t.Errorf("CanonicalURLKey(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestCanonicalURLKey_DedupeEquivalence(t *testing.T) {
	// Two results differing only in tracking parameters and a locale path
	// segment must collapse to the same key.
	a := CanonicalURLKey("https://chatgpt.com/ko/pricing?utm_source=ddg")
	b := CanonicalURLKey("https://chatgpt.com/pricing")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
}

func TestQueryTokens(t *testing.T) {
	got := queryTokens("ChatGPT Plus vs Pro 비교 요금제")

	// "vs" is too short, "비교" is a stopword.
	want := []string{"chatgpt", "plus", "pro", "요금제"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("queryTokens = %v, want %v", got, want)
	}
}

func TestScoreResult(t *testing.T) {
	query := "ChatGPT Plus vs Pro"

	t.Run("authoritative beats low-trust at equal overlap", func(t *testing.T) {
		official := rawResult{
			Title:   "ChatGPT Pricing",
			URL:     "https://openai.com/chatgpt/pricing",
			Snippet: "Compare ChatGPT Plus and Pro plans.",
		}
		ugc := rawResult{
			Title:   "ChatGPT Pricing",
			URL:     "https://www.reddit.com/r/ChatGPT/comments/abc",
			Snippet: "Compare ChatGPT Plus and Pro plans.",
		}

		if so, su := scoreResult(official, query), scoreResult(ugc, query); so <= su {
			t.Errorf("official score %d should beat UGC score %d", so, su)
		}
	})

	t.Run("low-trust zero-overlap result scores negative", func(t *testing.T) {
		r := rawResult{
			Title:   "Unrelated thread",
			URL:     "https://www.reddit.com/r/misc/xyz",
			Snippet: "nothing relevant here",
		}
		if got := scoreResult(r, query); got >= 0 {
			t.Errorf("score = %d, want negative", got)
		}
	})

	t.Run("token overlap adds two per distinct token", func(t *testing.T) {
		r := rawResult{
			Title:   "chatgpt plus",
			URL:     "https://example.com/a",
			Snippet: "",
		}
		// Tokens chatgpt + plus overlap; pro does not.
		if got := scoreResult(r, query); got != 4 {
			t.Errorf("score = %d, want 4", got)
		}
	})

	t.Run("brand host co-occurrence bonus", func(t *testing.T) {
		plain := rawResult{Title: "pricing", URL: "https://example.com/p", Snippet: ""}
		branded := rawResult{Title: "pricing", URL: "https://community.openai.com/p", Snippet: ""}

		if sp, sb := scoreResult(plain, query), scoreResult(branded, query); sb != sp+8 {
			t.Errorf("brand bonus: plain %d, branded %d, want +8", sp, sb)
		}
	})
}

func TestIsIntentMatch(t *testing.T) {
	query := "ChatGPT Plus vs Pro"

	t.Run("requires both plan terms", func(t *testing.T) {
		r := rawResult{Title: "ChatGPT Plus and Pro compared", URL: "https://example.com", Snippet: ""}
		if !isIntentMatch(r, query) {
			t.Error("result with both terms should pass")
		}
	})

	t.Run("pro with pricing cue passes", func(t *testing.T) {
		r := rawResult{Title: "ChatGPT Pro pricing explained", URL: "https://example.com", Snippet: ""}
		if !isIntentMatch(r, query) {
			t.Error("pro + pricing cue should pass")
		}
	})

	t.Run("off-topic result is gated", func(t *testing.T) {
		r := rawResult{Title: "ChatGPT tips for students", URL: "https://example.com", Snippet: "study faster"}
		if isIntentMatch(r, query) {
			t.Error("result without plan terms should be gated")
		}
	})

	t.Run("status query matches the literal status domain", func(t *testing.T) {
		r := rawResult{Title: "OpenAI", URL: "https://status.openai.com", Snippet: "all systems operational"}
		if !isIntentMatch(r, "chatgpt outage today") {
			t.Error("status.openai.com should satisfy the outage intent")
		}
	})

	t.Run("unrecognized query shape passes everything", func(t *testing.T) {
		r := rawResult{Title: "anything", URL: "https://example.com", Snippet: ""}
		if !isIntentMatch(r, "아침 루틴 만들기") {
			t.Error("unrecognized shapes must not gate")
		}
	})
}
