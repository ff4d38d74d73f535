package websearch

import (
	"strings"
	"testing"
)

const sampleDDGHTML = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fopenai.com%2Fchatgpt%2Fpricing%2F&rut=abc">ChatGPT <b>Pricing</b></a>
  <a class="result__snippet" href="#">Compare ChatGPT Plus and Pro plans &amp; features.</a>
</div>
<div class="result">
  <a class="result__a" href="https://www.theverge.com/chatgpt-pro-review">ChatGPT Pro review</a>
  <div class="result__snippet">Hands on with the new tier.</div>
</div>
<div class="nav"><a href="/settings">settings</a></div>
</body></html>`

func TestParseDuckDuckGoHTML(t *testing.T) {
	items := parseDuckDuckGoHTML(sampleDDGHTML, 5)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	t.Run("unwraps redirect urls", func(t *testing.T) {
		if items[0].URL != "https://openai.com/chatgpt/pricing/" {
			t.Errorf("URL = %q, want the unwrapped uddg target", items[0].URL)
		}
	})

	t.Run("flattens title markup", func(t *testing.T) {
		if items[0].Title != "ChatGPT Pricing" {
			t.Errorf("Title = %q, want %q", items[0].Title, "ChatGPT Pricing")
		}
	})

	t.Run("decodes snippet entities", func(t *testing.T) {
		if !strings.Contains(items[0].Snippet, "plans & features") {
			t.Errorf("Snippet = %q, want decoded ampersand", items[0].Snippet)
		}
	})

	t.Run("keeps plain result links", func(t *testing.T) {
		if items[1].URL != "https://www.theverge.com/chatgpt-pro-review" {
			t.Errorf("URL = %q", items[1].URL)
		}
		if items[1].Snippet != "Hands on with the new tier." {
			t.Errorf("Snippet = %q", items[1].Snippet)
		}
	})

	t.Run("ignores non-result anchors", func(t *testing.T) {
		for _, item := range items {
			if strings.Contains(item.URL, "/settings") {
				t.Errorf("navigation link leaked into results: %q", item.URL)
			}
		}
	})
}

func TestParseDuckDuckGoHTML_MaxResults(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteString(`<a class="result__a" href="https://example.com/p`)
		b.WriteByte(byte('0' + i))
		b.WriteString(`">Result</a>`)
	}

	items := parseDuckDuckGoHTML(b.String(), 3)
	if len(items) != 3 {
		t.Errorf("got %d items, want 3", len(items))
	}
}

func TestTruncate_CountsRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 4, "abcd"},
		{"아침 루틴을 바꾸는 방법", 5, "아침 루틴"},
		{"가나다", 3, "가나다"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestUnwrapDuckDuckGoURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//duckduckgo.com/l/?uddg=https%3A%2F%2Fopenai.com%2Fpricing", "https://openai.com/pricing"},
		{"/l/?uddg=https%3A%2F%2Fexample.com%2Fa", "https://example.com/a"},
		{"https://example.com/direct", "https://example.com/direct"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := unwrapDuckDuckGoURL(tt.in); got != tt.want {
			t.Errorf("unwrapDuckDuckGoURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
