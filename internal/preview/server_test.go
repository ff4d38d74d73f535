package preview

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tkman/postpilot/internal/generator"
)

func testDraft() *generator.Draft {
	return &generator.Draft{
		Title:   "ChatGPT Plus vs Pro 비교",
		Content: "<h2>요금</h2><p>본문 내용</p>",
		Tags:    "chatgpt,요금제",
	}
}

func TestHandleIndex(t *testing.T) {
	s := NewServer()
	s.SetDraft(testDraft())

	server := httptest.NewServer(s.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	page := string(body)

	for _, want := range []string{
		"<h1>ChatGPT Plus vs Pro 비교</h1>",
		"<h2>요금</h2>",
		"태그: chatgpt,요금제",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q:\n%s", want, page)
		}
	}
}

func TestHandleIndex_NoDraft(t *testing.T) {
	server := httptest.NewServer(NewServer().Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a draft", resp.StatusCode)
	}
}

func TestHandleRaw(t *testing.T) {
	s := NewServer()
	s.SetDraft(testDraft())

	server := httptest.NewServer(s.Router())
	defer server.Close()

	resp, err := http.Get(server.URL + "/raw")
	if err != nil {
		t.Fatalf("GET /raw: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<h2>요금</h2><p>본문 내용</p>" {
		t.Errorf("raw body = %q", body)
	}
}

func TestSetDraft_SwapsWhileServing(t *testing.T) {
	s := NewServer()
	s.SetDraft(testDraft())

	server := httptest.NewServer(s.Router())
	defer server.Close()

	s.SetDraft(&generator.Draft{Title: "바뀐 제목", Content: "<p>새 본문</p>"})

	resp, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "바뀐 제목") {
		t.Error("swapped draft not served")
	}
}

func TestToMarkdown(t *testing.T) {
	md, err := ToMarkdown("<h2>제목</h2><p>본문 <strong>강조</strong></p>")
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	for _, want := range []string{"## 제목", "**강조**"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}
