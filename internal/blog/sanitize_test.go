package blog

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []string
		notWant []string
	}{
		{
			name: "keeps editor markup",
			in:   `<h2 data-ke-size="size26">제목</h2><table><tr><td colspan="2">칸</td></tr></table>`,
			want: []string{"<h2", `data-ke-size="size26"`, "<table>", `colspan="2"`},
		},
		{
			name:    "drops script",
			in:      `<p>본문</p><script>alert(1)</script>`,
			want:    []string{"<p>본문</p>"},
			notWant: []string{"<script", "alert"},
		},
		{
			name:    "drops event handlers",
			in:      `<p onclick="steal()">본문</p>`,
			want:    []string{"<p>본문</p>"},
			notWant: []string{"onclick"},
		},
		{
			name: "keeps images",
			in:   `<p><img src="https://blog.kakaocdn.net/dna/x/img.jpg" alt="이미지"></p>`,
			want: []string{"<img", "kakaocdn.net"},
		},
		{
			name: "keeps kage markers as text",
			in:   `<p>[##_Image|kage@abc/img.jpg|CDM|1.3|{"style":"alignCenter"}_##]</p>`,
			want: []string{"[##_Image|kage@abc/img.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, missing %q", tt.in, got, want)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(got, notWant) {
					t.Errorf("Sanitize(%q) = %q, should not contain %q", tt.in, got, notWant)
				}
			}
		})
	}
}
