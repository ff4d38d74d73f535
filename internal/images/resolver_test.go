package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestUnsplash serves one scripted search hit pointing at an in-test
// image URL.
func newTestUnsplash(t *testing.T, hits map[string]string) *UnsplashClient {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		keyword := r.URL.Query().Get("query")
		imagePath, ok := hits[keyword]
		if !ok {
			fmt.Fprint(w, `{"results": []}`)
			return
		}
		fmt.Fprintf(w, `{"results": [{
			"urls": {"regular": %q},
			"alt_description": "a photo of %s",
			"user": {"name": "Photographer", "links": {"html": "https://unsplash.com/@p"}}
		}]}`, server.URL+imagePath, keyword)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpegbytes"))
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := NewUnsplashClient("test-key")
	u.searchURL = server.URL + "/search"
	return u
}

func TestSearchImage_NoKey(t *testing.T) {
	u := NewUnsplashClient("")
	image, err := u.SearchImage(context.Background(), "sunrise")
	if err != nil {
		t.Fatalf("SearchImage: %v", err)
	}
	if image != nil {
		t.Errorf("image = %+v, want nil without a key", image)
	}
}

func TestSearchImage(t *testing.T) {
	u := newTestUnsplash(t, map[string]string{"sunrise": "/img/sunrise.jpg"})

	image, err := u.SearchImage(context.Background(), "sunrise")
	if err != nil {
		t.Fatalf("SearchImage: %v", err)
	}
	if image == nil {
		t.Fatal("no image returned")
	}
	if image.Alt != "a photo of sunrise" {
		t.Errorf("alt = %q", image.Alt)
	}
	if image.Credit != "Photographer" {
		t.Errorf("credit = %q", image.Credit)
	}

	miss, err := u.SearchImage(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("SearchImage miss: %v", err)
	}
	if miss != nil {
		t.Errorf("miss = %+v, want nil", miss)
	}
}

const bodyWithPlaceholders = `<h2>아침</h2>
<!-- IMAGE: morning routine -->
<p>본문</p>
<!-- IMAGE: healthy breakfast -->`

func TestReplacePlaceholders_UploadPath(t *testing.T) {
	u := newTestUnsplash(t, map[string]string{
		"morning routine":   "/img/routine.jpg",
		"healthy breakfast": "/img/breakfast.jpg",
	})

	var uploaded []string
	resolver := &Resolver{
		Unsplash: u,
		Upload: func(_ context.Context, data []byte, filename string) (string, string, error) {
			if string(data) != "jpegbytes" {
				t.Errorf("upload data = %q", data)
			}
			uploaded = append(uploaded, filename)
			return "https://cdn.example/dna/" + filename, "kage@" + filename, nil
		},
		KageMarker: func(kage string) string { return "[[" + kage + "]]" },
	}

	got := resolver.ReplacePlaceholders(context.Background(), bodyWithPlaceholders)

	if strings.Contains(got.HTML, "<!-- IMAGE:") {
		t.Errorf("placeholders survived:\n%s", got.HTML)
	}
	for _, want := range []string{"[[kage@morning_routine.jpg]]", "[[kage@healthy_breakfast.jpg]]"} {
		if !strings.Contains(got.HTML, want) {
			t.Errorf("body missing %q:\n%s", want, got.HTML)
		}
	}
	if got.ThumbnailKage != "kage@morning_routine.jpg" {
		t.Errorf("thumbnail kage = %q, want the first image", got.ThumbnailKage)
	}
	if len(uploaded) != 2 {
		t.Errorf("uploads = %v", uploaded)
	}
}

func TestReplacePlaceholders_UploadFailureFallsBackToHotlink(t *testing.T) {
	u := newTestUnsplash(t, map[string]string{"morning routine": "/img/routine.jpg"})

	resolver := &Resolver{
		Unsplash: u,
		Upload: func(context.Context, []byte, string) (string, string, error) {
			return "", "", errors.New("upload rejected")
		},
		KageMarker: func(kage string) string { return kage },
	}

	got := resolver.ReplacePlaceholders(context.Background(), "<!-- IMAGE: morning routine -->")

	if !strings.Contains(got.HTML, `<img src="`) {
		t.Errorf("no hotlink fallback:\n%s", got.HTML)
	}
	if got.ThumbnailURL == "" {
		t.Error("hotlinked image did not become the thumbnail")
	}
	if got.ThumbnailKage != "" {
		t.Errorf("thumbnail kage = %q, want empty on hotlink", got.ThumbnailKage)
	}
}

func TestReplacePlaceholders_MissDropsComment(t *testing.T) {
	u := newTestUnsplash(t, nil)

	resolver := &Resolver{Unsplash: u}
	got := resolver.ReplacePlaceholders(context.Background(), "<p>a</p><!-- IMAGE: nothing --><p>b</p>")

	if got.HTML != "<p>a</p><p>b</p>" {
		t.Errorf("html = %q", got.HTML)
	}
	if got.ThumbnailURL != "" {
		t.Errorf("thumbnail = %q, want empty", got.ThumbnailURL)
	}
}

func TestReplacePlaceholders_NoKeyStripsPlaceholders(t *testing.T) {
	resolver := &Resolver{Unsplash: NewUnsplashClient("")}
	got := resolver.ReplacePlaceholders(context.Background(), bodyWithPlaceholders)

	if strings.Contains(got.HTML, "<!-- IMAGE:") {
		t.Errorf("placeholders survived without a key:\n%s", got.HTML)
	}
	if !strings.Contains(got.HTML, "<p>본문</p>") {
		t.Errorf("body content lost:\n%s", got.HTML)
	}
}

func TestReplacePlaceholders_NoUploadHotlinks(t *testing.T) {
	u := newTestUnsplash(t, map[string]string{"morning routine": "/img/routine.jpg"})

	resolver := &Resolver{Unsplash: u}
	got := resolver.ReplacePlaceholders(context.Background(), "<!-- IMAGE: morning routine -->")

	if !strings.Contains(got.HTML, "alt=\"a photo of morning routine\"") {
		t.Errorf("hotlink tag missing alt:\n%s", got.HTML)
	}
}
