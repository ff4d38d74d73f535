package images

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`<!-- IMAGE: (.+?) -->`)

// UploadFunc stores image bytes on the blog and returns the CDN URL plus
// the editor attachment path ("kage@..."), empty when unavailable.
type UploadFunc func(ctx context.Context, data []byte, filename string) (url, kage string, err error)

// KageMarkerFunc renders an inline image substitution for an attachment
// path.
type KageMarkerFunc func(kage string) string

// Resolved is the outcome of placeholder resolution. The first successfully
// placed image becomes the post thumbnail.
type Resolved struct {
	HTML          string
	ThumbnailURL  string
	ThumbnailKage string
}

// Resolver replaces image placeholder comments with pictures.
type Resolver struct {
	Unsplash   *UnsplashClient
	Upload     UploadFunc     // nil means hotlink-only fallback
	KageMarker KageMarkerFunc // required when Upload is set
}

// ReplacePlaceholders substitutes every placeholder comment in the body.
// Each placeholder is independent: a failed search drops the comment, a
// failed upload falls back to hotlinking the external URL. Resolution
// never fails the post.
func (r *Resolver) ReplacePlaceholders(ctx context.Context, body string) Resolved {
	out := Resolved{HTML: body}

	if r.Unsplash == nil || !r.Unsplash.Enabled() {
		slog.Warn("image search key not configured, keeping placeholders out")
		out.HTML = placeholderRe.ReplaceAllString(body, "")
		return out
	}

	matches := placeholderRe.FindAllStringSubmatch(body, -1)
	slog.Info("resolving image placeholders", "count", len(matches))

	for _, m := range matches {
		placeholder, keyword := m[0], strings.TrimSpace(m[1])

		image, err := r.Unsplash.SearchImage(ctx, keyword)
		if err != nil {
			slog.Warn("image search failed, dropping placeholder", "keyword", keyword, "error", err)
			out.HTML = strings.Replace(out.HTML, placeholder, "", 1)
			continue
		}
		if image == nil {
			slog.Warn("no image found, dropping placeholder", "keyword", keyword)
			out.HTML = strings.Replace(out.HTML, placeholder, "", 1)
			continue
		}

		replacement := r.place(ctx, keyword, image, &out)
		out.HTML = strings.Replace(out.HTML, placeholder, replacement, 1)
	}
	return out
}

// place uploads the image when possible and returns the markup to splice
// in, recording the first placed image as the thumbnail.
func (r *Resolver) place(ctx context.Context, keyword string, image *Image, out *Resolved) string {
	if r.Upload != nil {
		if markup, ok := r.tryUpload(ctx, keyword, image, out); ok {
			return markup
		}
	}

	slog.Info("hotlinking external image", "keyword", keyword)
	if out.ThumbnailURL == "" {
		out.ThumbnailURL = image.URL
	}
	return externalImgTag(image)
}

func (r *Resolver) tryUpload(ctx context.Context, keyword string, image *Image, out *Resolved) (string, bool) {
	data, err := r.Unsplash.DownloadImage(ctx, image.URL)
	if err != nil {
		slog.Warn("image download failed", "keyword", keyword, "error", err)
		return "", false
	}

	filename := strings.ReplaceAll(keyword, " ", "_") + ".jpg"
	url, kage, err := r.Upload(ctx, data, filename)
	if err != nil {
		slog.Warn("image upload failed, falling back to hotlink", "keyword", keyword, "error", err)
		return "", false
	}

	if kage != "" && r.KageMarker != nil {
		if out.ThumbnailURL == "" {
			out.ThumbnailURL = url
			out.ThumbnailKage = kage
		}
		slog.Info("image attached", "keyword", keyword, "kage", kage)
		return r.KageMarker(kage), true
	}

	// Uploaded but no attachment path: reference the CDN URL directly.
	if out.ThumbnailURL == "" {
		out.ThumbnailURL = url
	}
	return externalImgTag(&Image{URL: url, Alt: image.Alt}), true
}

func externalImgTag(image *Image) string {
	return fmt.Sprintf(`<p data-ke-size="size16"><img src="%s" alt="%s" /></p>`,
		image.URL, html.EscapeString(image.Alt))
}
