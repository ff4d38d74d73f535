package blog

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
)

var kagePathRe = regexp.MustCompile(`/dna/(.+)`)

// UploadResult describes one uploaded attachment.
type UploadResult struct {
	// URL is the CDN URL of the stored file.
	URL string `json:"url"`

	// Kage is the editor attachment path ("kage@..."), empty when the CDN
	// URL does not carry one. Posts reference uploads by this path.
	Kage string `json:"-"`
}

// KageMarker renders the editor's inline image substitution for an
// uploaded attachment.
func KageMarker(kage string) string {
	return fmt.Sprintf(`<p>[##_Image|%s|CDM|1.3|{"originWidth":0,"originHeight":0,"style":"alignCenter"}_##]</p>`, kage)
}

// UploadImage stores an image as a post attachment and derives its kage
// path from the returned CDN URL.
func (c *Client) UploadImage(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("uploadedfile", filename)
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/photo.json", &buf)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	c.setHeaders(req, false)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}
	if m := kagePathRe.FindStringSubmatch(result.URL); m != nil {
		result.Kage = "kage@" + m[1]
	}
	return &result, nil
}
