// Package images resolves the image placeholders in generated post bodies
// into real pictures: Unsplash search by keyword, download, and upload to
// the blog as an attachment, with an external hotlink fallback.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const unsplashSearchURL = "https://api.unsplash.com/search/photos"

// maxImageBytes caps a single downloaded image.
const maxImageBytes = 10 << 20

// Image is one Unsplash search hit.
type Image struct {
	URL        string
	Alt        string
	Credit     string
	CreditLink string
}

// UnsplashClient searches Unsplash with an access key. An empty key turns
// every search into a no-hit.
type UnsplashClient struct {
	client    *http.Client
	accessKey string

	searchURL string // test seam
}

// NewUnsplashClient builds a client. accessKey may be empty.
func NewUnsplashClient(accessKey string) *UnsplashClient {
	return &UnsplashClient{
		client:    &http.Client{Timeout: 15 * time.Second},
		accessKey: accessKey,
		searchURL: unsplashSearchURL,
	}
}

// Enabled reports whether an access key is configured.
func (u *UnsplashClient) Enabled() bool {
	return u.accessKey != ""
}

// SearchImage returns the best landscape hit for the keyword, or nil when
// nothing matches.
func (u *UnsplashClient) SearchImage(ctx context.Context, keyword string) (*Image, error) {
	if !u.Enabled() {
		return nil, nil
	}

	query := url.Values{
		"query":       {keyword},
		"per_page":    {"1"},
		"orientation": {"landscape"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.searchURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building image search request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching images: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searching images: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Results []struct {
			URLs struct {
				Regular string `json:"regular"`
			} `json:"urls"`
			AltDescription string `json:"alt_description"`
			User           struct {
				Name  string `json:"name"`
				Links struct {
					HTML string `json:"html"`
				} `json:"links"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding image search response: %w", err)
	}
	if len(body.Results) == 0 {
		return nil, nil
	}

	hit := body.Results[0]
	alt := hit.AltDescription
	if alt == "" {
		alt = keyword
	}
	return &Image{
		URL:        hit.URLs.Regular,
		Alt:        alt,
		Credit:     hit.User.Name,
		CreditLink: hit.User.Links.HTML,
	}, nil
}

// DownloadImage fetches the image bytes.
func (u *UnsplashClient) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building image download request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	return data, nil
}
