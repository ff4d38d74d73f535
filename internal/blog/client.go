// Package blog talks to the Tistory manage API using a captured browser
// session. The manage endpoints are the same XHR calls the web editor
// makes; they require the session cookies, an XMLHttpRequest marker, and
// a Referer inside the manage area.
package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	myBlogsEndpoint  = "https://www.tistory.com/legacy/member/blog/api/myBlogs"
)

// Visibility values accepted by the publish endpoint.
const (
	VisibilityPrivate   = 0
	VisibilityProtected = 15
	VisibilityPublic    = 20
)

// ErrSessionExpired reports that the stored cookies no longer authenticate.
var ErrSessionExpired = errors.New("tistory session expired, run login again")

// Cookie is one captured browser cookie. Only cookies on a tistory domain
// are sent to the manage API.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// Client is a cookie-authenticated Tistory manage API client for a single
// blog. DetectBlog must succeed before any manage call.
type Client struct {
	client       *http.Client
	cookieHeader string
	blogName     string

	// Test seams. Empty means the real endpoints.
	manageBaseURL string
	myBlogsURL    string
}

// NewClient builds a client from captured session cookies.
func NewClient(cookies []Cookie) *Client {
	var pairs []string
	for _, c := range cookies {
		if !strings.Contains(c.Domain, "tistory") {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return &Client{
		client:       &http.Client{Timeout: 30 * time.Second},
		cookieHeader: strings.Join(pairs, "; "),
	}
}

// BlogName returns the detected blog name, empty before DetectBlog.
func (c *Client) BlogName() string {
	return c.blogName
}

func (c *Client) base() string {
	if c.manageBaseURL != "" {
		return c.manageBaseURL
	}
	return fmt.Sprintf("https://%s.tistory.com/manage", c.blogName)
}

func (c *Client) setHeaders(req *http.Request, jsonBody bool) {
	req.Header.Set("Cookie", c.cookieHeader)
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Referer", c.base()+"/newpost")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if jsonBody {
		req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	}
}

// DetectBlog resolves the session's default blog from the member API and
// pins the client to it. The default blog wins; otherwise the first one.
func (c *Client) DetectBlog(ctx context.Context) (string, error) {
	endpoint := c.myBlogsURL
	if endpoint == "" {
		endpoint = myBlogsEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building blog detection request: %w", err)
	}
	req.Header.Set("Cookie", c.cookieHeader)
	req.Header.Set("User-Agent", browserUserAgent)

	var body struct {
		Data []struct {
			Name        string `json:"name"`
			DefaultBlog bool   `json:"defaultBlog"`
		} `json:"data"`
	}
	if err := c.do(req, &body); err != nil {
		return "", fmt.Errorf("detecting blog: %w", err)
	}
	if len(body.Data) == 0 {
		return "", fmt.Errorf("no blog found for this session")
	}

	name := body.Data[0].Name
	for _, b := range body.Data {
		if b.DefaultBlog {
			name = b.Name
			break
		}
	}
	c.blogName = name
	return name, nil
}

// PostRequest is one post to publish.
type PostRequest struct {
	Title      string
	Content    string
	Visibility int
	Category   int64
	Tag        string
	Thumbnail  string // kage path of the thumbnail attachment, optional
}

// PublishResult is the publish endpoint's reply.
type PublishResult struct {
	EntryURL string `json:"entryUrl"`
	PostID   int64  `json:"id"`
}

// Publish creates and publishes a post. The payload mirrors what the web
// editor sends; the manage API rejects requests missing the editor fields.
func (c *Client) Publish(ctx context.Context, post PostRequest) (*PublishResult, error) {
	payload := map[string]any{
		"id":                    "0",
		"title":                 post.Title,
		"content":               post.Content,
		"visibility":            post.Visibility,
		"category":              post.Category,
		"tag":                   post.Tag,
		"published":             1,
		"type":                  "post",
		"uselessMarginForEntry": 1,
		"cclCommercial":         0,
		"cclDerive":             0,
		"attachments":           []any{},
		"recaptchaValue":        "",
		"draftSequence":         nil,
	}
	if post.Thumbnail != "" {
		payload["thumbnail"] = post.Thumbnail
	}

	var result PublishResult
	if err := c.postJSON(ctx, c.base()+"/post.json", payload, &result); err != nil {
		return nil, fmt.Errorf("publishing post: %w", err)
	}
	return &result, nil
}

// DraftResult is the draft endpoint's reply.
type DraftResult struct {
	Draft struct {
		Sequence int64 `json:"sequence"`
	} `json:"draft"`
}

// SaveDraft stores the post as an unpublished draft.
func (c *Client) SaveDraft(ctx context.Context, title, content string) (*DraftResult, error) {
	payload := map[string]any{"title": title, "content": content}

	var result DraftResult
	if err := c.postJSON(ctx, c.base()+"/drafts", payload, &result); err != nil {
		return nil, fmt.Errorf("saving draft: %w", err)
	}
	return &result, nil
}

// PostSummary is one row of the manage post list.
type PostSummary struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Visibility string `json:"visibility"`
}

// PostList is the manage post-list reply.
type PostList struct {
	TotalCount int           `json:"totalCount"`
	Items      []PostSummary `json:"items"`
}

// ListPosts returns the blog's post list as the manage screen shows it.
func (c *Client) ListPosts(ctx context.Context) (*PostList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/posts.json", nil)
	if err != nil {
		return nil, fmt.Errorf("building post list request: %w", err)
	}
	c.setHeaders(req, false)

	var list PostList
	if err := c.do(req, &list); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return &list, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req, true)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrSessionExpired
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
