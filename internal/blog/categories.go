package blog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
)

var windowConfigRe = regexp.MustCompile(`window\.Config\s*=\s*\{`)

type categoryNode struct {
	ID       int64          `json:"id"`
	Label    string         `json:"label"`
	Children []categoryNode `json:"children"`
}

// Category is one flattened blog category.
type Category struct {
	Name string
	ID   int64
}

// Categories scrapes the blog's category tree from the editor page. The
// editor embeds its state as a window.Config assignment; the categories
// live under blog.categories with nested children.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+"/newpost", nil)
	if err != nil {
		return nil, fmt.Errorf("building editor page request: %w", err)
	}
	c.setHeaders(req, false)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching editor page: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrSessionExpired
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching editor page: unexpected status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading editor page: %w", err)
	}

	cats, err := parseEditorCategories(string(page))
	if err != nil {
		return nil, fmt.Errorf("parsing categories: %w", err)
	}
	return cats, nil
}

// CategoryID resolves a category name (e.g. "Web/Backend") to its id.
func (c *Client) CategoryID(ctx context.Context, name string) (int64, error) {
	cats, err := c.Categories(ctx)
	if err != nil {
		return 0, err
	}
	for _, cat := range cats {
		if cat.Name == name {
			return cat.ID, nil
		}
	}
	return 0, fmt.Errorf("category %q not found", name)
}

func parseEditorCategories(page string) ([]Category, error) {
	loc := windowConfigRe.FindStringIndex(page)
	if loc == nil {
		return nil, fmt.Errorf("window.Config assignment not found")
	}

	// loc[1] is one past the opening brace.
	object, err := matchBraces(page[loc[1]-1:])
	if err != nil {
		return nil, err
	}

	var config struct {
		Blog struct {
			Categories []categoryNode `json:"categories"`
		} `json:"blog"`
	}
	if err := json.Unmarshal([]byte(object), &config); err != nil {
		return nil, fmt.Errorf("decoding window.Config: %w", err)
	}

	var out []Category
	var flatten func(nodes []categoryNode)
	flatten = func(nodes []categoryNode) {
		for _, node := range nodes {
			out = append(out, Category{Name: node.Label, ID: node.ID})
			if len(node.Children) > 0 {
				flatten(node.Children)
			}
		}
	}
	flatten(config.Blog.Categories)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// matchBraces returns the balanced {...} object that s opens with,
// tracking string literals so braces inside values do not miscount.
func matchBraces(s string) (string, error) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString:
			if ch == '\\' {
				escaped = true
			} else if ch == '"' {
				inString = false
			}
		case ch == '"':
			inString = true
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced braces in window.Config")
}
