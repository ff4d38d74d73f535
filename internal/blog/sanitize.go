package blog

import (
	"github.com/microcosm-cc/bluemonday"
)

var sanitizePolicy = buildSanitizePolicy()

// buildSanitizePolicy permits the markup the Tistory editor itself
// produces: headings, lists, tables, inline emphasis, images, and the
// editor's data-ke-* attributes. Script, style, and event handlers are
// rejected.
func buildSanitizePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h2", "h3", "h4",
		"p", "br", "hr", "blockquote", "pre", "code",
		"ul", "ol", "li",
		"strong", "b", "em", "i", "u", "s", "mark", "span",
		"table", "thead", "tbody", "tr", "th", "td",
		"figure", "figcaption",
	)
	p.AllowAttrs("data-ke-size", "data-ke-style", "data-ke-align").Globally()
	p.AllowImages()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("colspan", "rowspan").OnElements("th", "td")

	return p
}

// Sanitize strips anything outside the editor's markup set from generated
// HTML. Run it after image placeholders are resolved; the placeholder
// comments themselves do not survive sanitation.
func Sanitize(html string) string {
	return sanitizePolicy.Sanitize(html)
}
