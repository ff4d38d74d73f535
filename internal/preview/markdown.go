package preview

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// ToMarkdown converts a draft's HTML body to markdown for terminal
// display.
func ToMarkdown(html string) (string, error) {
	md, err := mdConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting draft to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
