package notes

import (
	"bytes"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

// ugcPolicy keeps the formatting a rich-text surface can produce.
var ugcPolicy = bluemonday.UGCPolicy()

// RichFromMarkdown renders markdown into sanitized rich content.
func RichFromMarkdown(source string) string {
	// Parsers are single use
	extensions := parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(source))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	rendered := markdown.Render(doc, renderer)

	return string(bytes.TrimSpace(ugcPolicy.SanitizeBytes(rendered)))
}

// MarkdownFromRich converts rich content to markdown for export.
func MarkdownFromRich(rich string) (string, error) {
	if strings.TrimSpace(rich) == "" {
		return "", nil
	}
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	out, err := converter.ConvertString(rich)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
