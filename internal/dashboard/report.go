package dashboard

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// RenderMarkdown converts a markdown report into HTML for embedding in the
// status page. Goldmark escapes raw HTML in the source, so repository names
// coming from the forge cannot inject markup.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(src), &buf); err != nil {
		return "", fnderrors.InternalError("rendering markdown report").
			Cause(err).
			Build()
	}
	return template.HTML(buf.String()), nil
}

// ExtractHeadings returns the text of h2 and h3 elements in rendered HTML,
// in document order. The status page uses them as a section nav strip.
func ExtractHeadings(rendered string) []string {
	doc, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return nil
	}

	var headings []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "h2" || n.Data == "h3") {
			if text := nodeText(n); text != "" {
				headings = append(headings, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return headings
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
