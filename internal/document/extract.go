// Package document converts raw HTML into bounded, overlapping text chunks
// ready for embedding.
package document

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC unicode normalization so visually identical text
// from different pages embeds identically.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}

// ExtractText parses raw HTML and returns its readable text. Block-level
// elements become paragraph breaks ("\n\n") so the splitter can prefer
// paragraph boundaries; script, style and other non-content subtrees are
// dropped entirely.
func ExtractText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := collapseSpace(n.Data); text != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteString(" ")
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			sb.WriteString("\n\n")
		}
	}
	walk(doc)

	return tidyParagraphs(sb.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "main", "aside", "header", "footer",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"li", "ul", "ol", "table", "tr", "blockquote", "pre", "br", "title":
		return true
	}
	return false
}

// collapseSpace squeezes runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// tidyParagraphs trims each paragraph and drops empty ones, re-joining with
// blank lines.
func tidyParagraphs(s string) string {
	parts := strings.Split(s, "\n\n")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
