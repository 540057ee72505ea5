package scrape

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// skippedExtensions are path suffixes that never yield indexable HTML.
var skippedExtensions = []string{".pdf", ".jpg", ".png", ".gif"}

// internalLinks parses pageHTML and returns absolute same-host links reachable
// from it, in document order, deduplicated, capped at max. The page's own URL
// is excluded.
func internalLinks(pageHTML, pageURL string, max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var links []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(links) >= max {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				resolved := resolveInternal(base, attr.Val)
				if resolved == "" || resolved == base.String() {
					break
				}
				if _, ok := seen[resolved]; ok {
					break
				}
				seen[resolved] = struct{}{}
				links = append(links, resolved)
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

// resolveInternal resolves href against base and returns the absolute URL if
// it stays on the same scheme+host and does not point at a known non-HTML
// resource. Returns "" otherwise.
func resolveInternal(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != base.Scheme || abs.Host != base.Host {
		return ""
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	path := strings.ToLower(abs.Path)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(path, ext) {
			return ""
		}
	}
	abs.Fragment = ""
	return abs.String()
}
