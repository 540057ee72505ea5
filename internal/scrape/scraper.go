// Package scrape turns URLs into raw HTML blobs via a rendering browser.
// It discovers same-domain links when asked, skips individual failures, and
// concatenates everything it managed to fetch.
package scrape

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Renderer fetches the rendered HTML for a URL after client-side scripts ran.
// Implemented by browser.Session.
type Renderer interface {
	Render(ctx context.Context, url string, settle time.Duration) (string, error)
	SettleDelay() time.Duration
	LinkSettleDelay() time.Duration
}

// Scraper fetches pages through a Renderer.
type Scraper struct {
	renderer         Renderer
	maxInternalLinks int
	logger           *zap.Logger
}

// New creates a scraper. maxInternalLinks caps link discovery per page.
func New(renderer Renderer, maxInternalLinks int, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		renderer:         renderer,
		maxInternalLinks: maxInternalLinks,
		logger:           logger,
	}
}

// ScrapePage fetches the rendered HTML for url. With includeInternal it also
// fetches up to the configured number of same-domain links found on the page,
// appending their HTML. A failing internal link is logged and skipped.
func (s *Scraper) ScrapePage(ctx context.Context, url string, includeInternal bool) (string, error) {
	main, err := s.renderer.Render(ctx, url, s.renderer.SettleDelay())
	if err != nil {
		return "", err
	}
	if !includeInternal {
		return main, nil
	}

	links, err := internalLinks(main, url, s.maxInternalLinks)
	if err != nil {
		// Unparseable HTML still has usable text content downstream.
		s.logger.Warn("link discovery failed", zap.String("url", url), zap.Error(err))
		return main, nil
	}

	parts := []string{main}
	for _, link := range links {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		body, err := s.renderer.Render(ctx, link, s.renderer.LinkSettleDelay())
		if err != nil {
			s.logger.Warn("skipping internal link", zap.String("url", link), zap.Error(err))
			continue
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n"), nil
}

// ScrapeURLs fetches each URL in order and concatenates the results. A URL
// that fails entirely is logged and contributes nothing; the batch continues.
func (s *Scraper) ScrapeURLs(ctx context.Context, urls []string, includeInternal bool) (string, error) {
	var parts []string
	for _, u := range urls {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		content, err := s.ScrapePage(ctx, u, includeInternal)
		if err != nil {
			s.logger.Warn("skipping url", zap.String("url", u), zap.Error(err))
			continue
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n"), nil
}
