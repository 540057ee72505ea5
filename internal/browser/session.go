// Package browser owns the shared headless Chrome instance used for
// rendering pages before ingestion. One browser serves the whole process;
// navigations are serialized because a single driver handles one page load
// at a time.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Config holds browser settings.
type Config struct {
	Headless          bool
	NavigationTimeout time.Duration
	// SettleDelay is the fixed wait after navigation before the DOM is read.
	// A fixed delay instead of network-idle detection keeps latency bounded
	// on pages that never go quiet.
	SettleDelay     time.Duration
	LinkSettleDelay time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       2 * time.Second,
		LinkSettleDelay:   time.Second,
	}
}

// Session wraps a shared rod.Browser. It starts lazily on first use and
// reconnects if the underlying Chrome went away.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launched *launcher.Launcher
}

// NewSession creates an unstarted session.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{cfg: cfg, logger: logger}
}

// Start launches Chrome and connects to it. Safe to call repeatedly; a
// healthy connection is reused, a stale one is replaced.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) error {
	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil
		}
		s.logger.Warn("stale browser connection, relaunching")
		s.closeLocked()
	}

	l := launcher.New().Headless(s.cfg.Headless).
		Set("no-sandbox").
		Set("disable-dev-shm-usage")
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = b
	s.launched = l
	s.logger.Info("browser session started", zap.Bool("headless", s.cfg.Headless))
	return nil
}

func (s *Session) closeLocked() {
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	if s.launched != nil {
		s.launched.Kill()
		s.launched = nil
	}
}

// Render navigates to url, waits the settle delay, and returns the rendered
// HTML. The session lock is held for the whole operation so concurrent
// callers are serialized onto the single driver.
func (s *Session) Render(ctx context.Context, url string, settle time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.startLocked(ctx); err != nil {
		return "", err
	}
	if s.browser == nil {
		return "", errors.New("browser not connected")
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.Context(ctx).Timeout(s.cfg.NavigationTimeout).Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}

	if settle > 0 {
		timer := time.NewTimer(settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// SettleDelay returns the configured top-level settle delay.
func (s *Session) SettleDelay() time.Duration { return s.cfg.SettleDelay }

// LinkSettleDelay returns the shorter delay used for discovered links.
func (s *Session) LinkSettleDelay() time.Duration { return s.cfg.LinkSettleDelay }

// Shutdown closes the browser and kills the launched Chrome process.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.logger.Info("browser session closed")
}
