// Package browser manages scoped headless-browser sessions for scraping.
//
// A session is acquired per retrieval attempt and must be closed on every
// exit path before the next retry attempt begins; sessions are never reused
// across attempts or across pipeline steps.
package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// desktopUserAgent masks the headless browser as a regular desktop client.
const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)" +
	" AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds browser session settings.
type Config struct {
	// Headless runs the browser without a display. Default true.
	Headless bool

	// NavigationTimeout bounds page loads.
	NavigationTimeout time.Duration
}

// DefaultConfig returns production session settings.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
	}
}

// Session is a single-use headless browser instance.
type Session struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewSession launches a fresh browser. The caller owns the session and must
// call Close when done, typically via defer immediately after acquisition.
func NewSession(cfg Config) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-dev-shm-usage")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Session{cfg: cfg, launcher: l, browser: b}, nil
}

// OpenPage navigates a new page to the given URL with a masked user agent
// and waits for the load event.
func (s *Session) OpenPage(url string) (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: desktopUserAgent,
	}); err != nil {
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	page = page.Timeout(s.cfg.NavigationTimeout)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load %s: %w", url, err)
	}

	return page.CancelTimeout(), nil
}

// Close tears the browser down. Safe to call on every exit path.
func (s *Session) Close() {
	if err := s.browser.Close(); err != nil {
		slog.Debug("browser close", slog.Any("error", err))
	}
	s.launcher.Cleanup()
}
