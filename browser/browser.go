// Package browser manages the attached Chrome instance used for the
// page-side surfaces: delegated image fetches inside an authenticated tab,
// toast notices injected into the page the user is viewing, and opening
// wa.me chats in a new tab.
//
// The daemon works without a browser; everything here degrades to a logged
// no-op when none is attached.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local headless Chrome via launcher.
	RemoteURL string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager holds the Rod browser handle.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewManager creates a Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start connects to the configured remote Chrome, or launches a local one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	controlURL := m.cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		m.lnch = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	m.cfg.Logger.Info("browser attached", "remote", m.cfg.RemoteURL != "")
	return nil
}

// Browser returns the Rod handle, or nil when not attached.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// PageFor returns the open tab whose URL starts with pageURL, or the first
// open tab when pageURL is empty. Returns nil when no tab matches.
func (m *Manager) PageFor(pageURL string) *rod.Page {
	b := m.Browser()
	if b == nil {
		return nil
	}
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return nil
	}
	if pageURL == "" {
		return pages[0]
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.HasPrefix(info.URL, pageURL) {
			return p
		}
	}
	return nil
}

// Open opens url in a new stealth tab.
func (m *Manager) Open(ctx context.Context, url string) error {
	b := m.Browser()
	if b == nil {
		m.cfg.Logger.Info("no browser attached, launch url", "url", url)
		return nil
	}
	page, err := stealth.Page(b)
	if err != nil {
		return fmt.Errorf("browser: create tab: %w", err)
	}
	if err := page.Context(ctx).Navigate(url); err != nil {
		page.Close()
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// Close disconnects and, when Chrome was launched locally, kills it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.cfg.Logger.Warn("browser close", "error", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
