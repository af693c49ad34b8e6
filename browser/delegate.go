package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

// downloadJS runs inside the page, so the fetch carries the page's
// authentication cookies — this is what lets restricted CDN images load.
const downloadJS = `async (url) => {
	const resp = await fetch(url, { credentials: 'include' });
	if (!resp.ok) {
		throw new Error('Failed to download image: ' + resp.status);
	}
	const blob = await resp.blob();
	return await new Promise((resolve, reject) => {
		const reader = new FileReader();
		reader.onload = () => resolve(reader.result);
		reader.onerror = () => reject(new Error('Failed to convert image to base64'));
		reader.readAsDataURL(blob);
	});
}`

// Delegate fetches image bytes inside an authenticated tab. It implements
// imagefetch.Delegate.
type Delegate struct {
	page *rod.Page
}

// Delegate returns a delegated-fetch handle bound to the tab showing
// pageURL, or nil when no such tab is open — the caller then falls back to
// direct fetching.
func (m *Manager) Delegate(pageURL string) *Delegate {
	page := m.PageFor(pageURL)
	if page == nil {
		return nil
	}
	return &Delegate{page: page}
}

// FetchImage downloads url inside the page and returns it as a data URI.
func (d *Delegate) FetchImage(ctx context.Context, url string) (string, error) {
	res, err := d.page.Context(ctx).Eval(downloadJS, url)
	if err != nil {
		return "", fmt.Errorf("browser: in-page download: %w", err)
	}
	return res.Value.Str(), nil
}
