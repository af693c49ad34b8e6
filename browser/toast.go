package browser

import (
	"context"
	"log/slog"

	"github.com/quickwhats/quickwhats/notify"
)

// toastJS injects a transient notice into the page. Sticky notices
// (duration 0) are tagged and removed when the next notice arrives, so a
// processing notice is replaced rather than stacked.
const toastJS = `(msg, sev, ms) => {
	let c = document.querySelector('#quickwhats-toast-container');
	if (!c) {
		c = document.createElement('div');
		c.id = 'quickwhats-toast-container';
		c.style.cssText = 'position:fixed;top:20px;right:20px;z-index:2147483647;' +
			'pointer-events:none;font-family:-apple-system,sans-serif;font-size:14px;';
		(document.body || document.documentElement).appendChild(c);
	}
	c.querySelectorAll('[data-qw-sticky]').forEach((e) => e.remove());
	const colors = { success: '#4AE374', error: '#ff6b6b', info: '#74b9ff', processing: '#74b9ff' };
	const t = document.createElement('div');
	t.textContent = msg;
	t.style.cssText = 'margin-top:8px;padding:10px 14px;border-radius:6px;color:#073042;' +
		'box-shadow:0 2px 8px rgba(0,0,0,.25);background:' + (colors[sev] || '#74b9ff') + ';';
	if (!ms) t.setAttribute('data-qw-sticky', '1');
	c.appendChild(t);
	if (ms > 0) setTimeout(() => t.remove(), ms);
}`

// ToastSink shows page-surface notices as toasts injected into the active
// tab. Best-effort: a page without an attached tab just logs.
type ToastSink struct {
	manager *Manager
	logger  *slog.Logger
}

// NewToastSink creates a page toast sink.
func NewToastSink(m *Manager, logger *slog.Logger) *ToastSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToastSink{manager: m, logger: logger}
}

func (t *ToastSink) Status(ctx context.Context, surface notify.Surface, n notify.Notification) error {
	if surface != notify.SurfacePage {
		return nil
	}
	page := t.manager.PageFor("")
	if page == nil {
		t.logger.Debug("no tab for page toast", "message", n.Message)
		return nil
	}
	_, err := page.Context(ctx).Eval(toastJS, n.Message, string(n.Severity), n.Duration.Milliseconds())
	if err != nil {
		t.logger.Warn("page toast failed", "error", err)
	}
	return nil
}

// Badge is a panel concern; the page sink ignores it.
func (t *ToastSink) Badge(context.Context, int) error { return nil }

func (t *ToastSink) Close() error { return nil }
