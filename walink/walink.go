// Package walink builds and opens WhatsApp chat-launch URLs.
package walink

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// URL builds the wa.me launch URL for a number under countryCode. The
// message, when non-empty, is carried as the pre-filled chat text.
// wa.me expects the full international number without "+"; a local trunk
// "0" is dropped before the country code is prepended.
func URL(countryCode, number, message string) string {
	digits := nonDigits.ReplaceAllString(number, "")
	cc := nonDigits.ReplaceAllString(countryCode, "")
	switch {
	case cc != "" && strings.HasPrefix(digits, cc):
		cc = ""
	case strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	u := "https://wa.me/" + cc + digits
	if message != "" {
		u += "?text=" + url.QueryEscape(message)
	}
	return u
}

// Launcher opens a launch URL in a new browsing context.
type Launcher interface {
	Open(ctx context.Context, url string) error
}

// LogLauncher records launch URLs in the log when no browser is attached.
type LogLauncher struct {
	Logger *slog.Logger
}

func (l LogLauncher) Open(_ context.Context, url string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("whatsapp launch", "url", url)
	return nil
}
